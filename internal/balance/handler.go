package balance

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/barpos/barpos/internal/money"
	"github.com/barpos/barpos/internal/platform/httpx"
	"github.com/barpos/barpos/internal/rbac"
	"github.com/barpos/barpos/internal/shared"
)

// Handler serves balance endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a balance handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches balance routes.
func (h *Handler) MountRoutes(r chi.Router, authz rbac.Middleware) {
	r.With(authz.Require("get", rbac.RelationOwn, rbac.EntityBalance)).Get("/balance", h.own)
	r.With(authz.Require("get", rbac.RelationAll, rbac.EntityBalance)).Get("/balances/{id}", h.get)
}

// BalanceResponse is the public balance representation.
type BalanceResponse struct {
	UserID int64       `json:"userId"`
	Amount money.Money `json:"amount"`
	AsOf   string      `json:"asOf"`
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, userID int64) {
	asOf := time.Now()
	pointInTime := false
	if raw := r.URL.Query().Get("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "at must be RFC3339")
			return
		}
		asOf = parsed
		pointInTime = true
	}

	var (
		amount money.Money
		err    error
	)
	if pointInTime {
		amount, err = h.service.GetBalance(r.Context(), userID, asOf)
	} else {
		amount, err = h.service.GetCurrentBalance(r.Context(), userID)
	}
	if err != nil {
		h.logger.Error("compute balance", slog.Int64("user_id", userID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, BalanceResponse{
		UserID: userID,
		Amount: amount,
		AsOf:   asOf.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) own(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, shared.SessionUserID(r.Context()))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	h.respond(w, r, id)
}

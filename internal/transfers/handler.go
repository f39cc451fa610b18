package transfers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/barpos/barpos/internal/money"
	"github.com/barpos/barpos/internal/platform/httpx"
	"github.com/barpos/barpos/internal/rbac"
	"github.com/barpos/barpos/internal/shared"
)

// Handler serves transfer endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a transfer handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes attaches transfer routes.
func (h *Handler) MountRoutes(r chi.Router, authz rbac.Middleware) {
	r.Route("/transfers", func(r chi.Router) {
		r.With(authz.Require("get", rbac.RelationAll, rbac.EntityTransfer)).Get("/", h.list)
		r.With(authz.Require("get", rbac.RelationAll, rbac.EntityTransfer)).Get("/aggregate", h.aggregate)
		r.With(authz.Require("create", rbac.RelationAll, rbac.EntityTransfer)).Post("/", h.create)
	})
}

// TransferResponse is the public transfer representation.
type TransferResponse struct {
	ID          int64       `json:"id"`
	FromID      int64       `json:"fromId,omitempty"`
	ToID        int64       `json:"toId,omitempty"`
	Amount      money.Money `json:"amount"`
	Description string      `json:"description"`
	CreatedByID int64       `json:"createdById"`
	CreatedAt   string      `json:"createdAt"`
}

func toResponse(t Transfer) TransferResponse {
	return TransferResponse{
		ID:          t.ID,
		FromID:      t.FromID,
		ToID:        t.ToID,
		Amount:      t.Amount,
		Description: t.Description,
		CreatedByID: t.CreatedByID,
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type paginatedTransfers struct {
	Pagination shared.Pagination  `json:"_pagination"`
	Records    []TransferResponse `json:"records"`
}

func parseFilter(r *http.Request) (Filter, error) {
	var filter Filter
	q := r.URL.Query()
	for name, dst := range map[string]*int64{
		"userId": &filter.UserID,
		"fromId": &filter.FromID,
		"toId":   &filter.ToID,
	} {
		if raw := q.Get(name); raw != "" {
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return Filter{}, err
			}
			*dst = v
		}
	}
	for name, dst := range map[string]*time.Time{
		"fromDate": &filter.FromDate,
		"tillDate": &filter.TillDate,
	} {
		if raw := q.Get(name); raw != "" {
			v, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return Filter{}, err
			}
			*dst = v
		}
	}
	return filter, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid filter")
		return
	}
	page := shared.ParsePagination(r)
	records, total, err := h.service.ListTransfers(r.Context(), filter, page)
	if err != nil {
		h.logger.Error("list transfers", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	page.Count = total
	resp := paginatedTransfers{Pagination: page, Records: make([]TransferResponse, 0, len(records))}
	for _, t := range records {
		resp.Records = append(resp.Records, toResponse(t))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) aggregate(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid filter")
		return
	}
	agg, err := h.service.AggregateTransfers(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, agg)
}

// CreateTransferRequest is the payload for creating transfers.
type CreateTransferRequest struct {
	FromID      int64  `json:"fromId"`
	ToID        int64  `json:"toId"`
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Description string `json:"description"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateTransferRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	sess := shared.SessionFromContext(r.Context())
	transfer, err := h.service.CreateTransfer(r.Context(), CreateTransferInput{
		FromID:      req.FromID,
		ToID:        req.ToID,
		Amount:      money.New(req.Amount),
		Description: req.Description,
		CreatedByID: sess.UserID(),
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(transfer))
}

package debtor

import (
	"errors"
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
	"github.com/barpos/barpos/internal/users"
)

// Handler serves the fine endpoints.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	idempotency *shared.IdempotencyStore
	validate    *validator.Validate
}

// NewHandler constructs a fine handler. The idempotency store is
// optional; without it double submissions are not guarded.
func NewHandler(logger *slog.Logger, service *Service, idempotency *shared.IdempotencyStore) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, idempotency: idempotency, validate: validator.New()}
}

// MountRoutes attaches fine routes.
func (h *Handler) MountRoutes(r chi.Router, authz rbac.Middleware) {
	r.Route("/fines", func(r chi.Router) {
		r.With(authz.Require("get", rbac.RelationAll, rbac.EntityFine)).Get("/", h.listEvents)
		r.With(authz.Require("get", rbac.RelationAll, rbac.EntityFine)).Get("/eligible", h.eligible)
		r.With(authz.Require("create", rbac.RelationAll, rbac.EntityFine)).Post("/handout", h.handout)
		r.With(authz.Require("notify", rbac.RelationAll, rbac.EntityFine)).Post("/notify", h.notify)
		r.With(authz.Require("get", rbac.RelationAll, rbac.EntityFine)).Get("/{id}", h.getEvent)
		r.With(authz.Require("delete", rbac.RelationAll, rbac.EntityFine)).Delete("/single/{id}", h.waiveSingle)
		r.With(authz.Require("delete", rbac.RelationAll, rbac.EntityFine)).Post("/users/{userId}/waive", h.waiveUser)
	})
}

// FineResponse is the public fine representation.
type FineResponse struct {
	ID        int64       `json:"id"`
	UserID    int64       `json:"userId"`
	Amount    money.Money `json:"amount"`
	Active    bool        `json:"active"`
	CreatedAt string      `json:"createdAt"`
}

// HandoutEventResponse is the public handout event representation.
type HandoutEventResponse struct {
	ID            int64          `json:"id"`
	ReferenceDate string         `json:"referenceDate"`
	CreatedByID   int64          `json:"createdById"`
	CreatedAt     string         `json:"createdAt"`
	Fines         []FineResponse `json:"fines"`
}

func toEventResponse(evt FineHandoutEvent) HandoutEventResponse {
	resp := HandoutEventResponse{
		ID:            evt.ID,
		ReferenceDate: evt.ReferenceDate.UTC().Format(time.RFC3339),
		CreatedByID:   evt.CreatedByID,
		CreatedAt:     evt.CreatedAt.UTC().Format(time.RFC3339),
		Fines:         make([]FineResponse, 0, len(evt.Fines)),
	}
	for _, f := range evt.Fines {
		resp.Fines = append(resp.Fines, FineResponse{
			ID:        f.ID,
			UserID:    f.UserID,
			Amount:    f.Amount,
			Active:    f.Active,
			CreatedAt: f.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return resp
}

type paginatedEvents struct {
	Pagination shared.Pagination      `json:"_pagination"`
	Records    []HandoutEventResponse `json:"records"`
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r)
	events, total, err := h.service.ListHandoutEvents(r.Context(), page)
	if err != nil {
		h.logger.Error("list handout events", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	page.Count = total
	resp := paginatedEvents{Pagination: page, Records: make([]HandoutEventResponse, 0, len(events))}
	for _, evt := range events {
		resp.Records = append(resp.Records, toEventResponse(evt))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) getEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid event id")
		return
	}
	evt, err := h.service.GetHandoutEvent(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEventResponse(evt))
}

// UserFineResponse pairs a user with their projected fine.
type UserFineResponse struct {
	UserID  int64       `json:"userId"`
	Amount  money.Money `json:"amount"`
	Balance money.Money `json:"balance"`
}

func (h *Handler) eligible(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var dates []time.Time
	for _, raw := range query["referenceDates"] {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "referenceDates must be RFC3339")
			return
		}
		dates = append(dates, parsed)
	}
	var types []users.UserType
	for _, raw := range query["userTypes"] {
		t := users.UserType(raw)
		if !t.Valid() {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown user type "+raw)
			return
		}
		types = append(types, t)
	}

	eligible, err := h.service.FindEligibleUsers(r.Context(), types, dates)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	resp := make([]UserFineResponse, 0, len(eligible))
	for _, uf := range eligible {
		resp = append(resp, UserFineResponse{UserID: uf.UserID, Amount: uf.Amount, Balance: uf.Balance})
	}
	httpx.JSON(w, http.StatusOK, resp)
}

// HandoutFinesRequest is the payload for handout and notify.
type HandoutFinesRequest struct {
	UserIDs       []int64 `json:"userIds" validate:"required,min=1"`
	ReferenceDate string  `json:"referenceDate" validate:"omitempty"`
}

func (h *Handler) parseHandoutRequest(r *http.Request) ([]int64, time.Time, error) {
	var req HandoutFinesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		return nil, time.Time{}, errors.New("malformed body")
	}
	if err := h.validate.Struct(req); err != nil {
		return nil, time.Time{}, err
	}
	var refDate time.Time
	if req.ReferenceDate != "" {
		parsed, err := time.Parse(time.RFC3339, req.ReferenceDate)
		if err != nil {
			return nil, time.Time{}, errors.New("referenceDate must be RFC3339")
		}
		refDate = parsed
	}
	return req.UserIDs, refDate, nil
}

func (h *Handler) handout(w http.ResponseWriter, r *http.Request) {
	userIDs, refDate, err := h.parseHandoutRequest(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if key := r.Header.Get("Idempotency-Key"); key != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), key, "fines.handout"); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	sess := shared.SessionFromContext(r.Context())
	evt, err := h.service.HandOutFines(r.Context(), userIDs, refDate, sess.UserID())
	if err != nil {
		h.logger.Error("handout fines", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEventResponse(*evt))
}

func (h *Handler) notify(w http.ResponseWriter, r *http.Request) {
	userIDs, refDate, err := h.parseHandoutRequest(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.SendFineWarnings(r.Context(), userIDs, refDate); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) waiveSingle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid fine id")
		return
	}
	if err := h.service.WaiveFine(r.Context(), id); err != nil {
		if errors.Is(err, ErrFineAlreadyWaived) {
			httpx.Problem(w, http.StatusConflict, "Already Waived", err.Error())
			return
		}
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) waiveUser(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	if err := h.service.WaiveFines(r.Context(), userID); err != nil {
		if errors.Is(err, ErrNoActiveFines) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package transactions

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

// Handler serves transaction endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a transaction handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes attaches transaction routes.
func (h *Handler) MountRoutes(r chi.Router, authz rbac.Middleware) {
	r.Route("/transactions", func(r chi.Router) {
		r.With(authz.Require("get", rbac.RelationAll, rbac.EntityTransaction)).Get("/", h.list)
		r.With(authz.Require("get", rbac.RelationAll, rbac.EntityTransaction)).Get("/{id}", h.get)
		r.With(authz.Require("create", rbac.RelationAll, rbac.EntityTransaction)).Post("/", h.create)
	})
}

// SubTransactionResponse is one line of a purchase.
type SubTransactionResponse struct {
	ID        int64       `json:"id"`
	ProductID int64       `json:"productId"`
	Quantity  int         `json:"quantity"`
	Amount    money.Money `json:"amount"`
}

// TransactionResponse is the public transaction representation.
type TransactionResponse struct {
	ID            int64                    `json:"id"`
	FromID        int64                    `json:"fromId"`
	ToID          int64                    `json:"toId"`
	CreatedByID   int64                    `json:"createdById"`
	PointOfSaleID int64                    `json:"pointOfSaleId,omitempty"`
	Total         money.Money              `json:"total"`
	Subs          []SubTransactionResponse `json:"subTransactions"`
	CreatedAt     string                   `json:"createdAt"`
}

func toResponse(t Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:            t.ID,
		FromID:        t.FromID,
		ToID:          t.ToID,
		CreatedByID:   t.CreatedByID,
		PointOfSaleID: t.PointOfSaleID,
		Total:         t.Total,
		Subs:          make([]SubTransactionResponse, 0, len(t.Subs)),
		CreatedAt:     t.CreatedAt.UTC().Format(time.RFC3339),
	}
	for _, s := range t.Subs {
		resp.Subs = append(resp.Subs, SubTransactionResponse{
			ID:        s.ID,
			ProductID: s.ProductID,
			Quantity:  s.Quantity,
			Amount:    s.Amount,
		})
	}
	return resp
}

type paginatedTransactions struct {
	Pagination shared.Pagination     `json:"_pagination"`
	Records    []TransactionResponse `json:"records"`
}

func parseFilter(r *http.Request) (Filter, error) {
	var filter Filter
	q := r.URL.Query()
	for name, dst := range map[string]*int64{
		"fromId":        &filter.FromID,
		"toId":          &filter.ToID,
		"pointOfSaleId": &filter.PointOfSaleID,
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
	records, total, err := h.service.ListTransactions(r.Context(), filter, page)
	if err != nil {
		h.logger.Error("list transactions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	page.Count = total
	resp := paginatedTransactions{Pagination: page, Records: make([]TransactionResponse, 0, len(records))}
	for _, t := range records {
		resp.Records = append(resp.Records, toResponse(t))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	txn, err := h.service.GetTransaction(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(txn))
}

// SubTransactionRequest is one requested purchase line.
type SubTransactionRequest struct {
	ProductID int64 `json:"productId" validate:"required"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
	Amount    int64 `json:"amount" validate:"required,gt=0"`
}

// CreateTransactionRequest is the payload for creating transactions.
type CreateTransactionRequest struct {
	FromID        int64                   `json:"fromId" validate:"required"`
	ToID          int64                   `json:"toId" validate:"required"`
	PointOfSaleID int64                   `json:"pointOfSaleId"`
	Subs          []SubTransactionRequest `json:"subTransactions" validate:"required,min=1,dive"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	sess := shared.SessionFromContext(r.Context())
	input := CreateTransactionInput{
		FromID:        req.FromID,
		ToID:          req.ToID,
		CreatedByID:   sess.UserID(),
		PointOfSaleID: req.PointOfSaleID,
	}
	for _, sub := range req.Subs {
		input.Subs = append(input.Subs, SubTransactionInput{
			ProductID: sub.ProductID,
			Quantity:  sub.Quantity,
			Amount:    money.New(sub.Amount),
		})
	}
	txn, err := h.service.CreateTransaction(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(txn))
}

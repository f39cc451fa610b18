package users

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/barpos/barpos/internal/platform/httpx"
	"github.com/barpos/barpos/internal/rbac"
	"github.com/barpos/barpos/internal/shared"
)

// Handler serves the user endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a user handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes attaches user routes.
func (h *Handler) MountRoutes(r chi.Router, authz rbac.Middleware) {
	r.Route("/users", func(r chi.Router) {
		r.With(authz.Require("get", rbac.RelationAll, rbac.EntityUser)).Get("/", h.list)
		r.With(authz.Require("create", rbac.RelationAll, rbac.EntityUser)).Post("/", h.create)
		r.With(authz.Require("get", rbac.RelationAll, rbac.EntityUser)).Get("/{id}", h.get)
		r.With(authz.Require("update", rbac.RelationAll, rbac.EntityUser)).Patch("/{id}", h.update)
		r.With(authz.Require("delete", rbac.RelationAll, rbac.EntityUser)).Delete("/{id}", h.delete)
	})
	r.With(authz.Require("get", rbac.RelationOwn, rbac.EntityUser)).Get("/me", h.me)
}

// UserResponse is the public user representation.
type UserResponse struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Type      string `json:"type"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func toResponse(u User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Type:      string(u.Type),
		Active:    u.Active,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: u.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type paginatedUsers struct {
	Pagination shared.Pagination `json:"_pagination"`
	Records    []UserResponse    `json:"records"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r)
	filter := Filter{
		FirstName: r.URL.Query().Get("firstName"),
		LastName:  r.URL.Query().Get("lastName"),
		Type:      UserType(r.URL.Query().Get("type")),
	}
	if raw := r.URL.Query().Get("active"); raw != "" {
		v := raw == "true"
		filter.Active = &v
	}
	if filter.Type != "" && !filter.Type.Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown user type")
		return
	}

	records, total, err := h.service.ListUsers(r.Context(), filter, page)
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	page.Count = total
	resp := paginatedUsers{Pagination: page, Records: make([]UserResponse, 0, len(records))}
	for _, u := range records {
		resp.Records = append(resp.Records, toResponse(u))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	u, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(u))
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	u, err := h.service.GetUser(r.Context(), sess.UserID())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(u))
}

// CreateUserRequest is the payload for account creation.
type CreateUserRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName"`
	Email     string `json:"email" validate:"omitempty,email"`
	Type      string `json:"type" validate:"required"`
	OrganID   int64  `json:"organId"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	u, err := h.service.CreateUser(r.Context(), CreateUserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Type:      UserType(req.Type),
		OrganID:   req.OrganID,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(u))
}

// UpdateUserRequest is the payload for partial account updates.
type UpdateUserRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Active    *bool   `json:"active"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	var req UpdateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	u, err := h.service.UpdateUser(r.Context(), id, UpdateUserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Active:    req.Active,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(u))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package catalog

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/barpos/barpos/internal/money"
	"github.com/barpos/barpos/internal/platform/httpx"
	"github.com/barpos/barpos/internal/rbac"
	"github.com/barpos/barpos/internal/shared"
)

// Handler serves product, container and point-of-sale endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a catalog handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes attaches catalog routes.
func (h *Handler) MountRoutes(r chi.Router, authz rbac.Middleware) {
	r.Route("/products", func(r chi.Router) {
		r.With(authz.Require("get", rbac.RelationAll, rbac.EntityProduct)).Get("/", h.listProducts)
		r.With(authz.Require("get", rbac.RelationAll, rbac.EntityProduct)).Get("/{id}", h.getProduct)
		r.With(authz.Require("create", rbac.RelationAll, rbac.EntityProduct)).Post("/", h.createProduct)
		r.With(authz.Require("update", rbac.RelationAll, rbac.EntityProduct)).Patch("/{id}", h.updateProduct)
		r.With(authz.Require("delete", rbac.RelationAll, rbac.EntityProduct)).Delete("/{id}", h.deleteProduct)
	})
	r.Route("/containers", func(r chi.Router) {
		r.With(authz.Require("get", rbac.RelationAll, rbac.EntityContainer)).Get("/", h.listContainers)
		r.With(authz.Require("get", rbac.RelationAll, rbac.EntityContainer)).Get("/{id}", h.getContainer)
		r.With(authz.Require("create", rbac.RelationAll, rbac.EntityContainer)).Post("/", h.createContainer)
	})
	r.Route("/pointsofsale", func(r chi.Router) {
		r.With(authz.Require("get", rbac.RelationAll, rbac.EntityPointOfSale)).Get("/", h.listPointsOfSale)
		r.With(authz.Require("get", rbac.RelationAll, rbac.EntityPointOfSale)).Get("/{id}", h.getPointOfSale)
		r.With(authz.Require("create", rbac.RelationAll, rbac.EntityPointOfSale)).Post("/", h.createPointOfSale)
	})
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

type paginated[T any] struct {
	Pagination shared.Pagination `json:"_pagination"`
	Records    []T               `json:"records"`
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r)
	records, total, err := h.service.ListProducts(r.Context(), page)
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	page.Count = total
	if records == nil {
		records = []Product{}
	}
	httpx.JSON(w, http.StatusOK, paginated[Product]{Pagination: page, Records: records})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	p, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

// CreateProductRequest is the payload for creating products.
type CreateProductRequest struct {
	Name    string `json:"name" validate:"required"`
	Price   int64  `json:"price" validate:"gte=0"`
	Alcohol bool   `json:"alcohol"`
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	sess := shared.SessionFromContext(r.Context())
	p, err := h.service.CreateProduct(r.Context(), CreateProductInput{
		Name:    req.Name,
		Price:   money.New(req.Price),
		OwnerID: sess.UserID(),
		Alcohol: req.Alcohol,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

// UpdateProductRequest is the payload for partial product updates.
type UpdateProductRequest struct {
	Name    *string `json:"name"`
	Price   *int64  `json:"price"`
	Alcohol *bool   `json:"alcohol"`
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	var req UpdateProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	input := UpdateProductInput{Name: req.Name, Alcohol: req.Alcohol}
	if req.Price != nil {
		price := money.New(*req.Price)
		input.Price = &price
	}
	p, err := h.service.UpdateProduct(r.Context(), id, input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listContainers(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r)
	records, total, err := h.service.ListContainers(r.Context(), page)
	if err != nil {
		h.logger.Error("list containers", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	page.Count = total
	if records == nil {
		records = []Container{}
	}
	httpx.JSON(w, http.StatusOK, paginated[Container]{Pagination: page, Records: records})
}

func (h *Handler) getContainer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	c, err := h.service.GetContainer(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

// ContainerProductRequest places one product in a container.
type ContainerProductRequest struct {
	ProductID int64 `json:"productId" validate:"required"`
	Featured  bool  `json:"featured"`
	Preferred bool  `json:"preferred"`
	Position  int   `json:"position"`
}

// CreateContainerRequest is the payload for creating containers.
type CreateContainerRequest struct {
	Name     string                    `json:"name" validate:"required"`
	Public   bool                      `json:"public"`
	Products []ContainerProductRequest `json:"products" validate:"dive"`
}

func (h *Handler) createContainer(w http.ResponseWriter, r *http.Request) {
	var req CreateContainerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	sess := shared.SessionFromContext(r.Context())
	input := CreateContainerInput{Name: req.Name, OwnerID: sess.UserID(), Public: req.Public}
	for _, cp := range req.Products {
		input.Products = append(input.Products, ContainerProduct{
			ProductID: cp.ProductID,
			Featured:  cp.Featured,
			Preferred: cp.Preferred,
			Position:  cp.Position,
		})
	}
	c, err := h.service.CreateContainer(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) listPointsOfSale(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r)
	records, total, err := h.service.ListPointsOfSale(r.Context(), page)
	if err != nil {
		h.logger.Error("list points of sale", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	page.Count = total
	if records == nil {
		records = []PointOfSale{}
	}
	httpx.JSON(w, http.StatusOK, paginated[PointOfSale]{Pagination: page, Records: records})
}

func (h *Handler) getPointOfSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	pos, err := h.service.GetPointOfSale(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pos)
}

// CreatePointOfSaleRequest is the payload for creating points of sale.
type CreatePointOfSaleRequest struct {
	Name              string  `json:"name" validate:"required"`
	UseAuthentication bool    `json:"useAuthentication"`
	ContainerIDs      []int64 `json:"containerIds"`
}

func (h *Handler) createPointOfSale(w http.ResponseWriter, r *http.Request) {
	var req CreatePointOfSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	sess := shared.SessionFromContext(r.Context())
	pos, err := h.service.CreatePointOfSale(r.Context(), CreatePointOfSaleInput{
		Name:              req.Name,
		OwnerID:           sess.UserID(),
		UseAuthentication: req.UseAuthentication,
		ContainerIDs:      req.ContainerIDs,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, pos)
}

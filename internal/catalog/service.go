package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/barpos/barpos/internal/money"
	"github.com/barpos/barpos/internal/shared"
)

// RepositoryPort defines data access for the catalog.
type RepositoryPort interface {
	GetProduct(ctx context.Context, id int64) (Product, error)
	ListProducts(ctx context.Context, page shared.Pagination) ([]Product, int, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (Product, error)
	UpdateProduct(ctx context.Context, id int64, input UpdateProductInput) (Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	GetContainer(ctx context.Context, id int64) (Container, error)
	ListContainers(ctx context.Context, page shared.Pagination) ([]Container, int, error)
	CreateContainer(ctx context.Context, input CreateContainerInput) (Container, error)

	GetPointOfSale(ctx context.Context, id int64) (PointOfSale, error)
	ListPointsOfSale(ctx context.Context, page shared.Pagination) ([]PointOfSale, int, error)
	CreatePointOfSale(ctx context.Context, input CreatePointOfSaleInput) (PointOfSale, error)
}

// Service handles catalog business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context, page shared.Pagination) ([]Product, int, error) {
	return s.repo.ListProducts(ctx, page)
}

// CreateProduct validates and inserts a product.
func (s *Service) CreateProduct(ctx context.Context, input CreateProductInput) (Product, error) {
	if strings.TrimSpace(input.Name) == "" {
		return Product{}, fmt.Errorf("%w: product name is required", shared.ErrValidation)
	}
	if input.Price.Amount < 0 {
		return Product{}, fmt.Errorf("%w: price must not be negative", shared.ErrValidation)
	}
	if !input.Price.SameUnit(money.Zero()) {
		return Product{}, fmt.Errorf("%w: price must be %s with precision %d",
			shared.ErrValidation, money.DefaultCurrency, money.DefaultPrecision)
	}
	return s.repo.CreateProduct(ctx, input)
}

// UpdateProduct validates and applies a partial update.
func (s *Service) UpdateProduct(ctx context.Context, id int64, input UpdateProductInput) (Product, error) {
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return Product{}, fmt.Errorf("%w: product name is required", shared.ErrValidation)
	}
	if input.Price != nil {
		if input.Price.Amount < 0 {
			return Product{}, fmt.Errorf("%w: price must not be negative", shared.ErrValidation)
		}
		if !input.Price.SameUnit(money.Zero()) {
			return Product{}, fmt.Errorf("%w: price must be %s with precision %d",
				shared.ErrValidation, money.DefaultCurrency, money.DefaultPrecision)
		}
	}
	return s.repo.UpdateProduct(ctx, id, input)
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	return s.repo.DeleteProduct(ctx, id)
}

func (s *Service) GetContainer(ctx context.Context, id int64) (Container, error) {
	return s.repo.GetContainer(ctx, id)
}

func (s *Service) ListContainers(ctx context.Context, page shared.Pagination) ([]Container, int, error) {
	return s.repo.ListContainers(ctx, page)
}

// CreateContainer validates placements and inserts the container.
func (s *Service) CreateContainer(ctx context.Context, input CreateContainerInput) (Container, error) {
	if strings.TrimSpace(input.Name) == "" {
		return Container{}, fmt.Errorf("%w: container name is required", shared.ErrValidation)
	}
	seen := make(map[int64]bool, len(input.Products))
	for _, cp := range input.Products {
		if seen[cp.ProductID] {
			return Container{}, fmt.Errorf("%w: duplicate product %d in container", shared.ErrValidation, cp.ProductID)
		}
		seen[cp.ProductID] = true
		if _, err := s.repo.GetProduct(ctx, cp.ProductID); err != nil {
			return Container{}, err
		}
	}
	return s.repo.CreateContainer(ctx, input)
}

func (s *Service) GetPointOfSale(ctx context.Context, id int64) (PointOfSale, error) {
	return s.repo.GetPointOfSale(ctx, id)
}

func (s *Service) ListPointsOfSale(ctx context.Context, page shared.Pagination) ([]PointOfSale, int, error) {
	return s.repo.ListPointsOfSale(ctx, page)
}

// CreatePointOfSale validates container references and inserts.
func (s *Service) CreatePointOfSale(ctx context.Context, input CreatePointOfSaleInput) (PointOfSale, error) {
	if strings.TrimSpace(input.Name) == "" {
		return PointOfSale{}, fmt.Errorf("%w: point of sale name is required", shared.ErrValidation)
	}
	for _, cid := range input.ContainerIDs {
		if _, err := s.repo.GetContainer(ctx, cid); err != nil {
			return PointOfSale{}, err
		}
	}
	return s.repo.CreatePointOfSale(ctx, input)
}

package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/barpos/barpos/internal/money"
	"github.com/barpos/barpos/internal/shared"
)

type memoryCatalogRepo struct {
	products   map[int64]Product
	containers map[int64]Container
	nextID     int64
}

func newMemoryCatalogRepo() *memoryCatalogRepo {
	return &memoryCatalogRepo{
		products:   make(map[int64]Product),
		containers: make(map[int64]Container),
	}
}

func (r *memoryCatalogRepo) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, ok := r.products[id]
	if !ok || p.Deleted {
		return Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (r *memoryCatalogRepo) ListProducts(ctx context.Context, page shared.Pagination) ([]Product, int, error) {
	var out []Product
	for _, p := range r.products {
		if !p.Deleted {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

func (r *memoryCatalogRepo) CreateProduct(ctx context.Context, input CreateProductInput) (Product, error) {
	r.nextID++
	p := Product{ID: r.nextID, Name: input.Name, Price: input.Price, OwnerID: input.OwnerID, Alcohol: input.Alcohol}
	r.products[p.ID] = p
	return p, nil
}

func (r *memoryCatalogRepo) UpdateProduct(ctx context.Context, id int64, input UpdateProductInput) (Product, error) {
	p, err := r.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if input.Name != nil {
		p.Name = *input.Name
	}
	if input.Price != nil {
		p.Price = *input.Price
	}
	if input.Alcohol != nil {
		p.Alcohol = *input.Alcohol
	}
	r.products[id] = p
	return p, nil
}

func (r *memoryCatalogRepo) DeleteProduct(ctx context.Context, id int64) error {
	p, err := r.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	p.Deleted = true
	r.products[id] = p
	return nil
}

func (r *memoryCatalogRepo) GetContainer(ctx context.Context, id int64) (Container, error) {
	c, ok := r.containers[id]
	if !ok {
		return Container{}, shared.ErrNotFound
	}
	return c, nil
}

func (r *memoryCatalogRepo) ListContainers(ctx context.Context, page shared.Pagination) ([]Container, int, error) {
	var out []Container
	for _, c := range r.containers {
		out = append(out, c)
	}
	return out, len(out), nil
}

func (r *memoryCatalogRepo) CreateContainer(ctx context.Context, input CreateContainerInput) (Container, error) {
	r.nextID++
	c := Container{ID: r.nextID, Name: input.Name, OwnerID: input.OwnerID, Public: input.Public, Products: input.Products}
	r.containers[c.ID] = c
	return c, nil
}

func (r *memoryCatalogRepo) GetPointOfSale(ctx context.Context, id int64) (PointOfSale, error) {
	return PointOfSale{}, shared.ErrNotFound
}

func (r *memoryCatalogRepo) ListPointsOfSale(ctx context.Context, page shared.Pagination) ([]PointOfSale, int, error) {
	return nil, 0, nil
}

func (r *memoryCatalogRepo) CreatePointOfSale(ctx context.Context, input CreatePointOfSaleInput) (PointOfSale, error) {
	r.nextID++
	return PointOfSale{ID: r.nextID, Name: input.Name, OwnerID: input.OwnerID,
		UseAuthentication: input.UseAuthentication, ContainerIDs: input.ContainerIDs}, nil
}

func TestCreateProductValidation(t *testing.T) {
	svc := NewService(newMemoryCatalogRepo())
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, CreateProductInput{Name: "  ", Price: money.New(100)})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateProduct(ctx, CreateProductInput{Name: "Beer", Price: money.New(-1)})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateProduct(ctx, CreateProductInput{
		Name:  "Beer",
		Price: money.Money{Amount: 100, Currency: "USD", Precision: 2},
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	p, err := svc.CreateProduct(ctx, CreateProductInput{Name: "Beer", Price: money.New(120), OwnerID: 3})
	require.NoError(t, err)
	require.Equal(t, int64(120), p.Price.Amount)
}

func TestCreateContainerRejectsUnknownAndDuplicateProducts(t *testing.T) {
	repo := newMemoryCatalogRepo()
	svc := NewService(repo)
	ctx := context.Background()

	beer, err := svc.CreateProduct(ctx, CreateProductInput{Name: "Beer", Price: money.New(120)})
	require.NoError(t, err)

	_, err = svc.CreateContainer(ctx, CreateContainerInput{
		Name:     "Drinks",
		Products: []ContainerProduct{{ProductID: 999}},
	})
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.CreateContainer(ctx, CreateContainerInput{
		Name:     "Drinks",
		Products: []ContainerProduct{{ProductID: beer.ID}, {ProductID: beer.ID}},
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	c, err := svc.CreateContainer(ctx, CreateContainerInput{
		Name:     "Drinks",
		Products: []ContainerProduct{{ProductID: beer.ID, Featured: true}},
	})
	require.NoError(t, err)
	require.Len(t, c.Products, 1)
}

func TestDeletedProductDisappears(t *testing.T) {
	repo := newMemoryCatalogRepo()
	svc := NewService(repo)
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, CreateProductInput{Name: "Wine", Price: money.New(300)})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteProduct(ctx, p.ID))

	_, err = svc.GetProduct(ctx, p.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)

	err = svc.DeleteProduct(ctx, p.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

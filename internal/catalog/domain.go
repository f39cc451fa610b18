package catalog

import (
	"time"

	"github.com/barpos/barpos/internal/money"
)

// Product is a sellable item owned by an organ.
type Product struct {
	ID        int64
	Name      string
	Price     money.Money
	OwnerID   int64
	Alcohol   bool
	Deleted   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Container groups products for display on a point of sale. Featured
// products sort before preferred ones, preferred before the rest.
type Container struct {
	ID        int64
	Name      string
	OwnerID   int64
	Public    bool
	Products  []ContainerProduct
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ContainerProduct is a product's placement within a container.
type ContainerProduct struct {
	ProductID int64
	Featured  bool
	Preferred bool
	Position  int
}

// PointOfSale is a named sales terminal.
type PointOfSale struct {
	ID                int64
	Name              string
	OwnerID           int64
	UseAuthentication bool
	ContainerIDs      []int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CreateProductInput carries fields for creating a product.
type CreateProductInput struct {
	Name    string
	Price   money.Money
	OwnerID int64
	Alcohol bool
}

// UpdateProductInput carries partial product updates.
type UpdateProductInput struct {
	Name    *string
	Price   *money.Money
	Alcohol *bool
}

// CreateContainerInput carries fields for creating a container.
type CreateContainerInput struct {
	Name     string
	OwnerID  int64
	Public   bool
	Products []ContainerProduct
}

// CreatePointOfSaleInput carries fields for creating a point of sale.
type CreatePointOfSaleInput struct {
	Name              string
	OwnerID           int64
	UseAuthentication bool
	ContainerIDs      []int64
}

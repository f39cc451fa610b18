package transactions

import (
	"time"

	"github.com/barpos/barpos/internal/money"
)

// Transaction is a point-of-sale purchase: value moves from the buyer
// to the seller, broken down into sub-transaction legs per product. The
// total always equals the sum of the legs.
type Transaction struct {
	ID            int64
	FromID        int64
	ToID          int64
	CreatedByID   int64
	PointOfSaleID int64
	Total         money.Money
	Subs          []SubTransaction
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SubTransaction is one product line within a transaction.
type SubTransaction struct {
	ID            int64
	TransactionID int64
	ProductID     int64
	Quantity      int
	Amount        money.Money // quantity * unit price
}

// CreateTransactionInput carries fields for creating a transaction.
type CreateTransactionInput struct {
	FromID        int64
	ToID          int64
	CreatedByID   int64
	PointOfSaleID int64
	Subs          []SubTransactionInput
}

// SubTransactionInput is one requested line.
type SubTransactionInput struct {
	ProductID int64
	Quantity  int
	Amount    money.Money
}

// Filter narrows transaction listings.
type Filter struct {
	FromID        int64
	ToID          int64
	PointOfSaleID int64
	FromDate      time.Time
	TillDate      time.Time
}

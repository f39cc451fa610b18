package transfers

import (
	"time"

	"github.com/barpos/barpos/internal/money"
)

// Transfer moves value directly between two accounts. Either side may
// be absent: a top-up has no source, a payout has no destination. The
// creation timestamp is the ordering key for balance reconstruction and
// is immutable after creation.
type Transfer struct {
	ID          int64
	FromID      int64 // zero when external
	ToID        int64 // zero when external
	Amount      money.Money
	Description string
	CreatedByID int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateTransferInput carries fields for creating a transfer.
type CreateTransferInput struct {
	FromID      int64
	ToID        int64
	Amount      money.Money
	Description string
	CreatedByID int64
}

// Filter narrows transfer listings.
type Filter struct {
	UserID   int64 // matches either side
	FromID   int64
	ToID     int64
	FromDate time.Time
	TillDate time.Time
}

// Aggregate summarises transfers over a window.
type Aggregate struct {
	Sum   money.Money
	Count int
}

package balance

import (
	"time"

	"github.com/barpos/barpos/internal/money"
)

// Entry is a single signed contribution to a user's balance: positive
// for incoming value, negative for outgoing value and fines.
type Entry struct {
	Amount    money.Money
	CreatedAt time.Time
}

// Balance is the derived monetary position of a user at a point in time.
// It is never persisted; it is recomputed from the contribution streams.
type Balance struct {
	UserID int64
	Amount money.Money
	AsOf   time.Time
}

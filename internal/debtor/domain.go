package debtor

import (
	"errors"
	"fmt"
	"time"

	"github.com/barpos/barpos/internal/money"
	"github.com/barpos/barpos/internal/shared"
)

// Typed errors for the fine lifecycle.
var (
	// ErrNoReferenceDates indicates an eligibility query without dates.
	ErrNoReferenceDates = fmt.Errorf("%w: at least one reference date required", shared.ErrValidation)
	// ErrNoActiveFines indicates a waive on a user without active fines.
	ErrNoActiveFines = errors.New("debtor: no active fines")
	// ErrFineAlreadyWaived indicates a repeated waive of a single fine.
	ErrFineAlreadyWaived = errors.New("debtor: fine already waived")
)

// Fine is a penalty bound to one handout event and one user. Lifecycle:
// created active, deactivated by a waive, otherwise immutable.
type Fine struct {
	ID        int64
	EventID   int64
	UserID    int64
	Amount    money.Money
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FineHandoutEvent is the immutable batch record of one handout run.
// Waiving marks contained fines inactive; the event itself never changes.
type FineHandoutEvent struct {
	ID            int64
	ReferenceDate time.Time
	CreatedByID   int64
	CreatedAt     time.Time
	Fines         []Fine
}

// UserFine pairs an eligible user with the fine computed for them.
type UserFine struct {
	UserID  int64
	Amount  money.Money
	Balance money.Money
}

// HandoutEventInput carries fields for creating a handout event.
type HandoutEventInput struct {
	ReferenceDate time.Time
	CreatedByID   int64
	CreatedAt     time.Time
}

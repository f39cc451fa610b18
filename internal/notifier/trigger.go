// Package notifier turns balance mutations into debt notifications.
// Write paths publish events on a channel; the trigger consumes them
// asynchronously so notification latency never sits on the write path.
package notifier

import (
	"context"
	"log/slog"

	"github.com/barpos/barpos/internal/money"
)

// BalanceMutation describes one balance-affecting write.
type BalanceMutation struct {
	UserID   int64
	Previous money.Money
	New      money.Money
}

// Dispatcher delivers debt notifications, best effort.
type Dispatcher interface {
	SendDebtNotice(ctx context.Context, userID int64, balance money.Money) error
}

// Trigger applies the edge-triggered debt rule: a notification fires
// only when a balance crosses from non-negative to negative. Staying in
// debt, leaving debt, or staying non-negative stays silent, so repeated
// writes on an already negative balance cannot spam the user.
type Trigger struct {
	dispatcher Dispatcher
	logger     *slog.Logger
	events     chan BalanceMutation
}

// NewTrigger constructs a Trigger with the given event buffer size.
func NewTrigger(dispatcher Dispatcher, logger *slog.Logger, buffer int) *Trigger {
	if logger == nil {
		logger = slog.Default()
	}
	if buffer <= 0 {
		buffer = 64
	}
	return &Trigger{
		dispatcher: dispatcher,
		logger:     logger,
		events:     make(chan BalanceMutation, buffer),
	}
}

// Publish hands a mutation to the trigger without blocking the caller.
// When the buffer is full the event is dropped and logged; losing a
// notification must never fail or delay the underlying write.
func (t *Trigger) Publish(m BalanceMutation) {
	select {
	case t.events <- m:
	default:
		t.logger.Warn("notification event dropped",
			slog.Int64("user_id", m.UserID))
	}
}

// Run consumes events until the context is cancelled, draining what is
// already buffered before returning.
func (t *Trigger) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case m := <-t.events:
					t.handle(context.Background(), m)
				default:
					return ctx.Err()
				}
			}
		case m := <-t.events:
			t.handle(ctx, m)
		}
	}
}

// Handle applies the rule synchronously. Exposed for callers that
// already run on a background goroutine.
func (t *Trigger) Handle(ctx context.Context, m BalanceMutation) {
	t.handle(ctx, m)
}

func (t *Trigger) handle(ctx context.Context, m BalanceMutation) {
	if !crossedIntoDebt(m.Previous, m.New) {
		return
	}
	if err := t.dispatcher.SendDebtNotice(ctx, m.UserID, m.New); err != nil {
		// Dispatch failures are logged, never propagated to the write.
		t.logger.Error("send debt notice",
			slog.Int64("user_id", m.UserID),
			slog.Any("error", err))
	}
}

func crossedIntoDebt(previous, current money.Money) bool {
	return previous.Amount >= 0 && current.Amount < 0
}

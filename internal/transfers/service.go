package transfers

import (
	"context"
	"fmt"
	"time"

	"github.com/barpos/barpos/internal/money"
	"github.com/barpos/barpos/internal/notifier"
	"github.com/barpos/barpos/internal/shared"
	"github.com/barpos/barpos/internal/users"
)

// RepositoryPort defines data access for transfers.
type RepositoryPort interface {
	CreateTransfer(ctx context.Context, input CreateTransferInput) (Transfer, error)
	ListTransfers(ctx context.Context, filter Filter, page shared.Pagination) ([]Transfer, int, error)
	AggregateTransfers(ctx context.Context, filter Filter) (Aggregate, error)
}

// BalanceSource reads current balances and invalidates cached ones.
type BalanceSource interface {
	GetBalance(ctx context.Context, userID int64, asOf time.Time) (money.Money, error)
	Invalidate(ctx context.Context, userID int64)
}

// UserDirectory verifies that referenced accounts exist.
type UserDirectory interface {
	VerifyUsersExist(ctx context.Context, ids []int64) (map[int64]users.User, error)
}

// Service handles transfer business logic. Every successful write hands
// a balance mutation to the trigger and drops the affected users'
// cached balances.
type Service struct {
	repo     RepositoryPort
	balances BalanceSource
	dir      UserDirectory
	trigger  *notifier.Trigger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, balances BalanceSource, dir UserDirectory, trigger *notifier.Trigger) *Service {
	return &Service{repo: repo, balances: balances, dir: dir, trigger: trigger}
}

// CreateTransfer validates and records a transfer, then publishes the
// resulting balance mutations.
func (s *Service) CreateTransfer(ctx context.Context, input CreateTransferInput) (Transfer, error) {
	if input.FromID == 0 && input.ToID == 0 {
		return Transfer{}, fmt.Errorf("%w: transfer needs a source or a destination", shared.ErrValidation)
	}
	if input.FromID != 0 && input.FromID == input.ToID {
		return Transfer{}, fmt.Errorf("%w: source and destination must differ", shared.ErrValidation)
	}
	if input.Amount.Amount <= 0 {
		return Transfer{}, fmt.Errorf("%w: amount must be positive", shared.ErrValidation)
	}
	if !input.Amount.SameUnit(money.Zero()) {
		return Transfer{}, fmt.Errorf("%w: amount must be %s with precision %d",
			shared.ErrValidation, money.DefaultCurrency, money.DefaultPrecision)
	}

	var ids []int64
	if input.FromID != 0 {
		ids = append(ids, input.FromID)
	}
	if input.ToID != 0 {
		ids = append(ids, input.ToID)
	}
	if _, err := s.dir.VerifyUsersExist(ctx, ids); err != nil {
		return Transfer{}, err
	}

	previous := make(map[int64]money.Money, len(ids))
	for _, id := range ids {
		bal, err := s.balances.GetBalance(ctx, id, time.Now())
		if err != nil {
			return Transfer{}, err
		}
		previous[id] = bal
	}

	transfer, err := s.repo.CreateTransfer(ctx, input)
	if err != nil {
		return Transfer{}, err
	}

	for _, id := range ids {
		s.balances.Invalidate(ctx, id)
		delta := transfer.Amount
		if id == transfer.FromID {
			delta = delta.Neg()
		}
		next, err := previous[id].Add(delta)
		if err != nil {
			// Unit mismatch was excluded above; keep the write result.
			continue
		}
		if s.trigger != nil {
			s.trigger.Publish(notifier.BalanceMutation{
				UserID:   id,
				Previous: previous[id],
				New:      next,
			})
		}
	}
	return transfer, nil
}

// ListTransfers returns transfers matching the filter.
func (s *Service) ListTransfers(ctx context.Context, filter Filter, page shared.Pagination) ([]Transfer, int, error) {
	return s.repo.ListTransfers(ctx, filter, page)
}

// AggregateTransfers sums transfers over a window.
func (s *Service) AggregateTransfers(ctx context.Context, filter Filter) (Aggregate, error) {
	return s.repo.AggregateTransfers(ctx, filter)
}

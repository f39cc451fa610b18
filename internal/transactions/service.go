package transactions

import (
	"context"
	"fmt"
	"time"

	"github.com/barpos/barpos/internal/money"
	"github.com/barpos/barpos/internal/notifier"
	"github.com/barpos/barpos/internal/shared"
	"github.com/barpos/barpos/internal/users"
)

// RepositoryPort defines data access for transactions.
type RepositoryPort interface {
	CreateTransaction(ctx context.Context, input CreateTransactionInput, total money.Money, createdAt time.Time) (Transaction, error)
	GetTransaction(ctx context.Context, id int64) (Transaction, error)
	ListTransactions(ctx context.Context, filter Filter, page shared.Pagination) ([]Transaction, int, error)
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

// Service handles purchase business logic.
type Service struct {
	repo     RepositoryPort
	balances BalanceSource
	dir      UserDirectory
	trigger  *notifier.Trigger
	now      func() time.Time
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, balances BalanceSource, dir UserDirectory, trigger *notifier.Trigger) *Service {
	return &Service{repo: repo, balances: balances, dir: dir, trigger: trigger, now: time.Now}
}

// CreateTransaction validates, persists the purchase atomically with
// its legs, then invalidates cached balances and publishes the two
// balance mutations.
func (s *Service) CreateTransaction(ctx context.Context, input CreateTransactionInput) (Transaction, error) {
	if input.FromID == 0 || input.ToID == 0 {
		return Transaction{}, fmt.Errorf("%w: transaction needs a buyer and a seller", shared.ErrValidation)
	}
	if input.FromID == input.ToID {
		return Transaction{}, fmt.Errorf("%w: buyer and seller must differ", shared.ErrValidation)
	}
	if len(input.Subs) == 0 {
		return Transaction{}, fmt.Errorf("%w: transaction needs at least one line", shared.ErrValidation)
	}

	total := money.Zero()
	for _, sub := range input.Subs {
		if sub.Quantity <= 0 {
			return Transaction{}, fmt.Errorf("%w: quantity must be positive", shared.ErrValidation)
		}
		if sub.Amount.Amount <= 0 {
			return Transaction{}, fmt.Errorf("%w: line amount must be positive", shared.ErrValidation)
		}
		next, err := total.Add(sub.Amount)
		if err != nil {
			return Transaction{}, fmt.Errorf("%w: line amount must be %s with precision %d",
				shared.ErrValidation, money.DefaultCurrency, money.DefaultPrecision)
		}
		total = next
	}

	if _, err := s.dir.VerifyUsersExist(ctx, []int64{input.FromID, input.ToID}); err != nil {
		return Transaction{}, err
	}

	previous := make(map[int64]money.Money, 2)
	for _, id := range []int64{input.FromID, input.ToID} {
		bal, err := s.balances.GetBalance(ctx, id, s.now())
		if err != nil {
			return Transaction{}, err
		}
		previous[id] = bal
	}

	txn, err := s.repo.CreateTransaction(ctx, input, total, s.now())
	if err != nil {
		return Transaction{}, err
	}

	for _, id := range []int64{txn.FromID, txn.ToID} {
		s.balances.Invalidate(ctx, id)
		delta := txn.Total
		if id == txn.FromID {
			delta = delta.Neg()
		}
		next, err := previous[id].Add(delta)
		if err != nil {
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
	return txn, nil
}

// GetTransaction fetches one transaction with its legs.
func (s *Service) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

// ListTransactions returns transactions matching the filter.
func (s *Service) ListTransactions(ctx context.Context, filter Filter, page shared.Pagination) ([]Transaction, int, error) {
	return s.repo.ListTransactions(ctx, filter, page)
}

package balance

import (
	"context"
	"time"

	"github.com/barpos/barpos/internal/money"
)

// RepositoryPort supplies the three contribution streams for a user.
// Every entry is already signed and filtered to createdAt <= asOf;
// waived fines are excluded.
type RepositoryPort interface {
	TransferEntries(ctx context.Context, userID int64, asOf time.Time) ([]Entry, error)
	TransactionEntries(ctx context.Context, userID int64, asOf time.Time) ([]Entry, error)
	FineEntries(ctx context.Context, userID int64, asOf time.Time) ([]Entry, error)
}

// Service computes point-in-time balances.
type Service struct {
	repo  RepositoryPort
	cache *Cache
}

// NewService builds a Service instance. The cache is optional.
func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// GetBalance returns the signed balance of a user as of the given time.
// All contributing entries must share one currency and precision; a
// mismatch surfaces as money.ErrCurrencyMismatch and is never coerced.
func (s *Service) GetBalance(ctx context.Context, userID int64, asOf time.Time) (money.Money, error) {
	return s.compute(ctx, userID, asOf)
}

// GetCurrentBalance returns the balance as of now, served from the
// cache when possible. Point-in-time queries bypass the cache so that
// historical results stay deterministic.
func (s *Service) GetCurrentBalance(ctx context.Context, userID int64) (money.Money, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, userID); ok {
			return cached, nil
		}
	}
	amount, err := s.compute(ctx, userID, time.Now())
	if err != nil {
		return money.Money{}, err
	}
	if s.cache != nil {
		s.cache.Put(ctx, userID, amount)
	}
	return amount, nil
}

// Invalidate drops the cached current balance after a write touching
// the user's financial entities.
func (s *Service) Invalidate(ctx context.Context, userID int64) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, userID)
	}
}

func (s *Service) compute(ctx context.Context, userID int64, asOf time.Time) (money.Money, error) {
	transfers, err := s.repo.TransferEntries(ctx, userID, asOf)
	if err != nil {
		return money.Money{}, err
	}
	transactions, err := s.repo.TransactionEntries(ctx, userID, asOf)
	if err != nil {
		return money.Money{}, err
	}
	fines, err := s.repo.FineEntries(ctx, userID, asOf)
	if err != nil {
		return money.Money{}, err
	}

	entries := make([]money.Money, 0, len(transfers)+len(transactions)+len(fines))
	for _, group := range [][]Entry{transfers, transactions, fines} {
		for _, e := range group {
			entries = append(entries, e.Amount)
		}
	}
	return money.Sum(entries)
}

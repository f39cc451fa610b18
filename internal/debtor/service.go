package debtor

import (
	"context"
	"log/slog"
	"time"

	"github.com/barpos/barpos/internal/money"
	"github.com/barpos/barpos/internal/shared"
	"github.com/barpos/barpos/internal/users"
)

// BalanceCalculator supplies point-in-time balances.
type BalanceCalculator interface {
	GetBalance(ctx context.Context, userID int64, asOf time.Time) (money.Money, error)
	Invalidate(ctx context.Context, userID int64)
}

// UserDirectory supplies user lookups for eligibility and handout.
type UserDirectory interface {
	VerifyUsersExist(ctx context.Context, ids []int64) (map[int64]users.User, error)
	ListUserIDsByTypes(ctx context.Context, types []users.UserType) ([]int64, error)
}

// WarningDispatcher enqueues future-fine warning notifications. Delivery
// is best effort; failures stay out of the calling write path.
type WarningDispatcher interface {
	EnqueueFineWarning(ctx context.Context, userID int64, fine, balance money.Money, referenceDate time.Time) error
}

// TxRepositoryPort exposes the operations that must share one
// transaction: the eligibility read and the fine writes. UserBalance
// reads through the same transaction, so "check eligibility, then write
// fine" is race-free against concurrent handouts for the same user.
type TxRepositoryPort interface {
	UserBalance(ctx context.Context, userID int64, asOf time.Time) (money.Money, error)
	InsertHandoutEvent(ctx context.Context, input HandoutEventInput) (FineHandoutEvent, error)
	InsertFine(ctx context.Context, eventID, userID int64, amount money.Money) (Fine, error)
}

// RepositoryPort defines data access for fines and handout events.
type RepositoryPort interface {
	InTx(ctx context.Context, fn func(TxRepositoryPort) error) error
	ListHandoutEvents(ctx context.Context, page shared.Pagination) ([]FineHandoutEvent, int, error)
	GetHandoutEvent(ctx context.Context, id int64) (FineHandoutEvent, error)
	GetFine(ctx context.Context, id int64) (Fine, error)
	ListActiveFines(ctx context.Context, userID int64) ([]Fine, error)
	DeactivateFine(ctx context.Context, fineID int64) error
	DeactivateFinesForUser(ctx context.Context, userID int64) (int, error)
}

// Service implements the fine engine.
type Service struct {
	repo     RepositoryPort
	balances BalanceCalculator
	dir      UserDirectory
	warnings WarningDispatcher
	schedule Schedule
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, balances BalanceCalculator, dir UserDirectory, warnings WarningDispatcher, schedule Schedule, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		balances: balances,
		dir:      dir,
		warnings: warnings,
		schedule: schedule,
		logger:   logger,
		now:      time.Now,
	}
}

// FindEligibleUsers returns every user (optionally restricted to the
// given types) who is past the debt threshold on every reference date,
// paired with the fine computed from the first date's balance.
func (s *Service) FindEligibleUsers(ctx context.Context, userTypes []users.UserType, referenceDates []time.Time) ([]UserFine, error) {
	if len(referenceDates) == 0 {
		return nil, ErrNoReferenceDates
	}
	ids, err := s.dir.ListUserIDsByTypes(ctx, userTypes)
	if err != nil {
		return nil, err
	}
	var out []UserFine
	for _, id := range ids {
		uf, eligible, err := s.eligibility(ctx, id, referenceDates)
		if err != nil {
			return nil, err
		}
		if eligible {
			out = append(out, uf)
		}
	}
	return out, nil
}

// eligibility checks every reference date and computes the fine from the
// primary (first) date's balance.
func (s *Service) eligibility(ctx context.Context, userID int64, referenceDates []time.Time) (UserFine, bool, error) {
	var primary money.Money
	for i, date := range referenceDates {
		bal, err := s.balances.GetBalance(ctx, userID, date)
		if err != nil {
			return UserFine{}, false, err
		}
		if !s.schedule.Eligible(bal) {
			return UserFine{}, false, nil
		}
		if i == 0 {
			primary = bal
		}
	}
	return UserFine{UserID: userID, Amount: s.schedule.FineFor(primary), Balance: primary}, true, nil
}

// HandOutFines creates one handout event with a fine for every listed
// user that is eligible on the reference date. Missing users are all
// collected into an UnknownUsersError before anything is written. The
// event and its fines persist atomically or not at all. Every call
// creates a new event; the caller guards against double handout.
func (s *Service) HandOutFines(ctx context.Context, userIDs []int64, referenceDate time.Time, actorID int64) (*FineHandoutEvent, error) {
	if referenceDate.IsZero() {
		referenceDate = s.now()
	}
	if _, err := s.dir.VerifyUsersExist(ctx, userIDs); err != nil {
		return nil, err
	}

	var event FineHandoutEvent
	err := s.repo.InTx(ctx, func(tx TxRepositoryPort) error {
		created, err := tx.InsertHandoutEvent(ctx, HandoutEventInput{
			ReferenceDate: referenceDate,
			CreatedByID:   actorID,
			CreatedAt:     s.now(),
		})
		if err != nil {
			return err
		}
		for _, id := range userIDs {
			bal, err := tx.UserBalance(ctx, id, referenceDate)
			if err != nil {
				return err
			}
			if !s.schedule.Eligible(bal) {
				continue // skipped silently, recorded as an event without a fine
			}
			fine, err := tx.InsertFine(ctx, created.ID, id, s.schedule.FineFor(bal))
			if err != nil {
				return err
			}
			created.Fines = append(created.Fines, fine)
		}
		event = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, fine := range event.Fines {
		s.balances.Invalidate(ctx, fine.UserID)
	}
	s.logger.Info("fines handed out",
		slog.Int64("event_id", event.ID),
		slog.Int("fines", len(event.Fines)),
		slog.Int64("actor_id", actorID))
	return &event, nil
}

// WaiveFines deactivates all active fines of a user. Fails with
// ErrNoActiveFines when the user has none.
func (s *Service) WaiveFines(ctx context.Context, userID int64) error {
	count, err := s.repo.DeactivateFinesForUser(ctx, userID)
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNoActiveFines
	}
	s.balances.Invalidate(ctx, userID)
	return nil
}

// WaiveFine deactivates a single fine. A repeated waive fails with
// ErrFineAlreadyWaived rather than being a no-op, so callers can tell
// the difference.
func (s *Service) WaiveFine(ctx context.Context, fineID int64) error {
	fine, err := s.repo.GetFine(ctx, fineID)
	if err != nil {
		return err
	}
	if !fine.Active {
		return ErrFineAlreadyWaived
	}
	if err := s.repo.DeactivateFine(ctx, fineID); err != nil {
		return err
	}
	s.balances.Invalidate(ctx, fine.UserID)
	return nil
}

// SendFineWarnings recomputes eligibility without writing fines and
// enqueues a warning per eligible user. Dispatch failures are logged and
// swallowed; they never fail the call.
func (s *Service) SendFineWarnings(ctx context.Context, userIDs []int64, referenceDate time.Time) error {
	if referenceDate.IsZero() {
		referenceDate = s.now()
	}
	if _, err := s.dir.VerifyUsersExist(ctx, userIDs); err != nil {
		return err
	}
	for _, id := range userIDs {
		uf, ok, err := s.eligibility(ctx, id, []time.Time{referenceDate})
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := s.warnings.EnqueueFineWarning(ctx, id, uf.Amount, uf.Balance, referenceDate); err != nil {
			s.logger.Warn("enqueue fine warning",
				slog.Int64("user_id", id),
				slog.Any("error", err))
		}
	}
	return nil
}

// GetHandoutEvent returns one event with its fines.
func (s *Service) GetHandoutEvent(ctx context.Context, id int64) (FineHandoutEvent, error) {
	return s.repo.GetHandoutEvent(ctx, id)
}

// ListHandoutEvents returns events ordered newest first.
func (s *Service) ListHandoutEvents(ctx context.Context, page shared.Pagination) ([]FineHandoutEvent, int, error) {
	return s.repo.ListHandoutEvents(ctx, page)
}

package transfers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/barpos/barpos/internal/money"
	"github.com/barpos/barpos/internal/notifier"
	"github.com/barpos/barpos/internal/shared"
	"github.com/barpos/barpos/internal/users"
)

type memoryTransferRepo struct {
	transfers []Transfer
	nextID    int64
}

func (r *memoryTransferRepo) CreateTransfer(ctx context.Context, input CreateTransferInput) (Transfer, error) {
	r.nextID++
	t := Transfer{
		ID:          r.nextID,
		FromID:      input.FromID,
		ToID:        input.ToID,
		Amount:      input.Amount,
		Description: input.Description,
		CreatedByID: input.CreatedByID,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	r.transfers = append(r.transfers, t)
	return t, nil
}

func (r *memoryTransferRepo) ListTransfers(ctx context.Context, filter Filter, page shared.Pagination) ([]Transfer, int, error) {
	var out []Transfer
	for _, t := range r.transfers {
		if filter.UserID != 0 && t.FromID != filter.UserID && t.ToID != filter.UserID {
			continue
		}
		out = append(out, t)
	}
	return out, len(out), nil
}

func (r *memoryTransferRepo) AggregateTransfers(ctx context.Context, filter Filter) (Aggregate, error) {
	agg := Aggregate{Sum: money.Zero()}
	for _, t := range r.transfers {
		agg.Sum.Amount += t.Amount.Amount
		agg.Count++
	}
	return agg, nil
}

type stubBalances struct {
	balances    map[int64]int64
	invalidated []int64
}

func (s *stubBalances) GetBalance(ctx context.Context, userID int64, asOf time.Time) (money.Money, error) {
	return money.New(s.balances[userID]), nil
}

func (s *stubBalances) Invalidate(ctx context.Context, userID int64) {
	s.invalidated = append(s.invalidated, userID)
}

type stubDirectory struct {
	known map[int64]bool
}

func (s *stubDirectory) VerifyUsersExist(ctx context.Context, ids []int64) (map[int64]users.User, error) {
	found := make(map[int64]users.User)
	var missing []int64
	for _, id := range ids {
		if s.known[id] {
			found[id] = users.User{ID: id}
		} else {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, &shared.UnknownUsersError{IDs: missing}
	}
	return found, nil
}

type captureDispatcher struct {
	notices []int64
}

func (d *captureDispatcher) SendDebtNotice(ctx context.Context, userID int64, balance money.Money) error {
	d.notices = append(d.notices, userID)
	return nil
}

func newTransferService(balances map[int64]int64, known ...int64) (*Service, *memoryTransferRepo, *stubBalances, *captureDispatcher, *notifier.Trigger) {
	repo := &memoryTransferRepo{}
	bals := &stubBalances{balances: balances}
	knownSet := make(map[int64]bool)
	for _, id := range known {
		knownSet[id] = true
	}
	dispatcher := &captureDispatcher{}
	trigger := notifier.NewTrigger(dispatcher, nil, 8)
	svc := NewService(repo, bals, &stubDirectory{known: knownSet}, trigger)
	return svc, repo, bals, dispatcher, trigger
}

func drain(t *testing.T, trigger *notifier.Trigger) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = trigger.Run(ctx)
}

func TestCreateTransferValidation(t *testing.T) {
	svc, _, _, _, _ := newTransferService(map[int64]int64{}, 1, 2)

	_, err := svc.CreateTransfer(context.Background(), CreateTransferInput{Amount: money.New(100)})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateTransfer(context.Background(), CreateTransferInput{FromID: 1, ToID: 2, Amount: money.New(0)})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateTransfer(context.Background(), CreateTransferInput{FromID: 1, ToID: 1, Amount: money.New(100)})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateTransfer(context.Background(), CreateTransferInput{
		FromID: 1, ToID: 2,
		Amount: money.Money{Amount: 100, Currency: "USD", Precision: 2},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateTransferUnknownUser(t *testing.T) {
	svc, repo, _, _, _ := newTransferService(map[int64]int64{}, 1)

	_, err := svc.CreateTransfer(context.Background(), CreateTransferInput{
		FromID: 1, ToID: 99, Amount: money.New(100),
	})
	var unknown *shared.UnknownUsersError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, []int64{99}, unknown.IDs)
	require.Empty(t, repo.transfers)
}

func TestCreateTransferInvalidatesAndNotifies(t *testing.T) {
	// User 1 holds 50 cents; an outgoing transfer of 100 pushes them
	// into debt, which must fire exactly one notification.
	svc, repo, bals, dispatcher, trigger := newTransferService(map[int64]int64{1: 50, 2: 0}, 1, 2)

	transfer, err := svc.CreateTransfer(context.Background(), CreateTransferInput{
		FromID: 1, ToID: 2, Amount: money.New(100), CreatedByID: 1,
	})
	require.NoError(t, err)
	require.Len(t, repo.transfers, 1)
	require.ElementsMatch(t, []int64{1, 2}, bals.invalidated)
	require.Equal(t, int64(100), transfer.Amount.Amount)

	drain(t, trigger)
	require.Equal(t, []int64{1}, dispatcher.notices)
}

func TestCreateTransferTopUpNoNotification(t *testing.T) {
	svc, _, _, dispatcher, trigger := newTransferService(map[int64]int64{1: -300}, 1)

	// External top-up: no source account.
	_, err := svc.CreateTransfer(context.Background(), CreateTransferInput{
		ToID: 1, Amount: money.New(500), CreatedByID: 1,
	})
	require.NoError(t, err)

	drain(t, trigger)
	require.Empty(t, dispatcher.notices, "leaving debt is not a crossing")
}

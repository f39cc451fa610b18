package transactions

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

type memoryTransactionRepo struct {
	transactions []Transaction
	nextID       int64
}

func (r *memoryTransactionRepo) CreateTransaction(ctx context.Context, input CreateTransactionInput, total money.Money, createdAt time.Time) (Transaction, error) {
	r.nextID++
	txn := Transaction{
		ID:            r.nextID,
		FromID:        input.FromID,
		ToID:          input.ToID,
		CreatedByID:   input.CreatedByID,
		PointOfSaleID: input.PointOfSaleID,
		Total:         total,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
	for i, sub := range input.Subs {
		txn.Subs = append(txn.Subs, SubTransaction{
			ID:            r.nextID*100 + int64(i),
			TransactionID: txn.ID,
			ProductID:     sub.ProductID,
			Quantity:      sub.Quantity,
			Amount:        sub.Amount,
		})
	}
	r.transactions = append(r.transactions, txn)
	return txn, nil
}

func (r *memoryTransactionRepo) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	for _, t := range r.transactions {
		if t.ID == id {
			return t, nil
		}
	}
	return Transaction{}, shared.ErrNotFound
}

func (r *memoryTransactionRepo) ListTransactions(ctx context.Context, filter Filter, page shared.Pagination) ([]Transaction, int, error) {
	return r.transactions, len(r.transactions), nil
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

func newTestService(balances map[int64]int64, known ...int64) (*Service, *memoryTransactionRepo, *stubBalances, *captureDispatcher, *notifier.Trigger) {
	repo := &memoryTransactionRepo{}
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

func drainTrigger(t *testing.T, trigger *notifier.Trigger) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = trigger.Run(ctx)
}

func lines(amounts ...int64) []SubTransactionInput {
	var subs []SubTransactionInput
	for i, a := range amounts {
		subs = append(subs, SubTransactionInput{ProductID: int64(i + 1), Quantity: 1, Amount: money.New(a)})
	}
	return subs
}

func TestCreateTransactionValidation(t *testing.T) {
	svc, _, _, _, _ := newTestService(map[int64]int64{}, 1, 2)
	ctx := context.Background()

	_, err := svc.CreateTransaction(ctx, CreateTransactionInput{ToID: 2, Subs: lines(100)})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateTransaction(ctx, CreateTransactionInput{FromID: 1, ToID: 1, Subs: lines(100)})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateTransaction(ctx, CreateTransactionInput{FromID: 1, ToID: 2})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateTransaction(ctx, CreateTransactionInput{
		FromID: 1, ToID: 2,
		Subs: []SubTransactionInput{{ProductID: 1, Quantity: 0, Amount: money.New(100)}},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateTransactionTotalEqualsLegSum(t *testing.T) {
	svc, repo, _, _, _ := newTestService(map[int64]int64{1: 1000}, 1, 2)

	txn, err := svc.CreateTransaction(context.Background(), CreateTransactionInput{
		FromID: 1, ToID: 2, CreatedByID: 1, Subs: lines(120, 250, 80),
	})
	require.NoError(t, err)
	require.Equal(t, int64(450), txn.Total.Amount)
	require.Len(t, repo.transactions, 1)

	sum := money.Zero()
	for _, s := range txn.Subs {
		sum, err = sum.Add(s.Amount)
		require.NoError(t, err)
	}
	require.Equal(t, txn.Total, sum)
}

func TestCreateTransactionUnknownUsers(t *testing.T) {
	svc, repo, _, _, _ := newTestService(map[int64]int64{})

	_, err := svc.CreateTransaction(context.Background(), CreateTransactionInput{
		FromID: 7, ToID: 8, Subs: lines(100),
	})
	var unknown *shared.UnknownUsersError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, []int64{7, 8}, unknown.IDs)
	require.Empty(t, repo.transactions)
}

func TestCreateTransactionNotifiesOnDebtCrossing(t *testing.T) {
	// Buyer holds 100 cents and spends 450, crossing into debt.
	svc, _, bals, dispatcher, trigger := newTestService(map[int64]int64{1: 100, 2: 5000}, 1, 2)

	_, err := svc.CreateTransaction(context.Background(), CreateTransactionInput{
		FromID: 1, ToID: 2, CreatedByID: 1, Subs: lines(450),
	})
	require.NoError(t, err)
	require.ElementsMatch(t, []int64{1, 2}, bals.invalidated)

	drainTrigger(t, trigger)
	require.Equal(t, []int64{1}, dispatcher.notices)
}

func TestCreateTransactionAlreadyInDebtStaysSilent(t *testing.T) {
	svc, _, _, dispatcher, trigger := newTestService(map[int64]int64{1: -200, 2: 0}, 1, 2)

	_, err := svc.CreateTransaction(context.Background(), CreateTransactionInput{
		FromID: 1, ToID: 2, CreatedByID: 1, Subs: lines(100),
	})
	require.NoError(t, err)

	drainTrigger(t, trigger)
	require.Empty(t, dispatcher.notices)
}

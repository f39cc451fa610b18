package debtor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/barpos/barpos/internal/money"
	"github.com/barpos/barpos/internal/shared"
	"github.com/barpos/barpos/internal/users"
)

// balancePoint is a stepwise balance timeline: the balance at time t is
// the value of the latest point at or before t.
type balancePoint struct {
	at     time.Time
	amount int64
}

type fakeBalances struct {
	timelines    map[int64][]balancePoint
	invalidated  []int64
	currencyBomb bool
}

func newFakeBalances() *fakeBalances {
	return &fakeBalances{timelines: make(map[int64][]balancePoint)}
}

func (f *fakeBalances) set(userID int64, at time.Time, amount int64) {
	f.timelines[userID] = append(f.timelines[userID], balancePoint{at: at, amount: amount})
}

func (f *fakeBalances) GetBalance(ctx context.Context, userID int64, asOf time.Time) (money.Money, error) {
	if f.currencyBomb {
		return money.Money{}, money.ErrCurrencyMismatch
	}
	var amount int64
	for _, p := range f.timelines[userID] {
		if !p.at.After(asOf) {
			amount = p.amount
		}
	}
	return money.New(amount), nil
}

func (f *fakeBalances) Invalidate(ctx context.Context, userID int64) {
	f.invalidated = append(f.invalidated, userID)
}

type fakeDirectory struct {
	users map[int64]users.User
}

func newFakeDirectory(ids ...int64) *fakeDirectory {
	d := &fakeDirectory{users: make(map[int64]users.User)}
	for _, id := range ids {
		d.users[id] = users.User{ID: id, Type: users.TypeMember, Active: true}
	}
	return d
}

func (d *fakeDirectory) VerifyUsersExist(ctx context.Context, ids []int64) (map[int64]users.User, error) {
	found := make(map[int64]users.User)
	var missing []int64
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			found[id] = u
		} else {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, &shared.UnknownUsersError{IDs: missing}
	}
	return found, nil
}

func (d *fakeDirectory) ListUserIDsByTypes(ctx context.Context, types []users.UserType) ([]int64, error) {
	var ids []int64
	for id, u := range d.users {
		if len(types) == 0 {
			ids = append(ids, id)
			continue
		}
		for _, t := range types {
			if u.Type == t {
				ids = append(ids, id)
				break
			}
		}
	}
	return ids, nil
}

type warningCall struct {
	userID int64
	fine   money.Money
}

type fakeWarnings struct {
	calls []warningCall
	err   error
}

func (f *fakeWarnings) EnqueueFineWarning(ctx context.Context, userID int64, fine, balance money.Money, referenceDate time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, warningCall{userID: userID, fine: fine})
	return nil
}

// memoryFineRepo implements RepositoryPort with snapshot/rollback
// transactions so atomicity can be exercised without a database.
type memoryFineRepo struct {
	balances    *fakeBalances
	events      map[int64]FineHandoutEvent
	fines       map[int64]Fine
	nextEventID int64
	nextFineID  int64

	failAfterNFineInserts int // 0 disables the injected failure
}

func newMemoryFineRepo(balances *fakeBalances) *memoryFineRepo {
	return &memoryFineRepo{
		balances: balances,
		events:   make(map[int64]FineHandoutEvent),
		fines:    make(map[int64]Fine),
	}
}

type memoryTx struct {
	repo        *memoryFineRepo
	fineInserts int
}

var errInjected = errors.New("injected failure")

func (r *memoryFineRepo) InTx(ctx context.Context, fn func(TxRepositoryPort) error) error {
	snapshotEvents := make(map[int64]FineHandoutEvent, len(r.events))
	for k, v := range r.events {
		snapshotEvents[k] = v
	}
	snapshotFines := make(map[int64]Fine, len(r.fines))
	for k, v := range r.fines {
		snapshotFines[k] = v
	}
	snapEventID, snapFineID := r.nextEventID, r.nextFineID

	if err := fn(&memoryTx{repo: r}); err != nil {
		r.events = snapshotEvents
		r.fines = snapshotFines
		r.nextEventID, r.nextFineID = snapEventID, snapFineID
		return err
	}
	return nil
}

func (t *memoryTx) UserBalance(ctx context.Context, userID int64, asOf time.Time) (money.Money, error) {
	return t.repo.balances.GetBalance(ctx, userID, asOf)
}

func (t *memoryTx) InsertHandoutEvent(ctx context.Context, input HandoutEventInput) (FineHandoutEvent, error) {
	t.repo.nextEventID++
	evt := FineHandoutEvent{
		ID:            t.repo.nextEventID,
		ReferenceDate: input.ReferenceDate,
		CreatedByID:   input.CreatedByID,
		CreatedAt:     input.CreatedAt,
	}
	t.repo.events[evt.ID] = evt
	return evt, nil
}

func (t *memoryTx) InsertFine(ctx context.Context, eventID, userID int64, amount money.Money) (Fine, error) {
	if t.repo.failAfterNFineInserts > 0 && t.fineInserts >= t.repo.failAfterNFineInserts {
		return Fine{}, errInjected
	}
	t.fineInserts++
	t.repo.nextFineID++
	f := Fine{
		ID:        t.repo.nextFineID,
		EventID:   eventID,
		UserID:    userID,
		Amount:    amount,
		Active:    true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	t.repo.fines[f.ID] = f
	return f, nil
}

func (r *memoryFineRepo) ListHandoutEvents(ctx context.Context, page shared.Pagination) ([]FineHandoutEvent, int, error) {
	var out []FineHandoutEvent
	for _, evt := range r.events {
		out = append(out, r.withFines(evt))
	}
	return out, len(out), nil
}

func (r *memoryFineRepo) withFines(evt FineHandoutEvent) FineHandoutEvent {
	evt.Fines = nil
	for _, f := range r.fines {
		if f.EventID == evt.ID {
			evt.Fines = append(evt.Fines, f)
		}
	}
	return evt
}

func (r *memoryFineRepo) GetHandoutEvent(ctx context.Context, id int64) (FineHandoutEvent, error) {
	evt, ok := r.events[id]
	if !ok {
		return FineHandoutEvent{}, shared.ErrNotFound
	}
	return r.withFines(evt), nil
}

func (r *memoryFineRepo) GetFine(ctx context.Context, id int64) (Fine, error) {
	f, ok := r.fines[id]
	if !ok {
		return Fine{}, shared.ErrNotFound
	}
	return f, nil
}

func (r *memoryFineRepo) ListActiveFines(ctx context.Context, userID int64) ([]Fine, error) {
	var out []Fine
	for _, f := range r.fines {
		if f.UserID == userID && f.Active {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *memoryFineRepo) DeactivateFine(ctx context.Context, fineID int64) error {
	f, ok := r.fines[fineID]
	if !ok || !f.Active {
		return shared.ErrNotFound
	}
	f.Active = false
	r.fines[fineID] = f
	return nil
}

func (r *memoryFineRepo) DeactivateFinesForUser(ctx context.Context, userID int64) (int, error) {
	count := 0
	for id, f := range r.fines {
		if f.UserID == userID && f.Active {
			f.Active = false
			r.fines[id] = f
			count++
		}
	}
	return count, nil
}

func ref(day int) time.Time {
	return time.Date(2024, time.January, day, 0, 0, 0, 0, time.UTC)
}

func newTestService(t *testing.T, balances *fakeBalances, dir *fakeDirectory) (*Service, *memoryFineRepo, *fakeWarnings) {
	t.Helper()
	repo := newMemoryFineRepo(balances)
	warnings := &fakeWarnings{}
	svc := NewService(repo, balances, dir, warnings, DefaultSchedule(), nil)
	return svc, repo, warnings
}

func TestFindEligibleRequiresDates(t *testing.T) {
	svc, _, _ := newTestService(t, newFakeBalances(), newFakeDirectory(1))
	_, err := svc.FindEligibleUsers(context.Background(), nil, nil)
	require.ErrorIs(t, err, ErrNoReferenceDates)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestFindEligibleEveryDateMustQualify(t *testing.T) {
	balances := newFakeBalances()
	// In debt on both dates.
	balances.set(1, ref(1), -600)
	// In debt on the first date, recovered by the second.
	balances.set(2, ref(1), -600)
	balances.set(2, ref(5), -100)

	svc, _, _ := newTestService(t, balances, newFakeDirectory(1, 2))
	eligible, err := svc.FindEligibleUsers(context.Background(), nil, []time.Time{ref(1), ref(8)})
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	require.Equal(t, int64(1), eligible[0].UserID)
	require.Equal(t, int64(-600), eligible[0].Balance.Amount)
	// -600 falls in the first tier of the default schedule.
	require.Equal(t, int64(100), eligible[0].Amount.Amount)
}

func TestFindEligibleFineFromPrimaryDate(t *testing.T) {
	balances := newFakeBalances()
	balances.set(1, ref(1), -2600) // deep debt on the primary date
	balances.set(1, ref(5), -600)  // still past threshold on the second

	svc, _, _ := newTestService(t, balances, newFakeDirectory(1))
	eligible, err := svc.FindEligibleUsers(context.Background(), nil, []time.Time{ref(1), ref(8)})
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	require.Equal(t, int64(500), eligible[0].Amount.Amount)
}

func TestFindEligibleFiltersByType(t *testing.T) {
	balances := newFakeBalances()
	balances.set(1, ref(1), -600)
	balances.set(2, ref(1), -600)

	dir := newFakeDirectory(1, 2)
	organ := dir.users[2]
	organ.Type = users.TypeOrgan
	dir.users[2] = organ

	svc, _, _ := newTestService(t, balances, dir)
	eligible, err := svc.FindEligibleUsers(context.Background(), []users.UserType{users.TypeMember}, []time.Time{ref(1)})
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	require.Equal(t, int64(1), eligible[0].UserID)
}

func TestHandOutFinesCreatesEventAndFines(t *testing.T) {
	balances := newFakeBalances()
	balances.set(1, ref(1), -600)
	balances.set(2, ref(1), 100) // not eligible, skipped silently
	balances.set(3, ref(1), -1200)

	svc, repo, _ := newTestService(t, balances, newFakeDirectory(1, 2, 3))
	evt, err := svc.HandOutFines(context.Background(), []int64{1, 2, 3}, ref(8), 42)
	require.NoError(t, err)
	require.Len(t, evt.Fines, 2)
	require.Equal(t, int64(42), evt.CreatedByID)
	require.Equal(t, ref(8), evt.ReferenceDate)

	stored, err := repo.GetHandoutEvent(context.Background(), evt.ID)
	require.NoError(t, err)
	require.Len(t, stored.Fines, 2)

	// Fined users' cached balances were invalidated.
	require.ElementsMatch(t, []int64{1, 3}, balances.invalidated)
}

func TestHandOutFinesCollectsAllUnknownUsers(t *testing.T) {
	svc, repo, _ := newTestService(t, newFakeBalances(), newFakeDirectory(1))
	_, err := svc.HandOutFines(context.Background(), []int64{1, 7, 9}, ref(1), 42)

	var unknown *shared.UnknownUsersError
	require.ErrorAs(t, err, &unknown)
	require.ElementsMatch(t, []int64{7, 9}, unknown.IDs)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Empty(t, repo.events)
}

func TestHandOutFinesAtomic(t *testing.T) {
	balances := newFakeBalances()
	balances.set(1, ref(1), -600)
	balances.set(2, ref(1), -600)
	balances.set(3, ref(1), -600)

	svc, repo, _ := newTestService(t, balances, newFakeDirectory(1, 2, 3))
	repo.failAfterNFineInserts = 2

	_, err := svc.HandOutFines(context.Background(), []int64{1, 2, 3}, ref(1), 42)
	require.ErrorIs(t, err, errInjected)
	require.Empty(t, repo.fines, "no partial fines may survive a failed handout")
	require.Empty(t, repo.events, "the event must roll back with its fines")
}

func TestHandOutFinesEachCallCreatesNewEvent(t *testing.T) {
	balances := newFakeBalances()
	balances.set(1, ref(1), -600)

	svc, repo, _ := newTestService(t, balances, newFakeDirectory(1))
	first, err := svc.HandOutFines(context.Background(), []int64{1}, ref(1), 42)
	require.NoError(t, err)
	second, err := svc.HandOutFines(context.Background(), []int64{1}, ref(1), 42)
	require.NoError(t, err)

	require.NotEqual(t, first.ID, second.ID)
	require.Len(t, repo.fines, 2)
}

func TestWaiveFines(t *testing.T) {
	balances := newFakeBalances()
	balances.set(1, ref(1), -600)

	svc, repo, _ := newTestService(t, balances, newFakeDirectory(1))
	_, err := svc.HandOutFines(context.Background(), []int64{1}, ref(1), 42)
	require.NoError(t, err)

	require.NoError(t, svc.WaiveFines(context.Background(), 1))
	active, err := repo.ListActiveFines(context.Background(), 1)
	require.NoError(t, err)
	require.Empty(t, active)

	// Second waive finds nothing.
	require.ErrorIs(t, svc.WaiveFines(context.Background(), 1), ErrNoActiveFines)
}

func TestWaiveFinesWithoutFines(t *testing.T) {
	svc, _, _ := newTestService(t, newFakeBalances(), newFakeDirectory(1))
	require.ErrorIs(t, svc.WaiveFines(context.Background(), 1), ErrNoActiveFines)
}

func TestWaiveSingleFineTwice(t *testing.T) {
	balances := newFakeBalances()
	balances.set(1, ref(1), -600)

	svc, repo, _ := newTestService(t, balances, newFakeDirectory(1))
	evt, err := svc.HandOutFines(context.Background(), []int64{1}, ref(1), 42)
	require.NoError(t, err)
	fineID := evt.Fines[0].ID

	require.NoError(t, svc.WaiveFine(context.Background(), fineID))
	require.ErrorIs(t, svc.WaiveFine(context.Background(), fineID), ErrFineAlreadyWaived)

	f, err := repo.GetFine(context.Background(), fineID)
	require.NoError(t, err)
	require.False(t, f.Active)
}

func TestSendFineWarnings(t *testing.T) {
	balances := newFakeBalances()
	balances.set(1, ref(1), -600)
	balances.set(2, ref(1), 50)

	svc, repo, warnings := newTestService(t, balances, newFakeDirectory(1, 2))
	err := svc.SendFineWarnings(context.Background(), []int64{1, 2}, ref(1))
	require.NoError(t, err)

	require.Len(t, warnings.calls, 1)
	require.Equal(t, int64(1), warnings.calls[0].userID)
	require.Equal(t, int64(100), warnings.calls[0].fine.Amount)
	require.Empty(t, repo.fines, "warnings must not create fines")
}

func TestSendFineWarningsDispatchFailureIsSwallowed(t *testing.T) {
	balances := newFakeBalances()
	balances.set(1, ref(1), -600)

	svc, _, warnings := newTestService(t, balances, newFakeDirectory(1))
	warnings.err = errors.New("smtp down")
	require.NoError(t, svc.SendFineWarnings(context.Background(), []int64{1}, ref(1)))
}

func TestSendFineWarningsUnknownUsers(t *testing.T) {
	balances := newFakeBalances()
	balances.set(1, ref(1), -600)

	svc, _, warnings := newTestService(t, balances, newFakeDirectory(1))
	err := svc.SendFineWarnings(context.Background(), []int64{1, 99}, ref(1))

	var unknown *shared.UnknownUsersError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, []int64{99}, unknown.IDs)
	require.Empty(t, warnings.calls)
}

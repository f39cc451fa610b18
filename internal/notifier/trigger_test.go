package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/barpos/barpos/internal/money"
)

type recordingDispatcher struct {
	mu      sync.Mutex
	notices []int64
	err     error
}

func (d *recordingDispatcher) SendDebtNotice(ctx context.Context, userID int64, balance money.Money) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.notices = append(d.notices, userID)
	return nil
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.notices)
}

func applySequence(t *testing.T, trig *Trigger, balances []int64) {
	t.Helper()
	for i := 1; i < len(balances); i++ {
		trig.Handle(context.Background(), BalanceMutation{
			UserID:   1,
			Previous: money.New(balances[i-1]),
			New:      money.New(balances[i]),
		})
	}
}

func TestEdgeTriggeredSequences(t *testing.T) {
	cases := []struct {
		name     string
		balances []int64
		notices  int
	}{
		{"single crossing", []int64{5, -3, -7, 2}, 1},
		{"already in debt", []int64{-3, -7}, 0},
		{"leaving debt", []int64{-3, 2}, 0},
		{"staying positive", []int64{5, 3, 8}, 0},
		{"zero boundary", []int64{0, -1}, 1},
		{"repeated crossings", []int64{5, -1, 3, -2}, 2},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			dispatcher := &recordingDispatcher{}
			trig := NewTrigger(dispatcher, nil, 8)
			applySequence(t, trig, c.balances)
			require.Equal(t, c.notices, dispatcher.count())
		})
	}
}

func TestDispatchFailureDoesNotPropagate(t *testing.T) {
	dispatcher := &recordingDispatcher{err: errors.New("transport down")}
	trig := NewTrigger(dispatcher, nil, 8)

	// Must not panic or surface the error anywhere.
	trig.Handle(context.Background(), BalanceMutation{
		UserID:   1,
		Previous: money.New(5),
		New:      money.New(-3),
	})
}

func TestRunConsumesPublishedEvents(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	trig := NewTrigger(dispatcher, nil, 8)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = trig.Run(ctx)
		close(done)
	}()

	trig.Publish(BalanceMutation{UserID: 1, Previous: money.New(5), New: money.New(-3)})
	trig.Publish(BalanceMutation{UserID: 1, Previous: money.New(-3), New: money.New(-7)})

	require.Eventually(t, func() bool { return dispatcher.count() == 1 },
		time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestRunDrainsBufferOnShutdown(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	trig := NewTrigger(dispatcher, nil, 8)

	trig.Publish(BalanceMutation{UserID: 1, Previous: money.New(5), New: money.New(-3)})
	trig.Publish(BalanceMutation{UserID: 2, Previous: money.New(1), New: money.New(-1)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := trig.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 2, dispatcher.count())
}

func TestPublishNeverBlocks(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	trig := NewTrigger(dispatcher, nil, 1)

	// Overflow the buffer without a consumer; Publish must return.
	for i := 0; i < 10; i++ {
		trig.Publish(BalanceMutation{UserID: int64(i), Previous: money.New(5), New: money.New(-3)})
	}
}

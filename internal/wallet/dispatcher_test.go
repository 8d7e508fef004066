package wallet

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/wallet_api/internal/ledger"
)

// gatedApplier blocks every Apply until release is closed and records the
// highest number of concurrent calls.
type gatedApplier struct {
	release  chan struct{}
	inFlight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
}

func newGatedApplier() *gatedApplier {
	return &gatedApplier{release: make(chan struct{})}
}

func (g *gatedApplier) Apply(ctx context.Context, op Operation) (ledger.Wallet, error) {
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	g.calls.Add(1)
	for {
		peak := g.peak.Load()
		if n <= peak || g.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	<-g.release
	if err := ctx.Err(); err != nil {
		return ledger.Wallet{}, err
	}
	return ledger.Wallet{ID: op.WalletID, Balance: op.Amount, Version: 1}, nil
}

func TestDispatcher_AwaitReturnsEngineResult(t *testing.T) {
	engine := NewEngine(ledger.NewInMemory(), NewMemoryCache(), nil)
	d := NewDispatcher(engine, 4)
	id := uuid.New()

	w, err := d.Submit(context.Background(), deposit(id, 75)).Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(75), w.Balance)

	f := d.Submit(context.Background(), withdraw(id, 100))
	require.ErrorIs(t, f.Err(), ErrInsufficientFunds)

	require.NoError(t, d.Close(context.Background()))
}

func TestDispatcher_BoundsConcurrency(t *testing.T) {
	applier := newGatedApplier()
	d := NewDispatcher(applier, 3)

	futures := make([]*Future, 10)
	for i := range futures {
		futures[i] = d.Submit(context.Background(), deposit(uuid.New(), 1))
	}

	require.Eventually(t, func() bool { return applier.inFlight.Load() == 3 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(3), applier.inFlight.Load())

	close(applier.release)
	for _, f := range futures {
		require.NoError(t, f.Err())
	}
	assert.Equal(t, int32(3), applier.peak.Load())
	assert.Equal(t, int32(10), applier.calls.Load())
}

func TestDispatcher_OperationOutlivesSubmitter(t *testing.T) {
	applier := newGatedApplier()
	d := NewDispatcher(applier, 1)

	ctx, cancel := context.WithCancel(context.Background())
	f := d.Submit(ctx, deposit(uuid.New(), 5))
	require.Eventually(t, func() bool { return applier.inFlight.Load() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	_, err := f.Await(ctx)
	require.ErrorIs(t, err, context.Canceled)

	close(applier.release)
	select {
	case <-f.Done():
	case <-time.After(time.Second):
		t.Fatal("operation did not complete")
	}
	require.NoError(t, f.Err(), "started operations are not cancelled with the request")
}

func TestDispatcher_CancelWhileQueued(t *testing.T) {
	applier := newGatedApplier()
	d := NewDispatcher(applier, 1)

	first := d.Submit(context.Background(), deposit(uuid.New(), 1))
	require.Eventually(t, func() bool { return applier.inFlight.Load() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	queued := d.Submit(ctx, deposit(uuid.New(), 1))
	cancel()
	require.ErrorIs(t, queued.Err(), context.Canceled)

	close(applier.release)
	require.NoError(t, first.Err())
	assert.Equal(t, int32(1), applier.calls.Load())
}

func TestDispatcher_CloseRejectsNewWorkAndDrains(t *testing.T) {
	applier := newGatedApplier()
	d := NewDispatcher(applier, 2)

	inflight := d.Submit(context.Background(), deposit(uuid.New(), 1))
	require.Eventually(t, func() bool { return applier.inFlight.Load() == 1 }, time.Second, 5*time.Millisecond)

	var wg sync.WaitGroup
	var closeErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		closeErr = d.Close(context.Background())
	}()

	require.Eventually(t, func() bool {
		d.mu.RLock()
		defer d.mu.RUnlock()
		return d.closed
	}, time.Second, 5*time.Millisecond)
	require.ErrorIs(t, d.Submit(context.Background(), deposit(uuid.New(), 1)).Err(), ErrDispatcherClosed)

	close(applier.release)
	wg.Wait()
	require.NoError(t, closeErr)
	require.NoError(t, inflight.Err())
}

func TestDispatcher_CloseHonoursDeadline(t *testing.T) {
	applier := newGatedApplier()
	d := NewDispatcher(applier, 1)
	f := d.Submit(context.Background(), deposit(uuid.New(), 1))
	require.Eventually(t, func() bool { return applier.inFlight.Load() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)

	close(applier.release)
	require.NoError(t, f.Err())
}

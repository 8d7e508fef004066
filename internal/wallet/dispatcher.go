package wallet

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/congo-pay/wallet_api/internal/ledger"
)

// Applier is implemented by Engine.
type Applier interface {
	Apply(ctx context.Context, op Operation) (ledger.Wallet, error)
}

// Dispatcher runs operations off the request goroutine with at most `workers`
// operations applying at once.
type Dispatcher struct {
	applier Applier
	sem     *semaphore.Weighted

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher builds a dispatcher in front of applier.
func NewDispatcher(applier Applier, workers int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{applier: applier, sem: semaphore.NewWeighted(int64(workers))}
}

// Submit schedules op and returns immediately. ctx only bounds the wait for a
// free worker; once started, the operation runs to completion even if the
// submitter goes away.
func (d *Dispatcher) Submit(ctx context.Context, op Operation) *Future {
	f := &Future{done: make(chan struct{})}

	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		f.resolve(ledger.Wallet{}, ErrDispatcherClosed)
		return f
	}
	d.wg.Add(1)
	d.mu.RUnlock()

	go func() {
		defer d.wg.Done()
		if err := d.sem.Acquire(ctx, 1); err != nil {
			f.resolve(ledger.Wallet{}, err)
			return
		}
		defer d.sem.Release(1)

		f.resolve(d.applier.Apply(context.WithoutCancel(ctx), op))
	}()
	return f
}

// Close stops accepting work and waits for in-flight operations or ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Future is the pending result of a submitted operation.
type Future struct {
	done   chan struct{}
	wallet ledger.Wallet
	err    error
}

func (f *Future) resolve(w ledger.Wallet, err error) {
	f.wallet, f.err = w, err
	close(f.done)
}

// Done is closed once the operation has completed.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the operation completes or ctx is done. Giving up on the
// wait does not cancel the operation.
func (f *Future) Await(ctx context.Context) (ledger.Wallet, error) {
	select {
	case <-f.done:
		return f.wallet, f.err
	case <-ctx.Done():
		return ledger.Wallet{}, ctx.Err()
	}
}

// Err blocks until completion and returns the failure reason, if any.
func (f *Future) Err() error {
	<-f.done
	return f.err
}

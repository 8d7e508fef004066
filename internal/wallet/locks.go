package wallet

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// lockTable hands out one mutex per wallet id. Entries are reference counted
// and removed when the last holder or waiter leaves, so the table only ever
// holds wallets with work in flight.
type lockTable struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	slot chan struct{}
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{entries: make(map[uuid.UUID]*lockEntry)}
}

// acquire blocks until the wallet lock is held or ctx is done.
func (t *lockTable) acquire(ctx context.Context, id uuid.UUID) (func(), error) {
	t.mu.Lock()
	e, ok := t.entries[id]
	if !ok {
		e = &lockEntry{slot: make(chan struct{}, 1)}
		t.entries[id] = e
	}
	e.refs++
	t.mu.Unlock()

	select {
	case e.slot <- struct{}{}:
	case <-ctx.Done():
		t.release(id, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.slot
			t.release(id, e)
		})
	}, nil
}

func (t *lockTable) release(id uuid.UUID, e *lockEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(t.entries, id)
	}
}

func (t *lockTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

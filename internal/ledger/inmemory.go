package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type inMemoryStore struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]Wallet
	writes  int
}

// NewInMemory creates a concurrency-safe in-memory store useful for unit tests
// and local development.
func NewInMemory() Store {
	return &inMemoryStore{wallets: make(map[uuid.UUID]Wallet)}
}

func (s *inMemoryStore) Get(_ context.Context, id uuid.UUID) (Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[id]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return w, nil
}

func (s *inMemoryStore) Save(_ context.Context, id uuid.UUID, balance, expectedVersion int64) (Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.wallets[id]
	switch {
	case expectedVersion == 0 && exists:
		return Wallet{}, ErrConflict
	case expectedVersion != 0 && (!exists || current.Version != expectedVersion):
		return Wallet{}, ErrConflict
	}

	w := Wallet{
		ID:        id,
		Balance:   balance,
		Version:   expectedVersion + 1,
		UpdatedAt: time.Now().UTC(),
	}
	s.wallets[id] = w
	s.writes++
	return w, nil
}

func (s *inMemoryStore) Ping(context.Context) error {
	return nil
}

package wallet

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/congo-pay/wallet_api/internal/ledger"
)

// Cache holds the last persisted snapshot per wallet. The ledger store stays
// authoritative; entries are written only after a successful store write.
type Cache interface {
	Get(ctx context.Context, id uuid.UUID) (ledger.Wallet, bool, error)
	Put(ctx context.Context, w ledger.Wallet) error
	Evict(ctx context.Context, id uuid.UUID) error
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]ledger.Wallet
}

// NewMemoryCache builds an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[uuid.UUID]ledger.Wallet)}
}

func (c *MemoryCache) Get(_ context.Context, id uuid.UUID) (ledger.Wallet, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	w, ok := c.entries[id]
	return w, ok, nil
}

func (c *MemoryCache) Put(_ context.Context, w ledger.Wallet) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[w.ID] = w
	return nil
}

func (c *MemoryCache) Evict(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	return nil
}

// Len returns the number of cached wallets.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

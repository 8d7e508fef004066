package ledger

import "github.com/google/uuid"

// SeedWallet is a test helper that writes a wallet row directly when using the
// in-memory store, bypassing the version check.
func SeedWallet(s Store, id uuid.UUID, balance, version int64) {
	if mem, ok := s.(*inMemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.wallets[id] = Wallet{ID: id, Balance: balance, Version: version}
	}
}

// Writes reports how many successful Save calls the in-memory store accepted.
// It returns -1 for other backends.
func Writes(s Store) int {
	if mem, ok := s.(*inMemoryStore); ok {
		mem.mu.RLock()
		defer mem.mu.RUnlock()
		return mem.writes
	}
	return -1
}

package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no wallet row exists for the requested id.
	ErrNotFound = errors.New("wallet not found")

	// ErrConflict indicates the stored version moved since it was read, or a
	// create raced an existing row. The write was not applied.
	ErrConflict = errors.New("wallet version conflict")

	// ErrStoreUnavailable wraps failures of the underlying persistence engine.
	ErrStoreUnavailable = errors.New("ledger store unavailable")
)

// Wallet is the persisted snapshot of a wallet balance. Version 0 means the
// wallet has never been written.
type Wallet struct {
	ID        uuid.UUID `json:"walletId"`
	Balance   int64     `json:"balance"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store defines the contract implemented by ledger backends (memory, Postgres, SQLite).
//
// Save writes balance for id only if the stored version equals expectedVersion.
// An expectedVersion of 0 creates the row. On success the new version is returned
// as part of the wallet snapshot.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (Wallet, error)
	Save(ctx context.Context, id uuid.UUID, balance, expectedVersion int64) (Wallet, error)
	Ping(ctx context.Context) error
}

// Migrator is implemented by stores that need their schema created.
type Migrator interface {
	Migrate(ctx context.Context) error
}

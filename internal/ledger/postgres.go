package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSchema creates the wallets table used by PostgresStore.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS wallets (
    id         UUID PRIMARY KEY,
    balance    BIGINT NOT NULL CHECK (balance >= 0),
    version    BIGINT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore persists wallet rows in PostgreSQL with a version column
// used as the optimistic concurrency token.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the wallets table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, PostgresSchema); err != nil {
		return unavailable("migrate", err)
	}
	return nil
}

// Get loads the wallet row for id.
func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (Wallet, error) {
	const query = `SELECT balance, version, updated_at FROM wallets WHERE id = $1`
	w := Wallet{ID: id}
	if err := s.db.QueryRow(ctx, query, id).Scan(&w.Balance, &w.Version, &w.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, unavailable("get wallet", err)
	}
	w.UpdatedAt = w.UpdatedAt.UTC()
	return w, nil
}

// Save inserts or conditionally updates the wallet row.
func (s *PostgresStore) Save(ctx context.Context, id uuid.UUID, balance, expectedVersion int64) (Wallet, error) {
	now := time.Now().UTC()

	if expectedVersion == 0 {
		cmd, err := s.db.Exec(ctx, `INSERT INTO wallets (id, balance, version, updated_at)
        VALUES ($1, $2, 1, $3) ON CONFLICT (id) DO NOTHING`, id, balance, now)
		if err != nil {
			return Wallet{}, unavailable("insert wallet", err)
		}
		if cmd.RowsAffected() == 0 {
			return Wallet{}, ErrConflict
		}
		return Wallet{ID: id, Balance: balance, Version: 1, UpdatedAt: now}, nil
	}

	const update = `UPDATE wallets SET balance = $2, version = version + 1, updated_at = $4
        WHERE id = $1 AND version = $3 RETURNING version`
	var version int64
	if err := s.db.QueryRow(ctx, update, id, balance, expectedVersion, now).Scan(&version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrConflict
		}
		return Wallet{}, unavailable("update wallet", err)
	}
	return Wallet{ID: id, Balance: balance, Version: version, UpdatedAt: now}, nil
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// SQLiteSchema creates the wallets table used by SQLStore.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS wallets (
    id         TEXT NOT NULL PRIMARY KEY,
    balance    INTEGER NOT NULL CHECK (balance >= 0),
    version    INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
)`

// SQLStore persists wallet rows through database/sql. It is used with the
// cgo-free SQLite driver for single-node deployments.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore wraps an opened database handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Migrate creates the wallets table if it does not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, SQLiteSchema); err != nil {
		return unavailable("migrate", err)
	}
	return nil
}

// Get loads the wallet row for id.
func (s *SQLStore) Get(ctx context.Context, id uuid.UUID) (Wallet, error) {
	var (
		w         = Wallet{ID: id}
		updatedAt int64
	)
	row := s.db.QueryRowContext(ctx, `SELECT balance, version, updated_at FROM wallets WHERE id = ?`, id.String())
	if err := row.Scan(&w.Balance, &w.Version, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, unavailable("get wallet", err)
	}
	w.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return w, nil
}

// Save inserts or conditionally updates the wallet row.
func (s *SQLStore) Save(ctx context.Context, id uuid.UUID, balance, expectedVersion int64) (Wallet, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)

	var (
		res sql.Result
		err error
	)
	if expectedVersion == 0 {
		res, err = s.db.ExecContext(ctx, `INSERT INTO wallets (id, balance, version, updated_at)
        VALUES (?, ?, 1, ?) ON CONFLICT (id) DO NOTHING`, id.String(), balance, now.UnixMilli())
	} else {
		res, err = s.db.ExecContext(ctx, `UPDATE wallets SET balance = ?, version = version + 1, updated_at = ?
        WHERE id = ? AND version = ?`, balance, now.UnixMilli(), id.String(), expectedVersion)
	}
	if err != nil {
		return Wallet{}, unavailable("save wallet", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return Wallet{}, unavailable("save wallet", err)
	}
	if affected == 0 {
		return Wallet{}, ErrConflict
	}
	return Wallet{ID: id, Balance: balance, Version: expectedVersion + 1, UpdatedAt: now}, nil
}

// Ping checks database connectivity.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

package infra

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/congo-pay/wallet_api/internal/config"
	"github.com/congo-pay/wallet_api/internal/ledger"
)

// NewStore opens the ledger backend selected by cfg.StoreDriver. The returned
// close function releases the underlying connections.
func NewStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (ledger.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := NewPostgresPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("ledger store ready", slog.String("driver", cfg.StoreDriver))
		return ledger.NewPostgresStore(pool), pool.Close, nil

	case config.DriverSQLite:
		db, err := NewSQLiteDB(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("ledger store ready", slog.String("driver", cfg.StoreDriver), slog.String("path", cfg.SQLitePath))
		return ledger.NewSQLStore(db), func() {
			if err := db.Close(); err != nil {
				logger.Warn("close sqlite", slog.Any("error", err))
			}
		}, nil

	case config.DriverMemory:
		logger.Warn("using in-memory ledger store; balances are lost on restart")
		return ledger.NewInMemory(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

// Migrate creates the store schema when the backend needs one.
func Migrate(ctx context.Context, store ledger.Store) error {
	m, ok := store.(ledger.Migrator)
	if !ok {
		return nil
	}
	return m.Migrate(ctx)
}

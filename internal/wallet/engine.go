package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/congo-pay/wallet_api/internal/ledger"
	"github.com/congo-pay/wallet_api/internal/logging"
)

// MaxAttempts bounds how many times Apply re-reads and re-writes a wallet after
// losing an optimistic concurrency race before giving up with ErrConflict.
const MaxAttempts = 3

// Engine applies balance mutations. Operations on the same wallet are
// serialized; operations on distinct wallets run concurrently.
type Engine struct {
	store  ledger.Store
	cache  Cache
	locks  *lockTable
	logger *slog.Logger
}

// NewEngine wires the engine to its store and cache. A nil cache disables caching.
func NewEngine(store ledger.Store, cache Cache, logger *slog.Logger) *Engine {
	if cache == nil {
		cache = noCache{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Engine{store: store, cache: cache, locks: newLockTable(), logger: logger}
}

// Apply validates op, then runs read-modify-write against the store under the
// wallet lock and writes the result through to the cache.
func (e *Engine) Apply(ctx context.Context, op Operation) (ledger.Wallet, error) {
	if err := op.Validate(); err != nil {
		return ledger.Wallet{}, err
	}

	unlock, err := e.locks.acquire(ctx, op.WalletID)
	if err != nil {
		return ledger.Wallet{}, err
	}
	defer unlock()

	useCache := true
	for attempt := 1; ; attempt++ {
		current, fromCache, err := e.load(ctx, op.WalletID, useCache)
		if err != nil {
			return ledger.Wallet{}, err
		}

		balance, err := applyKind(current.Balance, op)
		if err != nil && fromCache {
			// A cached snapshot may lag writers in other processes; confirm
			// against the store before rejecting.
			if current, _, err = e.load(ctx, op.WalletID, false); err != nil {
				return ledger.Wallet{}, err
			}
			balance, err = applyKind(current.Balance, op)
		}
		if err != nil {
			return ledger.Wallet{}, err
		}

		saved, err := e.store.Save(ctx, op.WalletID, balance, current.Version)
		if err == nil {
			e.writeThrough(ctx, saved)
			return saved, nil
		}
		if !errors.Is(err, ledger.ErrConflict) {
			e.logger.Error("wallet save failed",
				slog.String("wallet_id", op.WalletID.String()),
				slog.Any("error", err),
			)
			return ledger.Wallet{}, err
		}

		// The snapshot we started from is stale; never let it be served again.
		e.evict(ctx, op.WalletID)
		if attempt >= MaxAttempts {
			return ledger.Wallet{}, fmt.Errorf("%w: gave up after %d attempts", ErrConflict, attempt)
		}
		e.logger.Warn("wallet version conflict, retrying",
			slog.String("wallet_id", op.WalletID.String()),
			slog.Int64("read_version", current.Version),
			slog.Int("attempt", attempt),
		)
		useCache = false
	}
}

// Balance returns the current snapshot for id, or ErrNotFound if the wallet
// has never been written.
func (e *Engine) Balance(ctx context.Context, id uuid.UUID) (ledger.Wallet, error) {
	if w, ok := e.cached(ctx, id); ok {
		return w, nil
	}

	unlock, err := e.locks.acquire(ctx, id)
	if err != nil {
		return ledger.Wallet{}, err
	}
	defer unlock()

	if w, ok := e.cached(ctx, id); ok {
		return w, nil
	}
	w, err := e.store.Get(ctx, id)
	if err != nil {
		return ledger.Wallet{}, err
	}
	e.writeThrough(ctx, w)
	return w, nil
}

// Evict drops the cached snapshot for id. The next read falls through to the store.
func (e *Engine) Evict(ctx context.Context, id uuid.UUID) error {
	return e.cache.Evict(ctx, id)
}

// load prefers the cache and falls back to the store. A wallet is synthesized
// with a zero balance only when the store has no row; a cache miss alone
// never decides that.
func (e *Engine) load(ctx context.Context, id uuid.UUID, useCache bool) (ledger.Wallet, bool, error) {
	if useCache {
		if w, ok := e.cached(ctx, id); ok {
			return w, true, nil
		}
	}
	w, err := e.store.Get(ctx, id)
	switch {
	case err == nil:
		return w, false, nil
	case errors.Is(err, ledger.ErrNotFound):
		return ledger.Wallet{ID: id}, false, nil
	default:
		e.logger.Error("wallet load failed", slog.String("wallet_id", id.String()), slog.Any("error", err))
		return ledger.Wallet{}, false, err
	}
}

func (e *Engine) cached(ctx context.Context, id uuid.UUID) (ledger.Wallet, bool) {
	w, ok, err := e.cache.Get(ctx, id)
	if err != nil {
		e.logger.Warn("cache read failed", slog.String("wallet_id", id.String()), slog.Any("error", err))
		return ledger.Wallet{}, false
	}
	return w, ok
}

func (e *Engine) writeThrough(ctx context.Context, w ledger.Wallet) {
	if err := e.cache.Put(ctx, w); err != nil {
		e.logger.Warn("cache write failed", slog.String("wallet_id", w.ID.String()), slog.Any("error", err))
		e.evict(ctx, w.ID)
	}
}

func (e *Engine) evict(ctx context.Context, id uuid.UUID) {
	if err := e.cache.Evict(ctx, id); err != nil {
		e.logger.Warn("cache evict failed", slog.String("wallet_id", id.String()), slog.Any("error", err))
	}
}

func applyKind(balance int64, op Operation) (int64, error) {
	switch op.Kind {
	case KindDeposit:
		if balance > math.MaxInt64-op.Amount {
			return 0, ErrOverflow
		}
		return balance + op.Amount, nil
	case KindWithdraw:
		if balance < op.Amount {
			return 0, ErrInsufficientFunds
		}
		return balance - op.Amount, nil
	default:
		return 0, ErrInvalidOperation
	}
}

type noCache struct{}

func (noCache) Get(context.Context, uuid.UUID) (ledger.Wallet, bool, error) {
	return ledger.Wallet{}, false, nil
}
func (noCache) Put(context.Context, ledger.Wallet) error { return nil }
func (noCache) Evict(context.Context, uuid.UUID) error { return nil }

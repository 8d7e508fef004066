package wallet

import (
	"errors"
	"fmt"

	"github.com/congo-pay/wallet_api/internal/ledger"
)

var (
	// ErrInvalidArgument covers malformed requests: non-positive amounts,
	// missing ids and unknown operation kinds.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidOperation is an ErrInvalidArgument for an unrecognized kind.
	ErrInvalidOperation = fmt.Errorf("%w: invalid operation type", ErrInvalidArgument)

	// ErrInsufficientFunds rejects a withdrawal larger than the balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrOverflow rejects a deposit that would exceed the representable balance.
	ErrOverflow = errors.New("balance overflow")

	// ErrDispatcherClosed is returned for work submitted after shutdown began.
	ErrDispatcherClosed = errors.New("dispatcher closed")

	ErrNotFound         = ledger.ErrNotFound
	ErrConflict         = ledger.ErrConflict
	ErrStoreUnavailable = ledger.ErrStoreUnavailable
)

// IsClientError reports whether err was caused by the request itself rather
// than by a failure of the system.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrOverflow)
}

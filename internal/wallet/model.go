package wallet

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Kind is the type of balance mutation requested.
type Kind string

const (
	KindDeposit  Kind = "DEPOSIT"
	KindWithdraw Kind = "WITHDRAW"
)

// ParseKind maps the wire value of operationType to a Kind. Matching is
// case-insensitive; anything else is ErrInvalidOperation.
func ParseKind(raw string) (Kind, error) {
	switch k := Kind(strings.ToUpper(strings.TrimSpace(raw))); k {
	case KindDeposit, KindWithdraw:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidOperation, raw)
	}
}

// Operation is a single unit of work against one wallet.
type Operation struct {
	WalletID uuid.UUID
	Kind     Kind
	Amount   int64
}

// Validate rejects operations that can never succeed.
func (op Operation) Validate() error {
	if op.WalletID == uuid.Nil {
		return fmt.Errorf("%w: wallet id is required", ErrInvalidArgument)
	}
	if op.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidArgument)
	}
	switch op.Kind {
	case KindDeposit, KindWithdraw:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOperation, string(op.Kind))
	}
}

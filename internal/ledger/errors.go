package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("invalid ledger entry")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("ledger entry not found")
	ErrConflict          = errors.New("ledger entry is not pending")
	ErrDuplicate         = errors.New("ledger entry already recorded for reference")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

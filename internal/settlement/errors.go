package settlement

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("invalid settlement request")
	ErrInvalidMode      = fmt.Errorf("%w: unknown settlement mode", ErrValidation)
	ErrTransientStorage = errors.New("transient storage failure")
)

// ValidationError aponta o campo rejeitado; errors.Is(err, ErrValidation) é verdadeiro
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// StorageError embrulha falhas de I/O do ledger ou do registro de apostas
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrTransientStorage, e.Err} }

// Failure reasons reportados por aposta
const (
	ReasonConflict   = "conflict"
	ReasonValidation = "validation"
	ReasonStorage    = "storage"
)

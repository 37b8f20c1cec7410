package core

import (
	"errors"
	"fmt"
)

// Error kinds. Each failing operation reports exactly one of these, possibly
// wrapped by DecodeError or StoreError.
var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyBatch        = errors.New("no valid records found")
	ErrDecodeFailure     = errors.New("could not read file")
	ErrStoreFailure      = errors.New("record store failure")
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrTooManyImports    = errors.New("too many imports in progress")
	ErrFileTooLarge      = errors.New("file too large")

	ErrUnknownStage           = errors.New("unknown stage")
	ErrUnknownInteractionKind = errors.New("unknown interaction kind")

	ErrDragInProgress = errors.New("another lead is already being dragged")
	ErrNoActiveDrag   = errors.New("no drag in progress")
	ErrLeadNotOnBoard = errors.New("lead is not on the board")
)

// DecodeError carries the decoder's own message so it can be shown verbatim.
type DecodeError struct {
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDecodeFailure, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	return []error{ErrDecodeFailure, e.Err}
}

// StoreError is a rejected or failed Record Store call.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrStoreFailure, e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrStoreFailure, e.Err}
}

// storeErr wraps err from the store call op. ErrNotFound passes through
// unwrapped so callers can tell a missing record from a failing store.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

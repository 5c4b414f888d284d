package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrStoreUnavailable marks failures of the persistence layer. It is matched
// with errors.Is and is never turned into an empty result.
var ErrStoreUnavailable = errors.New("ledger store unavailable")

// FieldError describes one invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every problem found in a draft.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid transaction: " + strings.Join(parts, "; ")
}

// NotFoundError is returned when a transaction id does not exist.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("transaction %q not found", e.ID)
}

// UnavailableError wraps a backend failure for operation Op.
type UnavailableError struct {
	Op  string
	Err error
}

// Unavailable wraps err as a store failure of op.
func Unavailable(op string, err error) error {
	return &UnavailableError{Op: op, Err: err}
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStoreUnavailable, e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrStoreUnavailable }

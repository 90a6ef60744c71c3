// internal/lifecycle/errors.go
package lifecycle

import (
	"errors"
	"fmt"

	"mediatheque/internal/recordstore"
)

var (
	ErrNoValidFields = errors.New("no valid fields to update")
	ErrUnknownKind   = errors.New("unknown record kind")
	ErrNotFound      = recordstore.ErrNotFound
)

// MissingFieldError names the first required field absent from a payload.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return "missing required field: " + e.Field
}

// InvalidFieldError reports a present field whose value breaks a format contract.
type InvalidFieldError struct {
	Field  string
	Reason string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid field %s: %s", e.Field, e.Reason)
}

// StoreError wraps an unexpected failure of the document store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error { return e.Err }

// storeErr passes not-found through untouched and wraps anything else.
func storeErr(op string, err error) error {
	if errors.Is(err, recordstore.ErrNotFound) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

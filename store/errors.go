package store

import (
	"errors"
	"fmt"
)

// Sentinel errors for the store package.
var (
	ErrNotFound       = errors.New("store: document not found")
	ErrInvalidQuery   = errors.New("store: invalid query")
	ErrInvalidPath    = errors.New("store: invalid collection or document path")
	ErrInvalidConfig  = errors.New("store: invalid configuration")
	ErrUnknownBackend = errors.New("store: unknown backend")
)

// BackendError wraps a failure reported by a persistence backend with the
// operation and document it concerned.
type BackendError struct {
	Backend    string
	Op         string
	Collection string
	ID         string
	Err        error
}

func (e *BackendError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("store: %s %s %s: %v", e.Backend, e.Op, e.Collection, e.Err)
	}
	return fmt.Sprintf("store: %s %s %s/%s: %v", e.Backend, e.Op, e.Collection, e.ID, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

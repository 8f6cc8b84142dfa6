// Package db provides the ordered key/value engine underneath the document
// store. Keys live in named keyspaces (one per document collection) that are
// simulated by key-prefixing, so iteration over a keyspace yields its keys in
// byte order without touching neighbouring collections.
//
// The primary interface is [Store], satisfied by [PebbleDB] (production) and
// [MockStore] (in-memory). Create instances with [Open] or [NewMockStore] and
// inject them into consumers via constructor arguments.
package db

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Sentinel errors returned by Store implementations.
var (
	ErrClosed          = errors.New("db: database is closed")
	ErrInvalidKeyspace = errors.New("db: invalid keyspace name")
	ErrKeyNotFound     = errors.New("db: key not found")
	ErrNilKey          = errors.New("db: key must not be nil")
)

// Store defines the contract for all key/value operations.
// All methods are safe for concurrent use by multiple goroutines.
type Store interface {
	// Get retrieves the value for a key in the given keyspace.
	// Returns ErrKeyNotFound if the key does not exist.
	Get(keyspace string, key []byte) ([]byte, error)

	// Put stores a key-value pair in the given keyspace.
	Put(keyspace string, key []byte, value []byte) error

	// Delete removes a key from the given keyspace.
	// Deleting a non-existent key is not an error.
	Delete(keyspace string, key []byte) error

	// NewIterator creates a forward iterator over a snapshot of the given
	// keyspace. The caller must call Close on the returned Iterator.
	NewIterator(keyspace string) (Iterator, error)

	// Close flushes pending writes and releases all resources.
	// After Close returns, every other method returns ErrClosed.
	io.Closer
}

// Iterator provides ordered traversal over keys in a single keyspace.
// Key and Value return copies that remain valid after the iterator advances.
type Iterator interface {
	// SeekToFirst positions the iterator at the first key.
	SeekToFirst()

	// Next advances the iterator by one key.
	Next()

	// Valid reports whether the iterator is positioned at a valid entry.
	Valid() bool

	// Key returns a copy of the current key (prefix-stripped).
	Key() []byte

	// Value returns a copy of the current value.
	Value() []byte

	// Err returns any accumulated error from the underlying engine.
	Err() error

	// Close releases iterator resources.
	Close()
}

// ValidateKeyspace rejects names that would break prefix isolation.
func ValidateKeyspace(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidKeyspace)
	}
	if strings.ContainsAny(name, "\x00\x01") {
		return fmt.Errorf("%w: %q contains a reserved byte", ErrInvalidKeyspace, name)
	}
	return nil
}

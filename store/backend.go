package store

import (
	"context"
	"io"
)

// Backend is the persistence engine underneath a [Client]. A backend stores
// whole documents addressed by collection and id; querying, merging and
// id assignment happen in the driver above it.
//
// Implementations must be safe for concurrent use.
type Backend interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	// Get returns the fields of one document, or ErrNotFound.
	Get(ctx context.Context, collection, id string) (map[string]any, error)

	// Put creates or replaces a document.
	Put(ctx context.Context, collection, id string, fields map[string]any) error

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error

	// List returns every document of a collection ordered by id.
	List(ctx context.Context, collection string) ([]Document, error)

	io.Closer
}

// Document is one stored document as returned by [Backend.List].
type Document struct {
	ID     string
	Fields map[string]any
}

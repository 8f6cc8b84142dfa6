// Package store is a small document database driver. Documents are JSON-like
// field maps grouped into collections and addressed by string ids; they are
// read and written through references and selected with immutable queries:
//
//	client, _ := store.NewClient(store.NewMemoryBackend())
//	users := client.Collection("users")
//	ref, _ := users.Add(ctx, map[string]any{"name": "Ana", "age": 30})
//	snaps, _ := users.Query().Where("age", ">=", 18).OrderBy("name", store.Asc).Limit(10).Get(ctx)
//
// Persistence is delegated to a [Backend]: in-memory, Pebble, SQLite, a JSON
// file per collection, or PostgreSQL.
package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/beyondbrewing/brewery-odm/pkg/logger"
)

// Client is the entry point of the driver. It is safe for concurrent use.
type Client struct {
	backend Backend
	newID   func() string
	logger  logger.Logger

	// mu serialises read-modify-write updates issued through this client.
	mu sync.Mutex
}

// NewClient creates a Client over backend with the given options applied over
// DefaultConfig.
func NewClient(backend Backend, opts ...Option) (*Client, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: backend must not be nil", ErrInvalidConfig)
	}

	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}

	return &Client{
		backend: backend,
		newID:   cfg.NewID,
		logger:  log.With("component", "store", "backend", backend.Name()),
	}, nil
}

// Backend returns the persistence backend of the client.
func (c *Client) Backend() Backend {
	return c.backend
}

// Close closes the underlying backend.
func (c *Client) Close() error {
	return c.backend.Close()
}

// Collection returns a reference to the named collection. Collections exist
// implicitly; nothing is written until a document is.
func (c *Client) Collection(name string) *CollectionRef {
	return &CollectionRef{client: c, ID: name}
}

// CollectionRef refers to a collection of documents.
type CollectionRef struct {
	client *Client
	ID     string
}

// Doc returns a reference to the document with the given id.
func (cr *CollectionRef) Doc(id string) *DocumentRef {
	return &DocumentRef{client: cr.client, Parent: cr, ID: id}
}

// NewDoc returns a reference to a document with a freshly generated id.
func (cr *CollectionRef) NewDoc() *DocumentRef {
	return cr.Doc(cr.client.newID())
}

// Add creates a document with a generated id and returns its reference.
func (cr *CollectionRef) Add(ctx context.Context, fields map[string]any) (*DocumentRef, error) {
	ref := cr.NewDoc()
	if err := ref.Set(ctx, fields); err != nil {
		return nil, err
	}
	return ref, nil
}

// Query returns an unconstrained query over the collection.
func (cr *CollectionRef) Query() Query {
	return Query{client: cr.client, collection: cr.ID}
}

// DocumentRef refers to a single document, which may or may not exist.
type DocumentRef struct {
	client *Client
	Parent *CollectionRef
	ID     string
}

// Path returns "collection/id".
func (d *DocumentRef) Path() string {
	return d.Parent.ID + "/" + d.ID
}

func (d *DocumentRef) check() error {
	if d.Parent.ID == "" || strings.Contains(d.Parent.ID, "/") {
		return fmt.Errorf("%w: collection %q", ErrInvalidPath, d.Parent.ID)
	}
	if d.ID == "" || strings.Contains(d.ID, "/") {
		return fmt.Errorf("%w: document id %q", ErrInvalidPath, d.ID)
	}
	return nil
}

// Get reads the document. A missing document yields a snapshot whose Exists
// reports false, not an error.
func (d *DocumentRef) Get(ctx context.Context) (*DocumentSnapshot, error) {
	if err := d.check(); err != nil {
		return nil, err
	}

	fields, err := d.client.backend.Get(ctx, d.Parent.ID, d.ID)
	switch {
	case err == nil:
		d.client.logger.Debug("document read", "path", d.Path())
		return &DocumentSnapshot{Ref: d, ID: d.ID, fields: fields, exists: true}, nil
	case isNotFound(err):
		d.client.logger.Debug("document missing", "path", d.Path())
		return &DocumentSnapshot{Ref: d, ID: d.ID}, nil
	default:
		return nil, err
	}
}

// Set creates the document or replaces all of its fields.
func (d *DocumentRef) Set(ctx context.Context, fields map[string]any) error {
	if err := d.check(); err != nil {
		return err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	if err := d.client.backend.Put(ctx, d.Parent.ID, d.ID, fields); err != nil {
		return err
	}
	d.client.logger.Debug("document written", "path", d.Path(), "fields", len(fields))
	return nil
}

// Update merges fields into an existing document. Keys are field paths: a
// dotted key such as "address.city" replaces only that nested field.
// Returns ErrNotFound if the document does not exist.
func (d *DocumentRef) Update(ctx context.Context, fields map[string]any) error {
	if err := d.check(); err != nil {
		return err
	}
	for key := range fields {
		if !validPath(key) {
			return fmt.Errorf("%w: field path %q", ErrInvalidPath, key)
		}
	}

	d.client.mu.Lock()
	defer d.client.mu.Unlock()

	current, err := d.client.backend.Get(ctx, d.Parent.ID, d.ID)
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, d.Path())
		}
		return err
	}

	for _, key := range slices.Sorted(maps.Keys(fields)) {
		setPath(current, key, fields[key])
	}
	if err := d.client.backend.Put(ctx, d.Parent.ID, d.ID, current); err != nil {
		return err
	}
	d.client.logger.Debug("document updated", "path", d.Path(), "fields", len(fields))
	return nil
}

// Delete removes the document. Deleting a missing document succeeds.
func (d *DocumentRef) Delete(ctx context.Context) error {
	if err := d.check(); err != nil {
		return err
	}
	if err := d.client.backend.Delete(ctx, d.Parent.ID, d.ID); err != nil {
		return err
	}
	d.client.logger.Debug("document deleted", "path", d.Path())
	return nil
}

// DocumentSnapshot is the result of reading a document.
type DocumentSnapshot struct {
	Ref *DocumentRef
	ID  string

	fields map[string]any
	exists bool
}

// Exists reports whether the document was found.
func (s *DocumentSnapshot) Exists() bool {
	return s != nil && s.exists
}

// Data returns the document fields, or nil when the document does not exist.
// Each read produces a fresh copy owned by the caller, nested maps and lists
// included.
func (s *DocumentSnapshot) Data() map[string]any {
	if !s.Exists() {
		return nil
	}
	return cloneValue(s.fields).(map[string]any)
}

// DataAt returns the value at a dotted field path.
func (s *DocumentSnapshot) DataAt(path string) (any, bool) {
	if !s.Exists() {
		return nil, false
	}
	return getPath(s.fields, path)
}

package store

import (
	"context"
	"errors"

	"github.com/beyondbrewing/brewery-odm/db"
)

// Compile-time interface check.
var _ Backend = (*KVBackend)(nil)

// KVBackend stores documents in an ordered key/value [db.Store]: one keyspace
// per collection, the document id as key and its JSON encoding as value.
type KVBackend struct {
	kv   db.Store
	name string
}

// NewKVBackend wraps kv. The name is reported in logs and metrics.
func NewKVBackend(name string, kv db.Store) *KVBackend {
	return &KVBackend{kv: kv, name: name}
}

// NewMemoryBackend returns a backend over a fresh in-memory store.
func NewMemoryBackend() *KVBackend {
	return NewKVBackend("memory", db.NewMockStore())
}

// NewPebbleBackend opens (or creates) a Pebble database at path.
func NewPebbleBackend(path string, opts ...db.Option) (*KVBackend, error) {
	pdb, err := db.Open(path, opts...)
	if err != nil {
		return nil, err
	}
	return NewKVBackend("pebble", pdb), nil
}

func (b *KVBackend) Name() string { return b.name }

// Store exposes the underlying key/value store.
func (b *KVBackend) Store() db.Store { return b.kv }

func (b *KVBackend) wrap(op, collection, id string, err error) error {
	return &BackendError{Backend: b.name, Op: op, Collection: collection, ID: id, Err: err}
}

func (b *KVBackend) Get(ctx context.Context, collection, id string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := b.kv.Get(collection, []byte(id))
	if errors.Is(err, db.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, b.wrap("get", collection, id, err)
	}

	fields, err := decodeDocument(data)
	if err != nil {
		return nil, b.wrap("get", collection, id, err)
	}
	return fields, nil
}

func (b *KVBackend) Put(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encodeDocument(fields)
	if err != nil {
		return b.wrap("put", collection, id, err)
	}
	if err := b.kv.Put(collection, []byte(id), data); err != nil {
		return b.wrap("put", collection, id, err)
	}
	return nil
}

func (b *KVBackend) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.kv.Delete(collection, []byte(id)); err != nil {
		return b.wrap("delete", collection, id, err)
	}
	return nil
}

func (b *KVBackend) List(ctx context.Context, collection string) ([]Document, error) {
	it, err := b.kv.NewIterator(collection)
	if err != nil {
		return nil, b.wrap("list", collection, "", err)
	}
	defer it.Close()

	var docs []Document
	for it.SeekToFirst(); it.Valid(); it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fields, err := decodeDocument(it.Value())
		if err != nil {
			return nil, b.wrap("list", collection, string(it.Key()), err)
		}
		docs = append(docs, Document{ID: string(it.Key()), Fields: fields})
	}
	if err := it.Err(); err != nil {
		return nil, b.wrap("list", collection, "", err)
	}
	return docs, nil
}

func (b *KVBackend) Close() error {
	return b.kv.Close()
}

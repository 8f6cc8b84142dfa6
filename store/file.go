package store

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gofrs/flock"
	"github.com/natefinch/atomic"
)

// Compile-time interface check.
var _ Backend = (*FileBackend)(nil)

const (
	lockTimeout       = 3 * time.Second
	lockRetryInterval = 50 * time.Millisecond
)

// FileBackend stores each collection as a JSON object of id -> document in
// its own file. Files are replaced atomically and guarded by an advisory lock
// file, so several processes may share a directory.
//
// Layout:
//
//	dir/
//	  users.json       # "users" collection
//	  users.json.lock
type FileBackend struct {
	// mu serialises operations in this process; the flock on each file
	// covers other processes. A Flock handle is not reentrant.
	mu  sync.Mutex
	dir string

	locksMu sync.Mutex
	locks   map[string]*flock.Flock
}

// NewFileBackend uses dir, creating it if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: file backend dir: %w", err)
	}
	return &FileBackend{dir: dir, locks: make(map[string]*flock.Flock)}, nil
}

func (f *FileBackend) Name() string { return "file" }

func (f *FileBackend) wrap(op, collection, id string, err error) error {
	return &BackendError{Backend: "file", Op: op, Collection: collection, ID: id, Err: err}
}

func (f *FileBackend) collectionPath(collection string) (string, error) {
	if collection == "" || collection == "." || collection == ".." ||
		strings.ContainsAny(collection, `/\`) || strings.ContainsRune(collection, 0) {
		return "", fmt.Errorf("%w: collection %q", ErrInvalidPath, collection)
	}
	return filepath.Join(f.dir, collection+".json"), nil
}

func (f *FileBackend) fileLock(path string) *flock.Flock {
	f.locksMu.Lock()
	defer f.locksMu.Unlock()

	l, ok := f.locks[path]
	if !ok {
		l = flock.New(path + ".lock")
		f.locks[path] = l
	}
	return l
}

// withLock runs fn while holding the cross-process lock of a collection file:
// exclusive for writers, shared for readers.
func (f *FileBackend) withLock(ctx context.Context, path string, exclusive bool, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	l := f.fileLock(path)
	var (
		locked bool
		err    error
	)
	if exclusive {
		locked, err = l.TryLockContext(ctx, lockRetryInterval)
	} else {
		locked, err = l.TryRLockContext(ctx, lockRetryInterval)
	}
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("could not acquire file lock")
	}
	defer func() { _ = l.Unlock() }()

	return fn()
}

func (f *FileBackend) load(path string) (map[string]map[string]any, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]map[string]any{}, nil
	}

	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	coll := make(map[string]map[string]any, len(raw))
	for id, v := range raw {
		if doc, ok := fromWire(v).(map[string]any); ok {
			coll[id] = doc
		}
	}
	return coll, nil
}

func (f *FileBackend) save(path string, coll map[string]map[string]any) error {
	wire := make(map[string]any, len(coll))
	for id, doc := range coll {
		wire[id] = toWire(doc)
	}
	data, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(path, bytes.NewReader(data))
}

func (f *FileBackend) Get(ctx context.Context, collection, id string) (map[string]any, error) {
	path, err := f.collectionPath(collection)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var doc map[string]any
	err = f.withLock(ctx, path, false, func() error {
		coll, err := f.load(path)
		if err != nil {
			return err
		}
		var ok bool
		if doc, ok = coll[id]; !ok {
			return ErrNotFound
		}
		return nil
	})
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, f.wrap("get", collection, id, err)
	}
	return doc, nil
}

func (f *FileBackend) Put(ctx context.Context, collection, id string, fields map[string]any) error {
	path, err := f.collectionPath(collection)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	err = f.withLock(ctx, path, true, func() error {
		coll, err := f.load(path)
		if err != nil {
			return err
		}
		coll[id] = fields
		return f.save(path, coll)
	})
	if err != nil {
		return f.wrap("put", collection, id, err)
	}
	return nil
}

func (f *FileBackend) Delete(ctx context.Context, collection, id string) error {
	path, err := f.collectionPath(collection)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	err = f.withLock(ctx, path, true, func() error {
		coll, err := f.load(path)
		if err != nil {
			return err
		}
		if _, ok := coll[id]; !ok {
			return nil
		}
		delete(coll, id)
		return f.save(path, coll)
	})
	if err != nil {
		return f.wrap("delete", collection, id, err)
	}
	return nil
}

func (f *FileBackend) List(ctx context.Context, collection string) ([]Document, error) {
	path, err := f.collectionPath(collection)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var docs []Document
	err = f.withLock(ctx, path, false, func() error {
		coll, err := f.load(path)
		if err != nil {
			return err
		}
		for _, id := range slices.Sorted(maps.Keys(coll)) {
			docs = append(docs, Document{ID: id, Fields: coll[id]})
		}
		return nil
	})
	if err != nil {
		return nil, f.wrap("list", collection, "", err)
	}
	return docs, nil
}

// Close releases the lock files held open by the backend.
func (f *FileBackend) Close() error {
	f.locksMu.Lock()
	defer f.locksMu.Unlock()

	for path, l := range f.locks {
		_ = l.Close()
		delete(f.locks, path)
	}
	return nil
}

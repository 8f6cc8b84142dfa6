package db

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Compile-time interface check.
var _ Store = (*MockStore)(nil)

// MockStore is a fully functional, thread-safe, in-memory implementation of
// [Store]. It backs the "memory" document backend and every unit test that
// needs a store without touching disk.
//
//	kv := db.NewMockStore()
//	defer kv.Close()
type MockStore struct {
	mu     sync.RWMutex
	data   map[string]map[string][]byte // keyspace -> key(string) -> value
	closed atomic.Bool
}

// NewMockStore creates an empty MockStore. Keyspaces spring into existence on
// first write.
func NewMockStore() *MockStore {
	return &MockStore{data: make(map[string]map[string][]byte)}
}

func (m *MockStore) Get(keyspace string, key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed.Load() {
		return nil, ErrClosed
	}
	if _, err := checkKey(keyspace, key); err != nil {
		return nil, err
	}

	v, ok := m.data[keyspace][string(key)]
	if !ok {
		return nil, ErrKeyNotFound
	}

	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MockStore) Put(keyspace string, key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed.Load() {
		return ErrClosed
	}
	if _, err := checkKey(keyspace, key); err != nil {
		return err
	}

	bucket, ok := m.data[keyspace]
	if !ok {
		bucket = make(map[string][]byte)
		m.data[keyspace] = bucket
	}

	v := make([]byte, len(value))
	copy(v, value)
	bucket[string(key)] = v
	return nil
}

func (m *MockStore) Delete(keyspace string, key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed.Load() {
		return ErrClosed
	}
	if _, err := checkKey(keyspace, key); err != nil {
		return err
	}

	delete(m.data[keyspace], string(key))
	return nil
}

func (m *MockStore) NewIterator(keyspace string) (Iterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed.Load() {
		return nil, ErrClosed
	}
	if err := ValidateKeyspace(keyspace); err != nil {
		return nil, err
	}

	// Snapshot: sorted copy of the current data.
	bucket := m.data[keyspace]
	keys := make([]string, 0, len(bucket))
	for k := range bucket {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]mockEntry, len(keys))
	for i, k := range keys {
		v := make([]byte, len(bucket[k]))
		copy(v, bucket[k])
		entries[i] = mockEntry{key: []byte(k), value: v}
	}

	return &mockIterator{entries: entries, pos: -1}, nil
}

func (m *MockStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed.Load() {
		return ErrClosed
	}
	m.closed.Store(true)
	m.data = nil
	return nil
}

// Len returns the number of keys in the given keyspace, or -1 once the store
// is closed.
func (m *MockStore) Len(keyspace string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed.Load() {
		return -1
	}
	return len(m.data[keyspace])
}

// Reset clears every keyspace without closing the store.
func (m *MockStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed.Load() {
		return
	}
	m.data = make(map[string]map[string][]byte)
}

type mockEntry struct {
	key   []byte
	value []byte
}

type mockIterator struct {
	entries []mockEntry
	pos     int
}

func (it *mockIterator) SeekToFirst() { it.pos = 0 }
func (it *mockIterator) Next()        { it.pos++ }

func (it *mockIterator) Valid() bool {
	return it.pos >= 0 && it.pos < len(it.entries)
}

func (it *mockIterator) Key() []byte {
	if !it.Valid() {
		return nil
	}
	out := make([]byte, len(it.entries[it.pos].key))
	copy(out, it.entries[it.pos].key)
	return out
}

func (it *mockIterator) Value() []byte {
	if !it.Valid() {
		return nil
	}
	out := make([]byte, len(it.entries[it.pos].value))
	copy(out, it.entries[it.pos].value)
	return out
}

func (it *mockIterator) Err() error { return nil }
func (it *mockIterator) Close()     {}

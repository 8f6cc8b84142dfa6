package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	cases := []struct {
		cfg  BackendConfig
		name string
	}{
		{BackendConfig{}, "memory"},
		{BackendConfig{Name: BackendMemory}, "memory"},
		{BackendConfig{Name: BackendPebble, Path: filepath.Join(dir, "pebble")}, "pebble"},
		{BackendConfig{Name: BackendSQLite, Path: filepath.Join(dir, "sqlite")}, "sqlite"},
		{BackendConfig{Name: BackendSQLite, Path: filepath.Join(dir, "one.db")}, "sqlite"},
		{BackendConfig{Name: BackendFile, Path: filepath.Join(dir, "files")}, "file"},
	}
	for _, tc := range cases {
		b, err := OpenBackend(ctx, tc.cfg)
		require.NoError(t, err, tc.cfg)
		assert.Equal(t, tc.name, b.Name())
		require.NoError(t, b.Put(ctx, "c", "id", map[string]any{"ok": true}))
		require.NoError(t, b.Close())
	}
	assert.FileExists(t, filepath.Join(dir, "sqlite", "odm.db"))
	assert.FileExists(t, filepath.Join(dir, "one.db"))
}

func TestOpenBackendErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	_, err := OpenBackend(ctx, BackendConfig{Name: "mongo"})
	assert.ErrorIs(t, err, ErrUnknownBackend)

	for _, name := range []string{BackendPebble, BackendSQLite, BackendFile} {
		_, err := OpenBackend(ctx, BackendConfig{Name: name})
		assert.ErrorIs(t, err, ErrInvalidConfig, name)
	}
	_, err = OpenBackend(ctx, BackendConfig{Name: BackendPostgres})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestOpenClient(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c, err := Open(ctx, BackendConfig{Name: BackendFile, Path: t.TempDir()})
	require.NoError(t, err)
	defer c.Close()

	ref, err := c.Collection("users").Add(ctx, map[string]any{"name": "Ana"})
	require.NoError(t, err)
	assert.Len(t, ref.ID, 36)
}

func TestInstrument(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	reg := prometheus.NewRegistry()

	ib, err := Instrument(NewMemoryBackend(), reg)
	require.NoError(t, err)
	defer ib.Close()

	require.NoError(t, ib.Put(ctx, "users", "ana", map[string]any{"name": "Ana"}))
	_, err = ib.Get(ctx, "users", "ana")
	require.NoError(t, err)
	_, err = ib.Get(ctx, "users", "nobody")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = ib.List(ctx, "bad\x00name")
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(ib.ops.WithLabelValues("memory", "put", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ib.ops.WithLabelValues("memory", "get", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ib.ops.WithLabelValues("memory", "get", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ib.ops.WithLabelValues("memory", "list", "error")))
	assert.Equal(t, 3, testutil.CollectAndCount(ib.duration))

	// A second backend on the same registry shares the collectors.
	other, err := Instrument(NewMemoryBackend(), reg)
	require.NoError(t, err)
	require.NoError(t, other.Put(ctx, "users", "bob", map[string]any{}))
	assert.Equal(t, 2.0, testutil.ToFloat64(ib.ops.WithLabelValues("memory", "put", "ok")))
}

func TestClientOverInstrumentedBackend(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	reg := prometheus.NewRegistry()

	c, err := Open(ctx, BackendConfig{Registerer: reg})
	require.NoError(t, err)
	defer c.Close()

	ib, ok := c.Backend().(*InstrumentedBackend)
	require.True(t, ok)
	assert.Equal(t, "memory", ib.Unwrap().Name())

	_, err = c.Collection("users").Query().Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(ib.ops.WithLabelValues("memory", "list", "ok")))
}

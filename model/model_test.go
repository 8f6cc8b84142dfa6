package model

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/beyondbrewing/brewery-odm/pkg/logger"
	"github.com/beyondbrewing/brewery-odm/record"
	"github.com/beyondbrewing/brewery-odm/schema"
	"github.com/beyondbrewing/brewery-odm/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func userSchema(opts ...schema.Option) *schema.Schema {
	return schema.New(schema.Container{
		"name": &schema.Leaf{Type: schema.String, Required: true},
		"age":  &schema.Leaf{Type: schema.Number, Default: schema.Value(18)},
		"address": schema.Container{
			"city": &schema.Leaf{Type: schema.String},
		},
	}, opts...)
}

func newClient(t *testing.T) *store.Client {
	t.Helper()
	n := 0
	c, err := store.NewClient(store.NewMemoryBackend(), store.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("u%02d", n)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func newUsers(t *testing.T, opts ...schema.Option) *Model {
	t.Helper()
	m, err := New("users", userSchema(opts...), newClient(t))
	require.NoError(t, err)
	return m
}

func TestNewValidation(t *testing.T) {
	t.Parallel()
	c := newClient(t)

	_, err := New("", userSchema(), c)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = New("users", nil, c)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = New("users", userSchema(), nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	m, err := New("users", userSchema(), c)
	require.NoError(t, err)
	assert.Equal(t, "users", m.Collection())
	assert.NotNil(t, m.Schema())
}

func TestCreate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	users := newUsers(t)

	ana, err := users.Create(ctx, map[string]any{"name": "Ana"})
	require.NoError(t, err)
	assert.Equal(t, record.Record{"id": "u01", "name": "Ana", "age": 18, "address": map[string]any{}}, ana)

	found, err := users.FindByID(ctx, "u01")
	require.NoError(t, err)
	assert.Equal(t, record.Record{"id": "u01", "name": "Ana", "age": int64(18), "address": map[string]any{}}, found)
}

func TestCreateRequiredFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	users := newUsers(t)

	_, err := users.Create(ctx, map[string]any{})
	assert.EqualError(t, err, "name is required")
	assert.ErrorIs(t, err, schema.ErrInvalidInput)

	all, err := users.Find().Execute(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreateWithID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	users := newUsers(t)

	r, err := users.Create(ctx, map[string]any{"name": "Ana", "junk": true}, WithID("ana"))
	require.NoError(t, err)
	assert.Equal(t, "ana", r.ID())
	assert.NotContains(t, r, "junk")

	found, err := users.FindByID(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, "Ana", found["name"])
}

func TestCreateSkipValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	users := newUsers(t)

	r, err := users.Create(ctx, map[string]any{"junk": 1}, SkipValidation())
	require.NoError(t, err)
	assert.Equal(t, record.Record{"id": "u01", "junk": 1}, r)

	r, err = users.Create(ctx, nil, SkipValidation(), WithID("empty"))
	require.NoError(t, err)
	assert.Equal(t, record.Record{"id": "empty"}, r)
}

func TestCreateRaw(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	users := newUsers(t)

	ref, err := users.CreateRaw(ctx, map[string]any{"name": "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "u01", ref.ID)
	assert.Equal(t, "users", ref.Parent.ID)

	snap, err := ref.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(18), snap.Data()["age"])

	_, err = users.CreateRaw(ctx, map[string]any{})
	assert.ErrorIs(t, err, schema.ErrInvalidInput)
}

func TestFindByIDMissing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	users := newUsers(t)

	r, err := users.FindByID(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, r)

	snap, err := users.FindByIDRaw(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, snap.Exists())
}

func TestValidateUsesUpdateMode(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	users := newUsers(t)

	_, err := users.Validate(ctx, map[string]any{"age": "old"})
	assert.EqualError(t, err, "age must be a number")

	got, err := users.Validate(ctx, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, got)

	// Nothing is written.
	all, err := users.Find().Execute(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestUpdateByID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	users := newUsers(t)

	_, err := users.Create(ctx, map[string]any{"name": "Ana", "address": map[string]any{"city": "Lisbon"}}, WithID("ana"))
	require.NoError(t, err)

	id, err := users.UpdateByID(ctx, "ana", map[string]any{"age": 31, "unknown": "x"})
	require.NoError(t, err)
	assert.Equal(t, "ana", id)

	got, err := users.FindByID(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, record.Record{
		"id":      "ana",
		"name":    "Ana",
		"age":     int64(31),
		"address": map[string]any{"city": "Lisbon"},
	}, got)

	_, err = users.UpdateByID(ctx, "ana", map[string]any{"address.city": "Porto"})
	require.NoError(t, err)
	got, err = users.FindByID(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"city": "Porto"}, got["address"])
}

func TestUpdateByIDRejectsInvalid(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	users := newUsers(t)

	_, err := users.Create(ctx, map[string]any{"name": "Ana"}, WithID("ana"))
	require.NoError(t, err)

	_, err = users.UpdateByID(ctx, "ana", map[string]any{"age": "old"})
	assert.EqualError(t, err, "age must be a number")

	got, err := users.FindByID(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, int64(18), got["age"])

	_, err = users.UpdateByID(ctx, "ana", map[string]any{"age": "old"}, SkipValidation())
	require.NoError(t, err)
	got, err = users.FindByID(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, "old", got["age"])
}

func TestUpdateByIDMissing(t *testing.T) {
	t.Parallel()

	_, err := newUsers(t).UpdateByID(context.Background(), "nobody", map[string]any{"age": 3})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestBeforeSaveAbortsWrite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	errBlocked := errors.New("blocked")

	var seen map[string]any
	users := newUsers(t, schema.WithBeforeSave(func(_ context.Context, data map[string]any) error {
		seen = data
		if data["name"] == "Mallory" {
			return errBlocked
		}
		data["checked"] = true
		return nil
	}))

	_, err := users.Create(ctx, map[string]any{"name": "Mallory"})
	assert.ErrorIs(t, err, errBlocked)
	assert.Equal(t, 18, seen["age"])

	all, err := users.Find().Execute(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	r, err := users.Create(ctx, map[string]any{"name": "Ana"})
	require.NoError(t, err)
	assert.Equal(t, true, r["checked"])
}

func TestDeleteByID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	users := newUsers(t)

	_, err := users.Create(ctx, map[string]any{"name": "Ana"}, WithID("ana"))
	require.NoError(t, err)

	id, err := users.DeleteByID(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, "ana", id)

	r, err := users.FindByID(ctx, "ana")
	require.NoError(t, err)
	assert.Nil(t, r)

	id, err = users.DeleteByID(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, "ana", id)
}

func TestFind(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	users := newUsers(t)

	for _, data := range []map[string]any{
		{"name": "Cid", "age": 45},
		{"name": "Bob", "age": 17},
		{"name": "Ana", "age": 30},
		{"name": "Dee"},
	} {
		_, err := users.Create(ctx, data)
		require.NoError(t, err)
	}

	adults, err := users.Find().Where("age", ">=", 18).OrderBy("name", "asc").Limit(10).Execute(ctx)
	require.NoError(t, err)

	names := make([]string, len(adults))
	for i, r := range adults {
		require.NotEmpty(t, r.ID())
		names[i] = r["name"].(string)
	}
	// Dee got the default age of 18.
	assert.Equal(t, []string{"Ana", "Cid", "Dee"}, names)

	// Each call hands out an independent builder.
	assert.Empty(t, users.Find().Conditions())
}

func TestOperationsLogAtDebug(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	core, logs := observer.New(zapcore.DebugLevel)
	m, err := New("users", userSchema(), newClient(t), WithLogger(logger.FromZap(zap.New(core))))
	require.NoError(t, err)

	_, err = m.Create(ctx, map[string]any{"name": "Ana"}, WithID("ana"))
	require.NoError(t, err)
	_, err = m.DeleteByID(ctx, "ana")
	require.NoError(t, err)

	created := logs.FilterMessage("record created").All()
	require.Len(t, created, 1)
	assert.Equal(t, zapcore.DebugLevel, created[0].Level)
	assert.Equal(t, "model", created[0].ContextMap()["component"])
	assert.Equal(t, "users", created[0].ContextMap()["collection"])
	assert.Equal(t, "ana", created[0].ContextMap()["id"])
	assert.Equal(t, 1, logs.FilterMessage("record deleted").Len())
}

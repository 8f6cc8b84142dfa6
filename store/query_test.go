package store

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUsers(t *testing.T) *CollectionRef {
	t.Helper()
	ctx := context.Background()
	users := newTestClient(t).Collection("users")

	docs := map[string]map[string]any{
		"a": {"name": "Ana", "age": 30, "tags": []string{"go", "rust"}, "address": map[string]any{"city": "Lisbon"}},
		"b": {"name": "Bob", "age": 17, "tags": []string{"go"}},
		"c": {"name": "Cid", "age": 45, "tags": []string{"js"}},
		"d": {"name": "Dee", "age": 30},
		"e": {"name": "Eve"},
	}
	for id, fields := range docs {
		require.NoError(t, users.Doc(id).Set(ctx, fields))
	}
	return users
}

func ids(t *testing.T, q Query) []string {
	t.Helper()
	snaps, err := q.Get(context.Background())
	require.NoError(t, err)
	out := make([]string, len(snaps))
	for i, s := range snaps {
		require.True(t, s.Exists())
		out[i] = s.ID
	}
	return out
}

func TestQuery(t *testing.T) {
	t.Parallel()
	users := seedUsers(t)
	all := users.Query()

	cases := []struct {
		name string
		q    Query
		want []string
	}{
		{"no constraints", all, []string{"a", "b", "c", "d", "e"}},
		{"where and order", all.Where("age", ">=", 18).OrderBy("name", Asc), []string{"a", "c", "d"}},
		{"order desc ties on id", all.OrderBy("age", Desc), []string{"c", "d", "a", "b"}},
		{"limit", all.OrderBy("name", Asc).Limit(2), []string{"a", "b"}},
		{"limit to last", all.OrderBy("name", Asc).LimitToLast(2), []string{"d", "e"}},
		{"offset", all.OrderBy("name", Asc).Offset(1).Limit(2), []string{"b", "c"}},
		{"offset past end", all.Offset(10), []string{}},
		{"equal", all.Where("age", "==", 30), []string{"a", "d"}},
		{"equal across number types", all.Where("age", "==", 30.0), []string{"a", "d"}},
		{"not equal skips missing", all.Where("age", "!=", 30), []string{"b", "c"}},
		{"less", all.Where("age", "<", 30), []string{"b"}},
		{"less equal", all.Where("age", "<=", 30), []string{"a", "b", "d"}},
		{"greater", all.Where("age", ">", 30), []string{"c"}},
		{"range needs same type", all.Where("age", "<", "z"), []string{}},
		{"in", all.Where("name", "in", []string{"Ana", "Eve"}), []string{"a", "e"}},
		{"not in", all.Where("age", "not-in", []int{30}), []string{"b", "c"}},
		{"array contains", all.Where("tags", "array-contains", "go"), []string{"a", "b"}},
		{"array contains any", all.Where("tags", "array-contains-any", []any{"js", "rust"}), []string{"a", "c"}},
		{"nested path", all.Where("address.city", "==", "Lisbon"), []string{"a"}},
		{"document id", all.Where(DocumentID, "in", []string{"c", "a"}), []string{"a", "c"}},
		{"conjunction", all.Where("age", ">=", 18).Where("tags", "array-contains", "go"), []string{"a"}},
		{"start after value", all.OrderBy("name", Asc).StartAfter("Bob"), []string{"c", "d", "e"}},
		{"end before value", all.OrderBy("name", Asc).EndBefore("Dee"), []string{"a", "b", "c"}},
		{"cursor window", all.OrderBy("name", Asc).StartAfter("Ana").EndBefore("Eve"), []string{"b", "c", "d"}},
		{"cursor on id", all.StartAfter("c"), []string{"d", "e"}},
		{"cursor prefix", all.OrderBy("age", Asc).StartAfter(17), []string{"a", "d", "c"}},
		{"cursor desc", all.OrderBy("age", Desc).StartAfter(30), []string{"b"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, ids(t, tc.q)); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestQueryStartAfterSnapshot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	users := seedUsers(t)

	ana, err := users.Doc("a").Get(ctx)
	require.NoError(t, err)

	byAge := users.Query().OrderBy("age", Asc)
	assert.Equal(t, []string{"d", "c"}, ids(t, byAge.StartAfter(ana)))
	assert.Equal(t, []string{"b"}, ids(t, byAge.EndBefore(ana)))

	eve, err := users.Doc("e").Get(ctx)
	require.NoError(t, err)
	_, err = byAge.StartAfter(eve).Get(ctx)
	assert.ErrorIs(t, err, ErrInvalidQuery)

	missing, err := users.Doc("zz").Get(ctx)
	require.NoError(t, err)
	_, err = byAge.StartAfter(missing).Get(ctx)
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestQueryIsImmutable(t *testing.T) {
	t.Parallel()
	users := seedUsers(t)

	base := users.Query().Where("age", ">=", 18)
	asc := base.OrderBy("name", Asc).Limit(1)
	desc := base.OrderBy("name", Desc)

	assert.Equal(t, []string{"a"}, ids(t, asc))
	assert.Equal(t, []string{"d", "c", "a"}, ids(t, desc))
	assert.Equal(t, []string{"a", "c", "d"}, ids(t, base))

	// Re-running a query runs it again against current data.
	require.NoError(t, users.Doc("f").Set(context.Background(), map[string]any{"name": "Fay", "age": 50}))
	assert.Equal(t, []string{"a", "c", "d", "f"}, ids(t, base))
}

func TestQueryErrors(t *testing.T) {
	t.Parallel()
	users := seedUsers(t)
	all := users.Query()

	bad := map[string]Query{
		"unknown operator":       all.Where("age", "~=", 1),
		"in needs list":          all.Where("age", "in", 30),
		"array any needs list":   all.Where("tags", "array-contains-any", "go"),
		"empty path":             all.Where("", "==", 1),
		"bad direction":          all.OrderBy("age", Direction(9)),
		"negative limit":         all.Limit(-1),
		"negative offset":        all.Offset(-1),
		"limit to last no order": all.LimitToLast(1),
		"empty cursor":           all.StartAfter(),
		"too many cursor values": all.OrderBy("age", Asc).StartAfter(1, "a", "b"),
		"first error wins":       all.Where("age", "~=", 1).Limit(-1),
	}
	for name, q := range bad {
		t.Run(name, func(t *testing.T) {
			_, err := q.Get(context.Background())
			assert.ErrorIs(t, err, ErrInvalidQuery)
		})
	}
}

func TestParseDirection(t *testing.T) {
	t.Parallel()

	d, err := ParseDirection("DESC")
	require.NoError(t, err)
	assert.Equal(t, Desc, d)
	assert.Equal(t, "desc", d.String())

	_, err = ParseDirection("up")
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

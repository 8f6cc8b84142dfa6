package store

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareValuesCrossType(t *testing.T) {
	t.Parallel()

	now := time.Now()
	// Ascending by type rank.
	ordered := []any{nil, false, true, -1, 2.5, int64(3), now, "a", "b", []any{1}, map[string]any{"a": 1}}
	for i := 0; i+1 < len(ordered); i++ {
		assert.Equal(t, -1, compareValues(ordered[i], ordered[i+1]), "%v < %v", ordered[i], ordered[i+1])
		assert.Equal(t, 1, compareValues(ordered[i+1], ordered[i]), "%v > %v", ordered[i+1], ordered[i])
	}
}

func TestCompareValues(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, compareValues(30, int64(30)))
	assert.Equal(t, 0, compareValues(uint8(7), 7.0))
	assert.Equal(t, -1, compareValues(math.NaN(), -1e300))
	assert.Equal(t, 0, compareValues([]string{"a", "b"}, []any{"a", "b"}))
	assert.Equal(t, -1, compareValues([]any{"a"}, []any{"a", "b"}))
	assert.Equal(t, 1, compareValues(map[string]any{"b": 1}, map[string]any{"a": 1}))
	assert.Equal(t, 0, compareValues(map[string]int{"a": 1}, map[string]any{"a": int64(1)}))

	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, -1, compareValues(t1, t1.Add(time.Second)))
	assert.Equal(t, 0, compareValues(&t1, t1))
}

func TestPaths(t *testing.T) {
	t.Parallel()

	doc := map[string]any{"a": map[string]any{"b": map[string]any{"c": 1}}, "x": 2}

	v, ok := getPath(doc, "a.b.c")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = getPath(doc, "a.z")
	assert.False(t, ok)
	_, ok = getPath(doc, "x.y")
	assert.False(t, ok)

	setPath(doc, "a.b.d", 3)
	setPath(doc, "x.y", 4)
	setPath(doc, "n.m", 5)
	assert.Equal(t, map[string]any{
		"a": map[string]any{"b": map[string]any{"c": 1, "d": 3}},
		"x": map[string]any{"y": 4},
		"n": map[string]any{"m": 5},
	}, doc)

	assert.True(t, validPath("a.b"))
	assert.False(t, validPath("a..b"))
	assert.False(t, validPath(""))
}

func TestCodecRoundTrip(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("X", 3600)
	at := time.Date(2024, 2, 3, 4, 5, 6, 7, loc)

	data, err := encodeDocument(map[string]any{
		"int":    42,
		"float":  0.25,
		"big":    int64(1) << 60,
		"when":   at,
		"list":   [2]int{1, 2},
		"nested": map[string]any{"when": &at, "ok": true},
		"plain":  map[string]any{"$date": "not-a-date"},
		"bytes":  []byte("hi"),
	})
	require.NoError(t, err)

	got, err := decodeDocument(data)
	require.NoError(t, err)

	assert.Equal(t, int64(42), got["int"])
	assert.Equal(t, 0.25, got["float"])
	assert.Equal(t, int64(1)<<60, got["big"])
	assert.True(t, at.Equal(got["when"].(time.Time)))
	assert.Equal(t, time.UTC, got["when"].(time.Time).Location())
	assert.Equal(t, []any{int64(1), int64(2)}, got["list"])
	assert.True(t, at.Equal(got["nested"].(map[string]any)["when"].(time.Time)))
	assert.Equal(t, map[string]any{"$date": "not-a-date"}, got["plain"])
	// Byte slices are stored the way encoding/json does it: base64 text.
	assert.Equal(t, "aGk=", got["bytes"])
}

func TestDecodeEmptyDocument(t *testing.T) {
	t.Parallel()

	got, err := decodeDocument([]byte("null"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, got)

	_, err = decodeDocument([]byte("{"))
	assert.Error(t, err)
}

package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithAddsFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core)).With("component", "store")

	log.Info("document written", "collection", "users", "id", "a1")
	log.Debug("scan", "n", 3)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "document written", entries[0].Message)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "store", ctx["component"])
	assert.Equal(t, "users", ctx["collection"])
	assert.Equal(t, "a1", ctx["id"])
	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"":      zapcore.InfoLevel,
		"debug": zapcore.DebugLevel,
		"WARN":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := New(Config{Format: "xml"})
	assert.Error(t, err)

	l, err := New(Config{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestSetDefault(t *testing.T) {
	prev := Default()
	t.Cleanup(func() { SetDefault(prev) })

	core, logs := observer.New(zapcore.InfoLevel)
	SetDefault(FromZap(zap.New(core)))
	SetDefault(nil)

	Default().Warn("hello")
	assert.Equal(t, 1, logs.Len())
}

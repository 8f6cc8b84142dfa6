// Package logger provides the structured, leveled logger shared by every
// component. It wraps a zap SugaredLogger behind a small key/value interface
// so packages depend on [Logger] rather than on zap directly.
//
//	log := logger.Default().With("component", "store")
//	log.Info("document written", "collection", "users", "id", id)
package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a structured logger taking alternating key/value pairs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)

	// With returns a child logger that always includes the given pairs.
	With(keysAndValues ...any) Logger

	// Sync flushes buffered entries.
	Sync() error
}

// Config selects level and encoding for [New].
type Config struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// Format is "json" or "console". Empty means json.
	Format string
}

type zapLogger struct {
	s *zap.SugaredLogger
}

// Compile-time interface check.
var _ Logger = (*zapLogger)(nil)

func (l *zapLogger) Debug(msg string, kv ...any) { l.s.Debugw(msg, kv...) }
func (l *zapLogger) Info(msg string, kv ...any)  { l.s.Infow(msg, kv...) }
func (l *zapLogger) Warn(msg string, kv ...any)  { l.s.Warnw(msg, kv...) }
func (l *zapLogger) Error(msg string, kv ...any) { l.s.Errorw(msg, kv...) }

func (l *zapLogger) With(kv ...any) Logger {
	return &zapLogger{s: l.s.With(kv...)}
}

func (l *zapLogger) Sync() error { return l.s.Sync() }

// FromZap adapts an existing zap logger.
func FromZap(z *zap.Logger) Logger {
	return &zapLogger{s: z.Sugar()}
}

// New builds a Logger writing to stderr.
func New(cfg Config) (Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var zc zap.Config
	switch strings.ToLower(cfg.Format) {
	case "", "json":
		zc = zap.NewProductionConfig()
	case "console":
		zc = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("logger: unknown format %q", cfg.Format)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}

	z, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("logger: build failed: %w", err)
	}
	return FromZap(z), nil
}

// ParseLevel maps a level name onto a zap level. Empty means info.
func ParseLevel(name string) (zapcore.Level, error) {
	if name == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(name))); err != nil {
		return lvl, fmt.Errorf("logger: unknown level %q", name)
	}
	return lvl, nil
}

// MustProduction returns a JSON logger at info level and panics on failure.
func MustProduction() Logger {
	l, err := New(Config{Level: "info", Format: "json"})
	if err != nil {
		panic(err)
	}
	return l
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return FromZap(zap.NewNop())
}

var (
	mu  sync.RWMutex
	def Logger = Nop()
)

// Default returns the process-wide logger. It discards output until
// SetDefault is called.
func Default() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return def
}

// SetDefault replaces the process-wide logger. A nil logger is ignored.
func SetDefault(l Logger) {
	if l == nil {
		return
	}
	mu.Lock()
	def = l
	mu.Unlock()
}

// SyncDefault flushes the process-wide logger, ignoring errors from
// unsyncable outputs such as terminals.
func SyncDefault() {
	_ = Default().Sync()
}

// Fatal logs at error level on the default logger, flushes it and exits.
func Fatal(msg string, keysAndValues ...any) {
	Default().Error(msg, keysAndValues...)
	SyncDefault()
	os.Exit(1)
}

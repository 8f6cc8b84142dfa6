package store

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/beyondbrewing/brewery-odm/db"
	"github.com/beyondbrewing/brewery-odm/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
)

// Backend names understood by [OpenBackend].
const (
	BackendMemory   = "memory"
	BackendPebble   = "pebble"
	BackendSQLite   = "sqlite"
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// BackendConfig selects and locates a backend.
type BackendConfig struct {
	// Name is one of the Backend* constants. Empty means memory.
	Name string

	// Path is the data directory for pebble and file, or the database file
	// for sqlite (a directory is accepted and gets "odm.db" appended).
	Path string

	// DSN is the connection string for postgres.
	DSN string

	// Registerer, when set, instruments the backend with Prometheus metrics.
	Registerer prometheus.Registerer

	// Logger is handed to backends that log. Falls back to logger.Default().
	Logger logger.Logger
}

// OpenBackend creates the backend described by cfg.
//
// Supported backends:
//
//	"memory"   - in-memory (ephemeral, for tests and experiments)
//	"pebble"   - Pebble LSM database in Path
//	"sqlite"   - SQLite database file at Path
//	"file"     - one JSON file per collection in Path
//	"postgres" - PostgreSQL at DSN
func OpenBackend(ctx context.Context, cfg BackendConfig) (Backend, error) {
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}

	var (
		b   Backend
		err error
	)
	switch cfg.Name {
	case BackendMemory, "":
		b = NewMemoryBackend()
	case BackendPebble:
		if cfg.Path == "" {
			return nil, fmt.Errorf("%w: pebble backend needs a path", ErrInvalidConfig)
		}
		b, err = NewPebbleBackend(cfg.Path, db.WithLogger(log))
	case BackendSQLite:
		if cfg.Path == "" {
			return nil, fmt.Errorf("%w: sqlite backend needs a path", ErrInvalidConfig)
		}
		path := cfg.Path
		if filepath.Ext(path) == "" {
			path = filepath.Join(path, "odm.db")
		}
		b, err = NewSQLiteBackend(path)
	case BackendFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("%w: file backend needs a path", ErrInvalidConfig)
		}
		b, err = NewFileBackend(cfg.Path)
	case BackendPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("%w: postgres backend needs a dsn", ErrInvalidConfig)
		}
		b, err = NewPostgresBackend(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: %q (supported: memory, pebble, sqlite, file, postgres)", ErrUnknownBackend, cfg.Name)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Registerer != nil {
		ib, err := Instrument(b, cfg.Registerer)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("store: instrument backend: %w", err)
		}
		b = ib
	}

	log.With("component", "store").Info("backend opened", "backend", b.Name(), "path", cfg.Path)
	return b, nil
}

// Open creates the backend described by cfg and a Client over it.
func Open(ctx context.Context, cfg BackendConfig, opts ...Option) (*Client, error) {
	b, err := OpenBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Logger != nil {
		opts = append([]Option{WithLogger(cfg.Logger)}, opts...)
	}
	c, err := NewClient(b, opts...)
	if err != nil {
		b.Close()
		return nil, err
	}
	return c, nil
}

package db

import (
	"runtime"

	"github.com/beyondbrewing/brewery-odm/pkg/logger"
	"github.com/cockroachdb/pebble/vfs"
)

// Config holds all tunable parameters for a [PebbleDB] instance.
// Use functional [Option] values with [Open] rather than constructing
// a Config directly.
type Config struct {
	// CacheSize is the shared block-cache capacity in bytes.
	CacheSize int64

	// MemTableSize is the size of a single memtable in bytes.
	MemTableSize uint64

	// MaxConcurrentCompactions controls parallelism for background
	// compactions.
	MaxConcurrentCompactions int

	// MaxOpenFiles limits the number of open file descriptors Pebble
	// keeps open. Use 0 for unlimited.
	MaxOpenFiles int

	// SyncWrites controls whether each write is synced to stable storage.
	// Document writes are small and independent, so this defaults to true.
	SyncWrites bool

	// FS overrides the filesystem Pebble writes to. Nil means the OS
	// filesystem; vfs.NewMem() gives a throwaway in-memory database.
	FS vfs.FS

	// Logger receives structured operational log messages.
	// If not set, the global logger.Default() is used.
	Logger logger.Logger
}

// DefaultConfig returns a Config tuned for a document workload: point
// lookups, small writes, and full scans of one collection at a time.
func DefaultConfig() *Config {
	return &Config{
		CacheSize:                64 << 20, // 64 MB
		MemTableSize:             16 << 20, // 16 MB
		MaxConcurrentCompactions: max(1, runtime.NumCPU()/2),
		MaxOpenFiles:             0,
		SyncWrites:               true,
	}
}

// Option is a functional option applied to [Config] during [Open].
type Option func(*Config)

// WithCacheSize sets the shared block-cache capacity in bytes.
func WithCacheSize(size int64) Option {
	return func(c *Config) { c.CacheSize = size }
}

// WithMemTableSize sets the memtable size in bytes.
func WithMemTableSize(size uint64) Option {
	return func(c *Config) { c.MemTableSize = size }
}

// WithMaxConcurrentCompactions sets background compaction parallelism.
func WithMaxConcurrentCompactions(n int) Option {
	return func(c *Config) { c.MaxConcurrentCompactions = n }
}

// WithMaxOpenFiles limits the number of open file descriptors.
func WithMaxOpenFiles(n int) Option {
	return func(c *Config) { c.MaxOpenFiles = n }
}

// WithSyncWrites toggles per-write fsync.
func WithSyncWrites(sync bool) Option {
	return func(c *Config) { c.SyncWrites = sync }
}

// WithFS sets the filesystem implementation.
func WithFS(fs vfs.FS) Option {
	return func(c *Config) { c.FS = fs }
}

// WithLogger sets a custom logger for the database.
func WithLogger(l logger.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

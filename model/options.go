package model

import "github.com/beyondbrewing/brewery-odm/pkg/logger"

// Config holds the settings of a [Model].
type Config struct {
	// Logger receives debug entries for every operation.
	// Falls back to logger.Default() if nil.
	Logger logger.Logger
}

// Option is a functional option for configuring a Model.
type Option func(*Config)

// DefaultConfig returns an empty Config.
func DefaultConfig() *Config {
	return &Config{}
}

// WithLogger sets a structured logger for the model.
func WithLogger(l logger.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// writeConfig collects per-call options of Create and UpdateByID.
type writeConfig struct {
	id             string
	skipValidation bool
}

// WriteOption adjusts a single write.
type WriteOption func(*writeConfig)

// WithID makes Create write at the given id instead of a generated one.
// UpdateByID ignores it.
func WithID(id string) WriteOption {
	return func(c *writeConfig) { c.id = id }
}

// SkipValidation writes the data as given, bypassing the schema.
func SkipValidation() WriteOption {
	return func(c *writeConfig) { c.skipValidation = true }
}

func newWriteConfig(opts []WriteOption) writeConfig {
	var cfg writeConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

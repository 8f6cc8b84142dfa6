package store

import (
	"fmt"

	"github.com/beyondbrewing/brewery-odm/pkg/logger"
	"github.com/google/uuid"
)

// Config holds the settings of a [Client].
type Config struct {
	// NewID generates ids for documents added without one.
	NewID func() string

	// Logger receives debug entries for every document operation.
	// Falls back to logger.Default() if nil.
	Logger logger.Logger
}

// Option is a functional option for configuring a Client.
type Option func(*Config)

// DefaultConfig returns a Config assigning random UUIDs.
func DefaultConfig() *Config {
	return &Config{
		NewID: uuid.NewString,
	}
}

func (c *Config) validate() error {
	if c.NewID == nil {
		return fmt.Errorf("%w: NewID must not be nil", ErrInvalidConfig)
	}
	return nil
}

// WithIDGenerator replaces the generator of automatic document ids.
func WithIDGenerator(fn func() string) Option {
	return func(c *Config) { c.NewID = fn }
}

// WithLogger sets a structured logger for the client.
func WithLogger(l logger.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

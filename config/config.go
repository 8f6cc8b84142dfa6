package config

import (
	"fmt"

	"github.com/beyondbrewing/brewery-odm/utils"
	"github.com/spf13/viper"
)

// injected configurations
var (
	APP_NAME    string = "brewery-odm"
	APP_VERSION string = "0.0.1"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "ODM"

// Config holds the runtime settings of the odm binary.
type Config struct {
	// Backend names the document backend: memory, pebble, sqlite, file or
	// postgres.
	Backend string `mapstructure:"backend"`

	// Path is the data location for pebble, sqlite and file backends.
	Path string `mapstructure:"path"`

	// DSN is the postgres connection string.
	DSN string `mapstructure:"dsn"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// Metrics enables Prometheus instrumentation of the backend.
	Metrics bool `mapstructure:"metrics"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", "file")
	v.SetDefault("path", "./data")
	v.SetDefault("dsn", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("metrics", false)
}

// Load resolves the configuration from, in increasing precedence: defaults,
// the optional config file at path (any format viper reads), a .env file in
// the working directory, and ODM_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := utils.ImportEnv("."); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return &cfg, nil
}

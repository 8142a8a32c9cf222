// Package config loads the ETL's settings from environment variables.
// Defaults apply for unset values, and all settings are validated on startup
// so a misconfigured run fails before reading any input.
package config

import "time"

// Config holds all run configuration.
// Input paths come from flags; everything else from the environment.
type Config struct {
	Input    InputConfig
	Output   OutputConfig
	Database DatabaseConfig
	Logging  LoggingConfig
}

// InputConfig holds source reading settings.
type InputConfig struct {
	// MaxFileSize is the largest accepted source file in bytes (default: 100MB, 0 disables)
	MaxFileSize int64 `env:"INPUT_MAX_FILE_SIZE" default:"104857600"`
}

// OutputConfig holds artifact settings.
type OutputConfig struct {
	// Format is the dataset encoding: auto, parquet or csv (default: auto)
	Format string `env:"OUTPUT_FORMAT" default:"auto"`
}

// DatabaseConfig holds the optional PostgreSQL loader settings.
// The loader is disabled when URL is empty.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// Table receives the merged dataset (default: customer_360)
	Table string `env:"DB_TABLE" default:"customer_360"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// LoadTimeout bounds the whole load transaction (default: 5m)
	LoadTimeout time.Duration `env:"DB_LOAD_TIMEOUT" default:"5m"`
}

// Enabled reports whether a database load was requested.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

package config

import (
	"time"

	"github.com/phrazzld/scry-fsrs/internal/domain/srs"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
	Redis     RedisConfig     `mapstructure:"redis"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseConfig contains all database-related configuration settings.
// URL is a connection string for postgres and a file path (or ":memory:") for sqlite.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=postgres sqlite"`
	URL    string `mapstructure:"url" validate:"required"`
}

// SchedulerConfig holds the process-wide scheduler parameters.
type SchedulerConfig struct {
	RequestedRetention  float64   `mapstructure:"requested_retention" validate:"gt=0,lt=1"`
	MaximumIntervalDays int       `mapstructure:"maximum_interval_days" validate:"gte=1"`
	Weights             []float64 `mapstructure:"weights" validate:"omitempty,len=17"`
}

// ParamsConfig converts the section into scheduler overrides.
func (c SchedulerConfig) ParamsConfig() srs.ParamsConfig {
	return srs.ParamsConfig{
		RequestedRetention:  c.RequestedRetention,
		MaximumIntervalDays: c.MaximumIntervalDays,
		Weights:             c.Weights,
	}
}

// RedisConfig enables the distributed card locker when Addr is set.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr" validate:"omitempty,hostname_port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db" validate:"gte=0"`
	LockTTL  time.Duration `mapstructure:"lock_ttl" validate:"gt=0"`
}

// Enabled reports whether a Redis server is configured.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

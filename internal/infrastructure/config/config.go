package config

import (
	"fmt"
	"time"

	"github.com/GriffinCanCode/otelpipe/internal/telemetry/resource"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	App       AppConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Telemetry TelemetryConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// AppConfig identifies the running service.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME"`
	Version     string `envconfig:"APP_VERSION"`
	Environment string `envconfig:"APP_ENV" default:"dev"`
}

// Resource builds the service identity attached to all telemetry.
func (a AppConfig) Resource() (resource.Descriptor, error) {
	env, err := resource.ParseEnvironment(a.Environment)
	if err != nil {
		return resource.Descriptor{}, &ConfigurationError{Field: "APP_ENV", Reason: err.Error()}
	}
	return resource.Descriptor{
		ServiceName:    a.Name,
		ServiceVersion: a.Version,
		Environment:    env,
	}, nil
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// TelemetryConfig holds export target and batching configuration.
type TelemetryConfig struct {
	Enabled  bool   `envconfig:"OTEL_ENABLED" default:"true"`
	Type     string `envconfig:"TRACE_TYPE" default:"console"`
	Endpoint string `envconfig:"OTLP_ENDPOINT"`
	APIKey   string `envconfig:"OTLP_API_KEY"`
	Protocol string `envconfig:"OTLP_PROTOCOL" default:"http"`
	Insecure bool   `envconfig:"OTLP_INSECURE" default:"false"`
	// Backend selects vendor conventions, e.g. "newrelic" adds trace.id and
	// span.id attributes to log records.
	Backend string `envconfig:"OTEL_BACKEND"`

	MaxQueueSize       int           `envconfig:"OTEL_MAX_QUEUE_SIZE" default:"1000"`
	MaxExportBatchSize int           `envconfig:"OTEL_MAX_EXPORT_BATCH_SIZE" default:"512"`
	FlushInterval      time.Duration `envconfig:"OTEL_FLUSH_INTERVAL" default:"1s"`
	ExportTimeout      time.Duration `envconfig:"OTEL_EXPORT_TIMEOUT" default:"2s"`
	ShutdownTimeout    time.Duration `envconfig:"OTEL_SHUTDOWN_TIMEOUT" default:"5s"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		App: AppConfig{
			Environment: "dev",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Telemetry: TelemetryConfig{
			Enabled:            true,
			Type:               "console",
			Protocol:           string(ProtocolHTTP),
			MaxQueueSize:       1000,
			MaxExportBatchSize: 512,
			FlushInterval:      time.Second,
			ExportTimeout:      2 * time.Second,
			ShutdownTimeout:    5 * time.Second,
		},
	}
}

// Validate reports every configuration problem at once. Any error is fatal
// at startup.
func (c *Config) Validate() error {
	var err error

	if c.App.Name == "" {
		err = multierr.Append(err, &ConfigurationError{Field: "APP_NAME", Reason: "required"})
	}
	if c.App.Version == "" {
		err = multierr.Append(err, &ConfigurationError{Field: "APP_VERSION", Reason: "required"})
	}
	if _, rerr := c.App.Resource(); rerr != nil {
		err = multierr.Append(err, rerr)
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		err = multierr.Append(err, &ConfigurationError{Field: "RATE_LIMIT_RPS", Reason: "must be positive"})
	}

	return multierr.Append(err, c.Telemetry.Validate())
}

// Validate checks the export target and tuning values.
func (t TelemetryConfig) Validate() error {
	var err error

	if _, terr := t.Target(); terr != nil {
		err = multierr.Append(err, terr)
	}
	if t.MaxQueueSize <= 0 {
		err = multierr.Append(err, &ConfigurationError{Field: "OTEL_MAX_QUEUE_SIZE", Reason: "must be positive"})
	}
	if t.MaxExportBatchSize <= 0 {
		err = multierr.Append(err, &ConfigurationError{Field: "OTEL_MAX_EXPORT_BATCH_SIZE", Reason: "must be positive"})
	}
	if t.FlushInterval <= 0 {
		err = multierr.Append(err, &ConfigurationError{Field: "OTEL_FLUSH_INTERVAL", Reason: "must be positive"})
	}
	if t.ExportTimeout <= 0 {
		err = multierr.Append(err, &ConfigurationError{Field: "OTEL_EXPORT_TIMEOUT", Reason: "must be positive"})
	}
	if t.ShutdownTimeout <= 0 {
		err = multierr.Append(err, &ConfigurationError{Field: "OTEL_SHUTDOWN_TIMEOUT", Reason: "must be positive"})
	}
	return err
}

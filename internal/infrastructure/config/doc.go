// Package config provides 12-factor configuration management for the
// telemetry pipeline and its demo server.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags in cmd/server can override them.
//
// Configuration Sections:
//   - Server: HTTP listener settings (port, host)
//   - App: service identity reported on every span and log record
//   - Logging: log level and output format
//   - RateLimit: per-IP rate limiting for the demo routes
//   - Telemetry: export target, queue tuning, and shutdown budget
//
// Example Usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//		return err
//	}
//	target, err := cfg.Telemetry.Target()
//
// Environment Variables:
//   - PORT, HOST
//   - APP_NAME, APP_VERSION, APP_ENV
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - OTEL_ENABLED, TRACE_TYPE, OTLP_ENDPOINT, OTLP_API_KEY, OTLP_PROTOCOL,
//     OTLP_INSECURE, OTEL_BACKEND
//   - OTEL_MAX_QUEUE_SIZE, OTEL_MAX_EXPORT_BATCH_SIZE, OTEL_FLUSH_INTERVAL,
//     OTEL_EXPORT_TIMEOUT, OTEL_SHUTDOWN_TIMEOUT
package config

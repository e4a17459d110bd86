// Command server runs the demo HTTP service with the telemetry pipeline
// attached.
//
// Configuration comes from the environment (APP_NAME and APP_VERSION are
// required); flags override the most common settings:
//
//	server --port 8080 --trace-type otlp --otlp-endpoint https://otlp.example.com
//
// On SIGINT or SIGTERM the HTTP server stops, pending log records are
// exported, then pending spans, and the process exits 0. If draining fails
// or exceeds OTEL_SHUTDOWN_TIMEOUT the process exits 1 without waiting
// further.
package main

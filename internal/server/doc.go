// Package server assembles the demo HTTP service whose requests and logs
// feed the telemetry pipeline.
//
// Middleware order, outermost first:
//   - recovery
//   - request tracing and the request-scoped logger
//   - HTTP metrics
//   - CORS
//   - per-client rate limiting (when enabled)
//
// Example Usage:
//
//	srv := server.NewServer(cfg, server.Deps{Telemetry: p, Metrics: m, Logger: appLogger})
//	go srv.Run()
//	<-p.ShutdownRequested()
//	srv.Shutdown(ctx)
package server

// Package logging provides structured logging using uber/zap.
//
// Loggers come in two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// The package also bridges zap into the telemetry pipeline. A pipeline core
// receives every entry the application logs and hands it to a LogSink as a
// raw log record, correlated with the request span when the logger carries
// one:
//
//	base, err := logging.New(logging.ConfigFor("info", false))
//	app := logging.Tee(base, logging.NewPipelineCore(pipeline, base.Level()))
//	reqLogger := app.With(logging.SpanContext(span.SpanContext()))
//	reqLogger.Info("request completed", zap.Int("status", 200))
//
// The pipeline reports its own failures on the base logger so telemetry
// errors never produce more telemetry.
package logging

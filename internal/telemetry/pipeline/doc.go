/*
Package pipeline owns the telemetry lifecycle of the process.

A Pipeline is built once at startup from the resolved export target. It
creates the span tracker, the log translator and one batch exporter each for
spans and logs, and exposes the hooks the rest of the application calls:

	p, err := pipeline.New(ctx, pipeline.Settings{
		Target:   target,
		Resource: res,
		Spans:    export.DefaultConfig("spans"),
		Logs:     export.DefaultConfig("logs"),
		Logger:   baseLogger,
	})

	router.Use(tracing.HTTPMiddleware(p, appLogger))
	appLogger := logging.Tee(base, logging.NewPipelineCore(p, level))

When the target is disabled no exporter exists and every hook is a no-op.

# Shutdown

RequestShutdown only signals; it is safe from a signal handler. Shutdown
drains the log exporter first and then the span exporter, so log lines
written while a request finishes still precede the span that ends it. If the
deadline passes, Shutdown returns anyway and the drain is abandoned. Run
combines both into an exit code for main.
*/
package pipeline

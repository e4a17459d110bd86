/*
Package tracing tracks the span of every inbound request.

# Overview

A Tracker opens one server span per request, lets the request path annotate
it, and hands the finished record to a SpanSink (normally the span batch
exporter) exactly once. The span travels with the request context so nested
work can open child spans and log lines can be correlated with the trace.

# Usage

	tracker := tracing.NewTracker(spanExporter)

	// HTTP middleware
	router.Use(tracing.HTTPMiddleware(pipeline, logger))

	// gRPC server interceptor
	server := grpc.NewServer(
		grpc.UnaryInterceptor(tracing.GRPCUnaryInterceptor(pipeline)),
	)

	// Nested work
	ctx, span := tracker.StartChild(ctx, "db.query")
	defer func() { tracker.EndChild(span, err) }()

# Trace Format

Incoming W3C traceparent headers are honoured: the request span joins the
remote trace with the caller's span as parent. Responses carry traceparent
and X-Request-ID so callers can correlate.

# Lifecycle

Span handles are nil-safe. SetAttribute after End is ignored and End is
idempotent, so late instrumentation calls never corrupt exported data.
*/
package tracing

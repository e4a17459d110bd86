/*
Package monitoring exposes the health of the telemetry pipeline itself.

# Overview

Metrics implements the exporter observer interface and counts what happens
to telemetry records: enqueued, dropped (with reason), exported, and failed
exports. It also counts log lines the translator could not parse, and
keeps a small set of request metrics for the HTTP server. These counters are
a side channel: they never flow through the pipeline they describe.

# Usage

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	spans := export.New(cfg, transport, export.WithObserver(metrics))

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

# Metrics

	otelpipe_records_enqueued_total{exporter}
	otelpipe_records_dropped_total{exporter,reason}
	otelpipe_records_exported_total{exporter}
	otelpipe_export_failures_total{exporter}
	otelpipe_translation_errors_total
	otelpipe_http_requests_total{method,path,status}
	otelpipe_http_request_duration_seconds{method,path}
*/
package monitoring

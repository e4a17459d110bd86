/*
Package transport performs the network hand-off of telemetry batches.

Every type here satisfies export.Transport for either span records or log
records:

  - Console writes one JSON line per batch to an io.Writer.
  - OTLPSpans uploads spans through the OpenTelemetry OTLP trace client,
    over HTTP or gRPC.
  - OTLPLogsHTTP posts gzip-compressed OTLP protobuf to <endpoint>/v1/logs.
  - OTLPLogsGRPC calls the OTLP logs service over gRPC.
  - Guarded wraps any of the above with a circuit breaker.

Remote transports never retry. A failed batch is reported to the exporter,
which discards it.
*/
package transport

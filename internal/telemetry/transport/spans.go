package transport

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"

	"github.com/GriffinCanCode/otelpipe/internal/infrastructure/config"
	"github.com/GriffinCanCode/otelpipe/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/otelpipe/internal/telemetry/resource"
)

// OTLPSpans uploads span batches with an OTLP trace client.
type OTLPSpans struct {
	client otlptrace.Client
	res    resource.Descriptor
}

// NewOTLPSpans builds an OTLP trace client for remote and starts it. The
// client's own retry loop is disabled; the exporter discards failed batches.
func NewOTLPSpans(ctx context.Context, remote config.Remote, res resource.Descriptor, timeout time.Duration) (*OTLPSpans, error) {
	headers := map[string]string{APIKeyHeader: remote.Token}

	var client otlptrace.Client
	switch remote.Protocol {
	case config.ProtocolGRPC:
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpointURL(remote.URL),
			otlptracegrpc.WithHeaders(headers),
			otlptracegrpc.WithCompressor("gzip"),
			otlptracegrpc.WithTimeout(timeout),
			otlptracegrpc.WithRetry(otlptracegrpc.RetryConfig{Enabled: false}),
		}
		if remote.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		client = otlptracegrpc.NewClient(opts...)
	default:
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpointURL(remote.URL + TracesPath),
			otlptracehttp.WithHeaders(headers),
			otlptracehttp.WithCompression(otlptracehttp.GzipCompression),
			otlptracehttp.WithTimeout(timeout),
			otlptracehttp.WithRetry(otlptracehttp.RetryConfig{Enabled: false}),
		}
		if remote.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		client = otlptracehttp.NewClient(opts...)
	}

	if err := client.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start otlp trace client: %w", err)
	}
	return NewOTLPSpansWithClient(client, res), nil
}

// NewOTLPSpansWithClient wraps an already started client.
func NewOTLPSpansWithClient(client otlptrace.Client, res resource.Descriptor) *OTLPSpans {
	return &OTLPSpans{client: client, res: res}
}

// Export uploads batch.
func (t *OTLPSpans) Export(ctx context.Context, batch []tracing.SpanRecord) error {
	return t.client.UploadTraces(ctx, SpansToProto(t.res, batch))
}

// Shutdown stops the client.
func (t *OTLPSpans) Shutdown(ctx context.Context) error {
	return t.client.Stop(ctx)
}

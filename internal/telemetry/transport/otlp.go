package transport

import (
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	logspb "go.opentelemetry.io/proto/otlp/logs/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"

	"github.com/GriffinCanCode/otelpipe/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/otelpipe/internal/telemetry/attr"
	"github.com/GriffinCanCode/otelpipe/internal/telemetry/logrecord"
	"github.com/GriffinCanCode/otelpipe/internal/telemetry/resource"
)

// ScopeName is the instrumentation scope reported with every batch.
const ScopeName = resource.SDKName

// OTLP paths appended to the configured endpoint.
const (
	TracesPath = "/v1/traces"
	LogsPath   = "/v1/logs"
)

// APIKeyHeader carries the collector credential.
const APIKeyHeader = "api-key"

func scope(res resource.Descriptor) *commonpb.InstrumentationScope {
	return &commonpb.InstrumentationScope{Name: ScopeName, Version: res.ServiceVersion}
}

// SpansToProto encodes span records as OTLP resource spans.
func SpansToProto(res resource.Descriptor, spans []tracing.SpanRecord) []*tracepb.ResourceSpans {
	out := make([]*tracepb.Span, 0, len(spans))
	for _, s := range spans {
		ps := &tracepb.Span{
			TraceId:           s.TraceID[:],
			SpanId:            s.SpanID[:],
			Name:              s.Name,
			Kind:              tracepb.Span_SpanKind(s.Kind),
			StartTimeUnixNano: unixNano(s.StartTime),
			EndTimeUnixNano:   unixNano(s.EndTime),
			Attributes:        keyValues(s.Attributes),
			Status: &tracepb.Status{
				Code:    statusCode(s.Status),
				Message: s.StatusMessage,
			},
		}
		if s.HasParent() {
			ps.ParentSpanId = s.ParentSpanID[:]
		}
		out = append(out, ps)
	}

	return []*tracepb.ResourceSpans{{
		Resource: res.Proto(),
		ScopeSpans: []*tracepb.ScopeSpans{{
			Scope: scope(res),
			Spans: out,
		}},
	}}
}

// LogsToProto encodes log records as an OTLP export request.
func LogsToProto(res resource.Descriptor, recs []logrecord.Record) *collogspb.ExportLogsServiceRequest {
	out := make([]*logspb.LogRecord, 0, len(recs))
	for _, r := range recs {
		pr := &logspb.LogRecord{
			TimeUnixNano:         unixNano(r.Timestamp),
			ObservedTimeUnixNano: unixNano(r.ObservedTimestamp),
			SeverityNumber:       logspb.SeverityNumber(r.SeverityNumber),
			SeverityText:         r.SeverityText,
			Body:                 &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: r.Body}},
			Attributes:           keyValues(r.Attributes),
		}
		if r.Correlated() {
			pr.TraceId = r.TraceID[:]
			pr.SpanId = r.SpanID[:]
		}
		out = append(out, pr)
	}

	return &collogspb.ExportLogsServiceRequest{
		ResourceLogs: []*logspb.ResourceLogs{{
			Resource: res.Proto(),
			ScopeLogs: []*logspb.ScopeLogs{{
				Scope:      scope(res),
				LogRecords: out,
			}},
		}},
	}
}

func keyValues(m attr.Map) []*commonpb.KeyValue {
	if len(m) == 0 {
		return nil
	}
	kvs := m.KeyValues()
	out := make([]*commonpb.KeyValue, 0, len(kvs))
	for _, kv := range kvs {
		out = append(out, &commonpb.KeyValue{Key: string(kv.Key), Value: anyValue(kv.Value)})
	}
	return out
}

func anyValue(v attribute.Value) *commonpb.AnyValue {
	switch v.Type() {
	case attribute.BOOL:
		return &commonpb.AnyValue{Value: &commonpb.AnyValue_BoolValue{BoolValue: v.AsBool()}}
	case attribute.INT64:
		return &commonpb.AnyValue{Value: &commonpb.AnyValue_IntValue{IntValue: v.AsInt64()}}
	case attribute.FLOAT64:
		return &commonpb.AnyValue{Value: &commonpb.AnyValue_DoubleValue{DoubleValue: v.AsFloat64()}}
	default:
		return &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: v.Emit()}}
	}
}

func statusCode(c codes.Code) tracepb.Status_StatusCode {
	switch c {
	case codes.Ok:
		return tracepb.Status_STATUS_CODE_OK
	case codes.Error:
		return tracepb.Status_STATUS_CODE_ERROR
	default:
		return tracepb.Status_STATUS_CODE_UNSET
	}
}

func unixNano(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}
	return uint64(t.UnixNano())
}

package logrecord

import (
	"errors"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/otelpipe/internal/telemetry/severity"
)

func testSpanContext(t *testing.T) trace.SpanContext {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	return trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
}

func TestTranslateSeverityAndBody(t *testing.T) {
	tr := NewTranslator(nil)
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	rec := tr.Translate(RawLog{Level: 50, Msg: "db down", Time: ts}, trace.SpanContext{})

	assert.Equal(t, severity.Error, rec.SeverityNumber)
	assert.Equal(t, "ERROR", rec.SeverityText)
	assert.Equal(t, "db down", rec.Body)
	assert.Equal(t, ts, rec.Timestamp)
	assert.Equal(t, int64(50), rec.Attributes[LevelKey].AsInt64())
}

func TestTranslatePrefixesRequestID(t *testing.T) {
	tr := NewTranslator(nil)

	rec := tr.Translate(RawLog{Level: 30, Msg: "incoming request", ReqID: "req_01HZX3ABCDEF"}, trace.SpanContext{})

	assert.Equal(t, "[req_01HZ] incoming request", rec.Body)
	assert.Equal(t, "req_01HZX3ABCDEF", rec.Attributes[ReqIDKey].AsString())

	short := tr.Translate(RawLog{Level: 30, Msg: "hi", ReqID: "r1"}, trace.SpanContext{})
	assert.Equal(t, "[r1] hi", short.Body)
}

func TestTranslateFlattensNestedAttributes(t *testing.T) {
	tr := NewTranslator(nil)

	rec := tr.Translate(RawLog{
		Level: 30,
		Msg:   "request completed",
		Fields: map[string]any{
			"res":        map[string]any{"statusCode": 200},
			"durationMs": 12.5,
			"cached":     false,
			"level":      30,
			"msg":        "ignored",
			"time":       123,
		},
	}, trace.SpanContext{})

	res, ok := rec.Attributes["res"]
	require.True(t, ok)
	assert.Equal(t, attribute.STRING, res.Type())
	assert.JSONEq(t, `{"statusCode":200}`, res.AsString())
	assert.Equal(t, 12.5, rec.Attributes["durationMs"].AsFloat64())
	assert.False(t, rec.Attributes["cached"].AsBool())
	assert.NotContains(t, rec.Attributes, "msg")
	assert.NotContains(t, rec.Attributes, "time")

	for key, v := range rec.Attributes {
		switch v.Type() {
		case attribute.STRING, attribute.INT64, attribute.FLOAT64, attribute.BOOL:
		default:
			t.Errorf("attribute %s has non-scalar type %s", key, v.Type())
		}
	}
}

func TestTranslateCorrelation(t *testing.T) {
	tr := NewTranslator(nil)
	sc := testSpanContext(t)

	rec := tr.Translate(RawLog{Level: 30, Msg: "with span"}, sc)
	assert.True(t, rec.Correlated())
	assert.Equal(t, sc.TraceID(), rec.TraceID)
	assert.Equal(t, sc.SpanID(), rec.SpanID)
	assert.NotContains(t, rec.Attributes, TraceIDKey)

	rec = tr.Translate(RawLog{Level: 30, Msg: "without span"}, trace.SpanContext{})
	assert.False(t, rec.Correlated())
	assert.False(t, rec.TraceID.IsValid())
	assert.False(t, rec.SpanID.IsValid())
}

func TestTranslateTraceAttributes(t *testing.T) {
	tr := NewTranslator(nil, WithTraceAttributes())
	sc := testSpanContext(t)

	rec := tr.Translate(RawLog{Level: 30, Msg: "joined"}, sc)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", rec.Attributes[TraceIDKey].AsString())
	assert.Equal(t, "00f067aa0ba902b7", rec.Attributes[SpanIDKey].AsString())
}

func TestTranslateDeterministic(t *testing.T) {
	tr := NewTranslator(nil)
	sc := testSpanContext(t)
	raw := RawLog{Level: 40, Msg: "slow", ReqID: "abcdefghijk", Fields: map[string]any{"n": 1}}

	a := tr.Translate(raw, sc)
	b := tr.Translate(raw, sc)
	a.ObservedTimestamp, b.ObservedTimestamp = time.Time{}, time.Time{}
	assert.Equal(t, a, b)
}

func TestTranslateJSON(t *testing.T) {
	tr := NewTranslator(nil)
	line := []byte(`{"level":40,"time":1714564800000,"msg":"slow query","reqId":"req-123456789","req":{"method":"GET"},"pid":42}`)

	rec := tr.TranslateJSON(line, trace.SpanContext{})

	assert.Equal(t, severity.Warn, rec.SeverityNumber)
	assert.Equal(t, "[req-1234] slow query", rec.Body)
	assert.Equal(t, time.UnixMilli(1714564800000), rec.Timestamp)
	assert.Equal(t, int64(42), rec.Attributes["pid"].AsInt64())
	assert.JSONEq(t, `{"method":"GET"}`, rec.Attributes["req"].AsString())
	assert.NotContains(t, rec.Attributes, TranslationErrorKey)
}

func TestTranslateJSONLevelLabelsAndInjectedIDs(t *testing.T) {
	tr := NewTranslator(nil)
	line := []byte(`{"level":"error","msg":"x","trace_id":"4bf92f3577b34da6a3ce929d0e0e4736","span_id":"00f067aa0ba902b7"}`)

	rec := tr.TranslateJSON(line, trace.SpanContext{})

	assert.Equal(t, severity.Error, rec.SeverityNumber)
	assert.True(t, rec.Correlated())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", rec.TraceID.String())
}

func TestTranslateJSONParseFailure(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	var reported []error
	tr := NewTranslator(zap.New(core), WithErrorHandler(func(err error) {
		reported = append(reported, err)
	}))

	tests := []struct {
		name string
		line string
	}{
		{"truncated", `{"level":30,"msg":"cut`},
		{"not an object", `[1,2,3]`},
		{"null", `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec Record
			require.NotPanics(t, func() {
				rec = tr.TranslateJSON([]byte(tt.line), trace.SpanContext{})
			})
			assert.Equal(t, severity.Info, rec.SeverityNumber)
			assert.Equal(t, tt.line, rec.Body)
			assert.Contains(t, rec.Attributes, TranslationErrorKey)
			assert.False(t, rec.Timestamp.IsZero())
		})
	}

	assert.Len(t, reported, len(tests))
	var terr *TranslationError
	assert.True(t, errors.As(reported[0], &terr))
	assert.Equal(t, len(tests), logs.FilterMessage("log record translation failed").Len())
}

func TestTranslateRepairsInvalidUTF8(t *testing.T) {
	tr := NewTranslator(nil)

	tests := []struct {
		name string
		rec  Record
		body string
	}{
		{
			name: "message bytes",
			rec:  tr.Translate(RawLog{Level: 30, Msg: "upload \xff\xfe done"}, trace.SpanContext{}),
			body: "upload � done",
		},
		{
			name: "tag split inside a rune",
			rec:  tr.Translate(RawLog{Level: 30, Msg: "hi", ReqID: "abcdefg日本"}, trace.SpanContext{}),
			body: "[abcdefg日] hi",
		},
		{
			name: "unparseable line",
			rec:  tr.TranslateJSON([]byte("not json \xff\xfe"), trace.SpanContext{}),
			body: "not json �",
		},
		{
			name: "field value",
			rec:  tr.Translate(RawLog{Level: 30, Msg: "ok", Fields: map[string]any{"path": "/\xff"}}, trace.SpanContext{}),
			body: "ok",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.body, tt.rec.Body)
			assert.True(t, utf8.ValidString(tt.rec.Body))
			for k, v := range tt.rec.Attributes {
				assert.True(t, utf8.ValidString(k))
				if v.Type() == attribute.STRING {
					assert.True(t, utf8.ValidString(v.AsString()), k)
				}
			}
		})
	}
}

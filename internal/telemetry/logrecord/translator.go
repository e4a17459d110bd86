package logrecord

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/otelpipe/internal/telemetry/attr"
	"github.com/GriffinCanCode/otelpipe/internal/telemetry/severity"
)

// Attribute keys written by the translator.
const (
	LevelKey            = "level"
	ReqIDKey            = "reqId"
	TranslationErrorKey = "telemetry.translation_error"
	TraceIDKey          = "trace.id"
	SpanIDKey           = "span.id"
)

const (
	reqTagLen  = 8
	maxRawBody = 4096
)

// jsonAPI decodes integers as int64 so counters and ids keep their kind.
var jsonAPI = sonic.Config{UseInt64: true}.Froze()

// ErrNotObject is returned when a log line is valid JSON but not an object.
var ErrNotObject = errors.New("log payload is not a JSON object")

// TranslationError reports a log payload that could not be structured.
type TranslationError struct {
	Err error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translate log record: %v", e.Err)
}

func (e *TranslationError) Unwrap() error { return e.Err }

// Translator converts raw log entries into Records. It is safe for
// concurrent use.
type Translator struct {
	logger          *zap.Logger
	traceAttributes bool
	onError         func(error)
	now             func() time.Time
}

// Option configures a Translator.
type Option func(*Translator)

// WithTraceAttributes also writes trace.id and span.id attributes on
// correlated records, for backends that join logs to traces by attribute.
func WithTraceAttributes() Option {
	return func(t *Translator) { t.traceAttributes = true }
}

// WithErrorHandler registers a callback for translation failures.
func WithErrorHandler(fn func(error)) Option {
	return func(t *Translator) { t.onError = fn }
}

// NewTranslator creates a translator. Translation failures are reported on
// logger, which must not feed back into the pipeline.
func NewTranslator(logger *zap.Logger, opts ...Option) *Translator {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Translator{logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Translate converts raw into a Record, correlating it with sc when sc is
// valid.
func (t *Translator) Translate(raw RawLog, sc trace.SpanContext) Record {
	num, text := severity.Map(raw.Level)

	body := attr.Clean(raw.Msg)
	if raw.ReqID != "" {
		body = "[" + attr.Truncate(attr.Clean(raw.ReqID), reqTagLen) + "] " + body
	}

	attrs := make(attr.Map, len(raw.Fields)+2)
	for k, v := range raw.Fields {
		switch k {
		case "level", "msg", "time":
			continue
		}
		attrs.Set(k, v)
	}
	if raw.ReqID != "" {
		attrs.Set(ReqIDKey, raw.ReqID)
	}
	attrs.Set(LevelKey, raw.Level)

	rec := Record{
		Timestamp:         raw.Time,
		ObservedTimestamp: t.now(),
		SeverityNumber:    num,
		SeverityText:      text,
		Body:              body,
		Attributes:        attrs,
	}
	if sc.IsValid() {
		rec.TraceID = sc.TraceID()
		rec.SpanID = sc.SpanID()
		if t.traceAttributes {
			attrs.Set(TraceIDKey, rec.TraceID.String())
			attrs.Set(SpanIDKey, rec.SpanID.String())
		}
	}
	return rec
}

// TranslateJSON parses one JSON log line and translates it. A line that
// cannot be parsed yields a best-effort record carrying a translation error
// attribute; the failure is reported, never returned.
func (t *Translator) TranslateJSON(line []byte, sc trace.SpanContext) Record {
	var payload map[string]any
	if err := jsonAPI.Unmarshal(line, &payload); err != nil {
		return t.fallback(line, err)
	}
	if payload == nil {
		return t.fallback(line, ErrNotObject)
	}

	raw := RawLog{
		Level:  levelOf(payload["level"]),
		Time:   timeOf(payload["time"]),
		Fields: payload,
	}
	switch msg := payload["msg"].(type) {
	case string:
		raw.Msg = msg
	case nil:
	default:
		raw.Msg = attr.Serialize(msg)
	}
	if reqID, ok := payload[ReqIDKey].(string); ok {
		raw.ReqID = reqID
	}
	if !sc.IsValid() {
		sc = spanContextOf(payload)
	}
	return t.Translate(raw, sc)
}

func (t *Translator) fallback(line []byte, cause error) Record {
	err := &TranslationError{Err: cause}
	t.logger.Warn("log record translation failed", zap.Error(err), zap.Int("bytes", len(line)))
	if t.onError != nil {
		t.onError(err)
	}

	num, text := severity.Map(severity.LevelInfo)
	now := t.now()
	attrs := attr.Map{}
	attrs.Set(TranslationErrorKey, cause.Error())
	return Record{
		Timestamp:         now,
		ObservedTimestamp: now,
		SeverityNumber:    num,
		SeverityText:      text,
		Body:              attr.Truncate(attr.Clean(string(line)), maxRawBody),
		Attributes:        attrs,
	}
}

var levelLabels = map[string]int{
	"trace": severity.LevelTrace,
	"debug": severity.LevelDebug,
	"info":  severity.LevelInfo,
	"warn":  severity.LevelWarn,
	"error": severity.LevelError,
	"fatal": severity.LevelFatal,
}

func levelOf(v any) int {
	switch l := v.(type) {
	case int64:
		return int(l)
	case float64:
		return int(l)
	case string:
		if code, ok := levelLabels[strings.ToLower(l)]; ok {
			return code
		}
	}
	return severity.LevelInfo
}

func timeOf(v any) time.Time {
	switch ts := v.(type) {
	case int64:
		return time.UnixMilli(ts)
	case float64:
		return time.UnixMilli(int64(ts))
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// spanContextOf recovers correlation ids that the emitter injected into the
// line itself.
func spanContextOf(payload map[string]any) trace.SpanContext {
	traceHex, _ := payload["trace_id"].(string)
	spanHex, _ := payload["span_id"].(string)
	if traceHex == "" || spanHex == "" {
		return trace.SpanContext{}
	}
	traceID, err := trace.TraceIDFromHex(traceHex)
	if err != nil {
		return trace.SpanContext{}
	}
	spanID, err := trace.SpanIDFromHex(spanHex)
	if err != nil {
		return trace.SpanContext{}
	}
	return trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
}

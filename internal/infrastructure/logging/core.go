package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/GriffinCanCode/otelpipe/internal/telemetry/logrecord"
	"github.com/GriffinCanCode/otelpipe/internal/telemetry/severity"
)

const spanContextKey = "otelpipe.span_context"

// LogSink receives every log entry written through a pipeline core.
type LogSink interface {
	OnLogEmitted(raw logrecord.RawLog, sc trace.SpanContext)
}

// SpanContext returns a field that correlates subsequent entries with sc.
// Other cores skip the field.
func SpanContext(sc trace.SpanContext) zap.Field {
	return zap.Field{Key: spanContextKey, Type: zapcore.SkipType, Interface: sc}
}

type pipelineCore struct {
	zapcore.LevelEnabler
	sink   LogSink
	fields []zapcore.Field
	sc     trace.SpanContext
}

// NewPipelineCore returns a core that hands entries at or above enab to sink.
func NewPipelineCore(sink LogSink, enab zapcore.LevelEnabler) zapcore.Core {
	return &pipelineCore{LevelEnabler: enab, sink: sink}
}

func (c *pipelineCore) With(fields []zapcore.Field) zapcore.Core {
	clone := &pipelineCore{
		LevelEnabler: c.LevelEnabler,
		sink:         c.sink,
		fields:       make([]zapcore.Field, 0, len(c.fields)+len(fields)),
		sc:           c.sc,
	}
	clone.fields = append(clone.fields, c.fields...)
	for _, f := range fields {
		if sc, ok := spanContextOf(f); ok {
			clone.sc = sc
			continue
		}
		clone.fields = append(clone.fields, f)
	}
	return clone
}

func (c *pipelineCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *pipelineCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	sc := c.sc
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		if fsc, ok := spanContextOf(f); ok {
			sc = fsc
			continue
		}
		f.AddTo(enc)
	}
	if ent.LoggerName != "" {
		enc.Fields["logger"] = ent.LoggerName
	}

	raw := logrecord.RawLog{
		Level:  severity.FromZap(ent.Level),
		Msg:    ent.Message,
		Time:   ent.Time,
		Fields: enc.Fields,
	}
	if reqID, ok := enc.Fields[logrecord.ReqIDKey].(string); ok {
		raw.ReqID = reqID
	}
	c.sink.OnLogEmitted(raw, sc)
	return nil
}

func (c *pipelineCore) Sync() error {
	return nil
}

func spanContextOf(f zapcore.Field) (trace.SpanContext, bool) {
	if f.Key != spanContextKey || f.Type != zapcore.SkipType {
		return trace.SpanContext{}, false
	}
	sc, ok := f.Interface.(trace.SpanContext)
	return sc, ok
}

type loggerKey struct{}

// ContextWithLogger returns a context carrying l.
func ContextWithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext returns the logger carried by ctx, or a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

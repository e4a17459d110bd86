package transport

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/otelpipe/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/otelpipe/internal/telemetry/logrecord"
	"github.com/GriffinCanCode/otelpipe/internal/telemetry/resource"
)

// Batch kinds written by Console.
const (
	KindSpans = "spans"
	KindLogs  = "logs"
)

type consoleBatch struct {
	Resource map[string]string `json:"resource"`
	Kind     string            `json:"kind"`
	Records  []any             `json:"records"`
}

// Console writes each batch as a single JSON line.
type Console[T any] struct {
	mu       sync.Mutex
	w        io.Writer
	kind     string
	resource map[string]string
	render   func(T) any
}

// NewConsole creates a console transport that renders records with render.
func NewConsole[T any](w io.Writer, kind string, res resource.Descriptor, render func(T) any) *Console[T] {
	return &Console[T]{w: w, kind: kind, resource: res.Map(), render: render}
}

// NewSpanConsole creates a console transport for spans.
func NewSpanConsole(w io.Writer, res resource.Descriptor) *Console[tracing.SpanRecord] {
	return NewConsole(w, KindSpans, res, renderSpan)
}

// NewLogConsole creates a console transport for log records.
func NewLogConsole(w io.Writer, res resource.Descriptor) *Console[logrecord.Record] {
	return NewConsole(w, KindLogs, res, renderLog)
}

// Export writes batch as one line.
func (c *Console[T]) Export(_ context.Context, batch []T) error {
	records := make([]any, 0, len(batch))
	for _, rec := range batch {
		records = append(records, c.render(rec))
	}

	line, err := sonic.Marshal(consoleBatch{Resource: c.resource, Kind: c.kind, Records: records})
	if err != nil {
		return err
	}
	line = append(line, '\n')

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.w.Write(line)
	return err
}

// Shutdown syncs the writer when it supports it.
func (c *Console[T]) Shutdown(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.w.(interface{ Sync() error }); ok {
		_ = s.Sync()
	}
	return nil
}

type spanJSON struct {
	TraceID       string         `json:"traceId"`
	SpanID        string         `json:"spanId"`
	ParentSpanID  string         `json:"parentSpanId,omitempty"`
	Name          string         `json:"name"`
	Kind          string         `json:"kind"`
	StartTime     string         `json:"startTime"`
	EndTime       string         `json:"endTime"`
	DurationMs    float64        `json:"durationMs"`
	Status        string         `json:"status"`
	StatusMessage string         `json:"statusMessage,omitempty"`
	Attributes    map[string]any `json:"attributes"`
}

func renderSpan(s tracing.SpanRecord) any {
	out := spanJSON{
		TraceID:       s.TraceID.String(),
		SpanID:        s.SpanID.String(),
		Name:          s.Name,
		Kind:          s.Kind.String(),
		StartTime:     s.StartTime.UTC().Format(time.RFC3339Nano),
		EndTime:       s.EndTime.UTC().Format(time.RFC3339Nano),
		DurationMs:    float64(s.EndTime.Sub(s.StartTime).Microseconds()) / 1000,
		Status:        s.Status.String(),
		StatusMessage: s.StatusMessage,
		Attributes:    s.Attributes.Plain(),
	}
	if s.HasParent() {
		out.ParentSpanID = s.ParentSpanID.String()
	}
	return out
}

type logJSON struct {
	Timestamp      string         `json:"timestamp"`
	SeverityNumber int            `json:"severityNumber"`
	SeverityText   string         `json:"severityText"`
	Body           string         `json:"body"`
	TraceID        string         `json:"traceId,omitempty"`
	SpanID         string         `json:"spanId,omitempty"`
	Attributes     map[string]any `json:"attributes"`
}

func renderLog(r logrecord.Record) any {
	out := logJSON{
		Timestamp:      r.Timestamp.UTC().Format(time.RFC3339Nano),
		SeverityNumber: int(r.SeverityNumber),
		SeverityText:   r.SeverityText,
		Body:           r.Body,
		Attributes:     r.Attributes.Plain(),
	}
	if r.Correlated() {
		out.TraceID = r.TraceID.String()
		out.SpanID = r.SpanID.String()
	}
	return out
}

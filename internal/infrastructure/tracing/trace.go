package tracing

import (
	"context"
	"crypto/rand"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/GriffinCanCode/otelpipe/internal/telemetry/attr"
)

// RequestIDKey is the span attribute holding the request id.
const RequestIDKey = "request.id"

// RequestInfo describes an inbound request at the moment it starts. Route
// is the matched route template; when set it names the span instead of the
// raw path.
type RequestInfo struct {
	ID       string
	Method   string
	Path     string
	Route    string
	Header   http.Header
	Host     string
	ClientIP string
}

// SpanRecord is the exported shape of a span. A record with a zero EndTime
// is still open.
type SpanRecord struct {
	TraceID       trace.TraceID
	SpanID        trace.SpanID
	ParentSpanID  trace.SpanID
	Name          string
	Kind          trace.SpanKind
	StartTime     time.Time
	EndTime       time.Time
	Attributes    attr.Map
	Status        codes.Code
	StatusMessage string
}

// HasParent reports whether the span has a parent.
func (r SpanRecord) HasParent() bool {
	return r.ParentSpanID.IsValid()
}

// SpanSink receives finished spans.
type SpanSink interface {
	Enqueue(SpanRecord)
}

// Span is the handle of an open span. All methods are safe on a nil Span.
type Span struct {
	mu     sync.Mutex
	rec    SpanRecord
	ended  bool
	errMsg string
}

// SpanContext returns the identifiers of the span.
func (s *Span) SpanContext() trace.SpanContext {
	if s == nil {
		return trace.SpanContext{}
	}
	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    s.rec.TraceID,
		SpanID:     s.rec.SpanID,
		TraceFlags: trace.FlagsSampled,
	})
}

// SetAttribute attaches or overwrites an attribute. Ignored once the span
// has ended.
func (s *Span) SetAttribute(key string, value any) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.rec.Attributes.Set(key, value)
}

// SetError records err on the open span. The status is still decided when
// the span ends; err only supplies the message of an error status.
func (s *Span) SetError(err error) {
	if s == nil || err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.errMsg = attr.Clean(err.Error())
	s.rec.Attributes.Set("error.message", s.errMsg)
}

// Ended reports whether the span has been finalized.
func (s *Span) Ended() bool {
	if s == nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// Snapshot returns a copy of the current record.
func (s *Span) Snapshot() SpanRecord {
	if s == nil {
		return SpanRecord{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.rec
	rec.Attributes = s.rec.Attributes.Clone()
	return rec
}

// finish seals the span. It returns the immutable record and false when the
// span was already ended.
func (s *Span) finish(end time.Time, status codes.Code, msg string, extra map[string]any) (SpanRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return SpanRecord{}, false
	}
	s.ended = true
	for k, v := range extra {
		s.rec.Attributes.Set(k, v)
	}
	s.rec.EndTime = end
	s.rec.Status = status
	s.rec.StatusMessage = ""
	if status == codes.Error {
		s.rec.StatusMessage = attr.Clean(msg)
		if s.errMsg != "" {
			s.rec.StatusMessage = s.errMsg
		}
	}
	rec := s.rec
	rec.Attributes = s.rec.Attributes.Clone()
	return rec, true
}

// Tracker manages request span lifecycles.
type Tracker struct {
	sink       SpanSink
	propagator propagation.TextMapPropagator
	now        func() time.Time
}

// NewTracker creates a tracker that hands finished spans to sink.
func NewTracker(sink SpanSink) *Tracker {
	return &Tracker{
		sink:       sink,
		propagator: propagation.TraceContext{},
		now:        time.Now,
	}
}

// Start opens the server span of a request.
//
// Calling Start twice for the same request without an intervening End is a
// caller error; the attributes of the two spans are not merged.
func (t *Tracker) Start(ctx context.Context, info RequestInfo) (context.Context, *Span) {
	traceID, parentID := newTraceID(), trace.SpanID{}
	if info.Header != nil {
		remote := trace.SpanContextFromContext(t.propagator.Extract(ctx, propagation.HeaderCarrier(info.Header)))
		if remote.IsValid() {
			traceID, parentID = remote.TraceID(), remote.SpanID()
		}
	}

	attrs := attr.Map{}
	attrs.Set(string(semconv.HTTPRequestMethodKey), info.Method)
	attrs.Set(string(semconv.URLPathKey), info.Path)
	if info.Route != "" {
		attrs.Set(string(semconv.HTTPRouteKey), info.Route)
	}
	attrs.Set(string(semconv.ServerAddressKey), info.Host)
	attrs.Set(string(semconv.ClientAddressKey), info.ClientIP)
	attrs.Set(RequestIDKey, info.ID)
	if info.Header != nil {
		if ua := info.Header.Get("User-Agent"); ua != "" {
			attrs.Set(string(semconv.UserAgentOriginalKey), ua)
		}
	}

	span := &Span{rec: SpanRecord{
		TraceID:      traceID,
		SpanID:       newSpanID(),
		ParentSpanID: parentID,
		Name:         spanName(info),
		Kind:         trace.SpanKindServer,
		StartTime:    t.now(),
		Attributes:   attrs,
	}}
	return ContextWithSpan(ctx, span), span
}

func spanName(info RequestInfo) string {
	target := info.Route
	if target == "" {
		target = info.Path
	}
	return attr.Clean(info.Method + " " + target)
}

// StartChild opens an internal span under the span carried by ctx. Without a
// parent the child starts a new trace.
func (t *Tracker) StartChild(ctx context.Context, name string) (context.Context, *Span) {
	rec := SpanRecord{
		TraceID:    newTraceID(),
		SpanID:     newSpanID(),
		Name:       attr.Clean(name),
		Kind:       trace.SpanKindInternal,
		StartTime:  t.now(),
		Attributes: attr.Map{},
	}
	if parent := SpanContextFromContext(ctx); parent.IsValid() {
		rec.TraceID = parent.TraceID()
		rec.ParentSpanID = parent.SpanID()
	}
	span := &Span{rec: rec}
	return ContextWithSpan(ctx, span), span
}

// End finalizes a request span: status is ok below 400 and error from 400
// up. A nil or already ended span is ignored.
func (t *Tracker) End(span *Span, statusCode int) {
	if span == nil {
		return
	}
	status, msg := codes.Ok, ""
	if statusCode >= 400 {
		status, msg = codes.Error, http.StatusText(statusCode)
	}
	rec, ok := span.finish(t.now(), status, msg, map[string]any{
		string(semconv.HTTPResponseStatusCodeKey): statusCode,
	})
	if ok && t.sink != nil {
		t.sink.Enqueue(rec)
	}
}

// EndChild finalizes a child span with a status derived from err.
func (t *Tracker) EndChild(span *Span, err error) {
	if span == nil {
		return
	}
	status, msg := codes.Ok, ""
	if err != nil {
		status, msg = codes.Error, err.Error()
	}
	rec, ok := span.finish(t.now(), status, msg, nil)
	if ok && t.sink != nil {
		t.sink.Enqueue(rec)
	}
}

func newTraceID() trace.TraceID {
	var id trace.TraceID
	for !id.IsValid() {
		_, _ = rand.Read(id[:])
	}
	return id
}

func newSpanID() trace.SpanID {
	var id trace.SpanID
	for !id.IsValid() {
		_, _ = rand.Read(id[:])
	}
	return id
}

type contextKey struct{}

// ContextWithSpan returns a context carrying span. The span context is also
// registered with the otel trace API so propagators can inject it.
func ContextWithSpan(ctx context.Context, span *Span) context.Context {
	if span == nil {
		return ctx
	}
	ctx = context.WithValue(ctx, contextKey{}, span)
	return trace.ContextWithSpanContext(ctx, span.SpanContext())
}

// SpanFromContext returns the span carried by ctx, or nil.
func SpanFromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(contextKey{}).(*Span)
	return span
}

// SpanContextFromContext returns the identifiers of the active span, if any.
func SpanContextFromContext(ctx context.Context) trace.SpanContext {
	if span := SpanFromContext(ctx); span != nil {
		return span.SpanContext()
	}
	return trace.SpanContextFromContext(ctx)
}

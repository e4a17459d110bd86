package tracing

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type recordingSink struct {
	mu      sync.Mutex
	records []SpanRecord
}

func (s *recordingSink) Enqueue(rec SpanRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
}

func (s *recordingSink) all() []SpanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SpanRecord(nil), s.records...)
}

func testRequest() RequestInfo {
	return RequestInfo{
		ID:       "req_01HZXK",
		Method:   http.MethodGet,
		Path:     "/users",
		Header:   http.Header{"User-Agent": []string{"curl/8.0"}},
		Host:     "api.local",
		ClientIP: "10.0.0.7",
	}
}

func TestStartSeedsRequestAttributes(t *testing.T) {
	tracker := NewTracker(&recordingSink{})

	ctx, span := tracker.Start(context.Background(), testRequest())
	rec := span.Snapshot()

	assert.True(t, rec.TraceID.IsValid())
	assert.True(t, rec.SpanID.IsValid())
	assert.False(t, rec.HasParent())
	assert.Equal(t, "GET /users", rec.Name)
	assert.Equal(t, trace.SpanKindServer, rec.Kind)
	assert.True(t, rec.EndTime.IsZero())

	assert.Equal(t, attribute.StringValue("GET"), rec.Attributes["http.request.method"])
	assert.Equal(t, attribute.StringValue("/users"), rec.Attributes["url.path"])
	assert.Equal(t, attribute.StringValue("curl/8.0"), rec.Attributes["user_agent.original"])
	assert.Equal(t, attribute.StringValue("api.local"), rec.Attributes["server.address"])
	assert.Equal(t, attribute.StringValue("10.0.0.7"), rec.Attributes["client.address"])
	assert.Equal(t, attribute.StringValue("req_01HZXK"), rec.Attributes[RequestIDKey])

	assert.Same(t, span, SpanFromContext(ctx))
	assert.Equal(t, span.SpanContext(), SpanContextFromContext(ctx))
	assert.Equal(t, span.SpanContext(), trace.SpanContextFromContext(ctx))
}

func TestStartJoinsRemoteTrace(t *testing.T) {
	tracker := NewTracker(&recordingSink{})

	info := testRequest()
	info.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")

	_, span := tracker.Start(context.Background(), info)
	rec := span.Snapshot()

	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", rec.TraceID.String())
	assert.Equal(t, "00f067aa0ba902b7", rec.ParentSpanID.String())
	assert.NotEqual(t, rec.ParentSpanID, rec.SpanID)
}

func TestStartIgnoresMalformedTraceparent(t *testing.T) {
	tracker := NewTracker(&recordingSink{})

	info := testRequest()
	info.Header.Set("traceparent", "garbage")

	_, span := tracker.Start(context.Background(), info)

	assert.False(t, span.Snapshot().HasParent())
}

func TestEndStatusFromResponseCode(t *testing.T) {
	tests := []struct {
		code       int
		wantStatus codes.Code
		wantMsg    string
	}{
		{http.StatusOK, codes.Ok, ""},
		{http.StatusFound, codes.Ok, ""},
		{http.StatusNotFound, codes.Error, "Not Found"},
		{http.StatusInternalServerError, codes.Error, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			sink := &recordingSink{}
			tracker := NewTracker(sink)

			_, span := tracker.Start(context.Background(), testRequest())
			tracker.End(span, tt.code)

			records := sink.all()
			require.Len(t, records, 1)
			rec := records[0]
			assert.Equal(t, tt.wantStatus, rec.Status)
			assert.Equal(t, tt.wantMsg, rec.StatusMessage)
			assert.Equal(t, attribute.Int64Value(int64(tt.code)), rec.Attributes["http.response.status_code"])
			assert.False(t, rec.EndTime.Before(rec.StartTime))
		})
	}
}

func TestEndIsIdempotent(t *testing.T) {
	sink := &recordingSink{}
	tracker := NewTracker(sink)

	_, span := tracker.Start(context.Background(), testRequest())
	tracker.End(span, http.StatusOK)
	tracker.End(span, http.StatusInternalServerError)

	records := sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, codes.Ok, records[0].Status)
	assert.True(t, span.Ended())
}

func TestSetAttributeAfterEndIsIgnored(t *testing.T) {
	sink := &recordingSink{}
	tracker := NewTracker(sink)

	_, span := tracker.Start(context.Background(), testRequest())
	span.SetAttribute("user.id", 42)
	span.SetAttribute("user.id", 43)
	tracker.End(span, http.StatusOK)
	span.SetAttribute("late", "value")

	rec := sink.all()[0]
	assert.Equal(t, attribute.Int64Value(43), rec.Attributes["user.id"])
	assert.NotContains(t, rec.Attributes, "late")
	assert.NotContains(t, span.Snapshot().Attributes, "late")
}

func TestExportedRecordIsIsolatedFromHandle(t *testing.T) {
	sink := &recordingSink{}
	tracker := NewTracker(sink)

	_, span := tracker.Start(context.Background(), testRequest())
	tracker.End(span, http.StatusOK)

	snap := span.Snapshot()
	snap.Attributes["mutated"] = attribute.BoolValue(true)

	assert.NotContains(t, sink.all()[0].Attributes, "mutated")
}

func TestEndStatusFollowsResponseCodeAfterSetError(t *testing.T) {
	tests := []struct {
		name       string
		code       int
		wantStatus codes.Code
		wantMsg    string
	}{
		{"handled error with success response", http.StatusOK, codes.Ok, ""},
		{"error response carries error message", http.StatusBadGateway, codes.Error, "cache unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			tracker := NewTracker(sink)

			_, span := tracker.Start(context.Background(), testRequest())
			span.SetError(errors.New("cache unavailable"))
			tracker.End(span, tt.code)

			rec := sink.all()[0]
			assert.Equal(t, tt.wantStatus, rec.Status)
			assert.Equal(t, tt.wantMsg, rec.StatusMessage)
			assert.Equal(t, attribute.StringValue("cache unavailable"), rec.Attributes["error.message"])
		})
	}
}

func TestStartRepairsInvalidUTF8(t *testing.T) {
	sink := &recordingSink{}
	tracker := NewTracker(sink)

	info := testRequest()
	info.Path = "/\xff"
	_, span := tracker.Start(context.Background(), info)
	span.SetError(errors.New("bad byte \xfe"))
	tracker.End(span, http.StatusBadRequest)

	_, child := tracker.StartChild(context.Background(), "lookup \xff")
	tracker.EndChild(child, errors.New("\xc3"))

	records := sink.all()
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.True(t, utf8.ValidString(rec.Name), rec.Name)
		assert.True(t, utf8.ValidString(rec.StatusMessage), rec.StatusMessage)
		for k, v := range rec.Attributes {
			if v.Type() == attribute.STRING {
				assert.True(t, utf8.ValidString(v.AsString()), k)
			}
		}
	}
	assert.Equal(t, "GET /\uFFFD", records[0].Name)
	assert.Equal(t, attribute.StringValue("/\uFFFD"), records[0].Attributes["url.path"])
}

func TestStartNamesSpanByRoute(t *testing.T) {
	tracker := NewTracker(&recordingSink{})

	info := testRequest()
	info.Path = "/users/8c1f2e"
	info.Route = "/users/:id"
	_, span := tracker.Start(context.Background(), info)
	rec := span.Snapshot()

	assert.Equal(t, "GET /users/:id", rec.Name)
	assert.Equal(t, attribute.StringValue("/users/:id"), rec.Attributes["http.route"])
	assert.Equal(t, attribute.StringValue("/users/8c1f2e"), rec.Attributes["url.path"])
}

func TestNilSpanIsSafe(t *testing.T) {
	tracker := NewTracker(&recordingSink{})
	var span *Span

	assert.NotPanics(t, func() {
		span.SetAttribute("k", "v")
		span.SetError(errors.New("x"))
		tracker.End(span, http.StatusOK)
		tracker.EndChild(span, nil)
	})
	assert.True(t, span.Ended())
	assert.False(t, span.SpanContext().IsValid())
	assert.Nil(t, SpanFromContext(context.Background()))
}

func TestStartChild(t *testing.T) {
	sink := &recordingSink{}
	tracker := NewTracker(sink)

	ctx, parent := tracker.Start(context.Background(), testRequest())
	_, child := tracker.StartChild(ctx, "db.query")
	tracker.EndChild(child, errors.New("deadlock"))
	tracker.End(parent, http.StatusOK)

	records := sink.all()
	require.Len(t, records, 2)
	childRec, parentRec := records[0], records[1]

	assert.Equal(t, parentRec.TraceID, childRec.TraceID)
	assert.Equal(t, parentRec.SpanID, childRec.ParentSpanID)
	assert.Equal(t, trace.SpanKindInternal, childRec.Kind)
	assert.Equal(t, codes.Error, childRec.Status)
	assert.Equal(t, "deadlock", childRec.StatusMessage)
}

func TestStartChildWithoutParentStartsTrace(t *testing.T) {
	tracker := NewTracker(&recordingSink{})

	_, span := tracker.StartChild(context.Background(), "job")
	rec := span.Snapshot()

	assert.True(t, rec.TraceID.IsValid())
	assert.False(t, rec.HasParent())
}

func TestConcurrentRequestsGetDistinctSpans(t *testing.T) {
	sink := &recordingSink{}
	tracker := NewTracker(sink)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, span := tracker.Start(context.Background(), testRequest())
			span.SetAttribute("worker", true)
			tracker.End(span, http.StatusOK)
		}()
	}
	wg.Wait()

	seen := map[trace.SpanID]bool{}
	for _, rec := range sink.all() {
		seen[rec.SpanID] = true
	}
	assert.Len(t, seen, 50)
}

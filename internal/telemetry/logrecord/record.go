// Package logrecord translates structured log entries into exportable log
// records.
package logrecord

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/GriffinCanCode/otelpipe/internal/telemetry/attr"
	"github.com/GriffinCanCode/otelpipe/internal/telemetry/severity"
)

// RawLog is one structured log entry as produced by the log emitter.
// Fields holds every free-form field; level, msg and time are carried in
// their own members.
type RawLog struct {
	Level  int
	Msg    string
	Time   time.Time
	ReqID  string
	Fields map[string]any
}

// Record is the exported shape of a log entry. Zero trace and span ids mean
// the entry is not correlated with a span.
type Record struct {
	Timestamp         time.Time
	ObservedTimestamp time.Time
	SeverityNumber    severity.Number
	SeverityText      string
	Body              string
	Attributes        attr.Map
	TraceID           trace.TraceID
	SpanID            trace.SpanID
}

// Correlated reports whether the record carries span identifiers.
func (r Record) Correlated() bool {
	return r.TraceID.IsValid() && r.SpanID.IsValid()
}

package pipeline

import (
	"io"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/otelpipe/internal/infrastructure/config"
	"github.com/GriffinCanCode/otelpipe/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/otelpipe/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/otelpipe/internal/telemetry/export"
	"github.com/GriffinCanCode/otelpipe/internal/telemetry/logrecord"
	"github.com/GriffinCanCode/otelpipe/internal/telemetry/resource"
)

// BackendNewRelic turns on trace.id and span.id attributes on log records.
const BackendNewRelic = "newrelic"

// Observer receives exporter and translator events.
type Observer interface {
	export.Observer
	TranslationError(err error)
}

type nopObserver struct {
	export.NopObserver
}

func (nopObserver) TranslationError(error) {}

// Settings describes a pipeline.
type Settings struct {
	Target   config.Target
	Resource resource.Descriptor
	Spans    export.Config
	Logs     export.Config
	// Backend selects vendor conventions; see BackendNewRelic.
	Backend string
	// Logger is the side channel for pipeline diagnostics. It must not feed
	// back into the pipeline.
	Logger   *zap.Logger
	Observer Observer
	// Breaker guards remote transports. Zero values take the breaker
	// defaults.
	Breaker resilience.Settings
}

// Option configures a Pipeline.
type Option func(*options)

type options struct {
	spans   export.Transport[tracing.SpanRecord]
	logs    export.Transport[logrecord.Record]
	console io.Writer
}

// WithTransports replaces the transports derived from the target. The
// target still decides whether the pipeline is enabled.
func WithTransports(spans export.Transport[tracing.SpanRecord], logs export.Transport[logrecord.Record]) Option {
	return func(o *options) {
		o.spans = spans
		o.logs = logs
	}
}

// WithConsoleWriter sets the destination of the console target.
func WithConsoleWriter(w io.Writer) Option {
	return func(o *options) { o.console = w }
}

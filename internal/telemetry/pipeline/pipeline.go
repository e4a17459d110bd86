package pipeline

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/otelpipe/internal/infrastructure/config"
	"github.com/GriffinCanCode/otelpipe/internal/infrastructure/logging"
	"github.com/GriffinCanCode/otelpipe/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/otelpipe/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/otelpipe/internal/telemetry/export"
	"github.com/GriffinCanCode/otelpipe/internal/telemetry/logrecord"
	"github.com/GriffinCanCode/otelpipe/internal/telemetry/transport"
)

// Pipeline wires request spans and log records to their exporters.
type Pipeline struct {
	target config.Target
	logger *zap.Logger

	tracker    *tracing.Tracker
	translator *logrecord.Translator
	spans      *export.Exporter[tracing.SpanRecord]
	logs       *export.Exporter[logrecord.Record]

	closed atomic.Bool

	requestOnce sync.Once
	requested   chan struct{}

	shutdownOnce sync.Once
	done         chan struct{}
	shutdownErr  error
}

var (
	_ tracing.Hooks   = (*Pipeline)(nil)
	_ logging.LogSink = (*Pipeline)(nil)
)

// New builds the pipeline for s.Target and starts its exporters. A disabled
// target yields a pipeline whose hooks do nothing.
func New(ctx context.Context, s Settings, opts ...Option) (*Pipeline, error) {
	o := options{console: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}
	if s.Logger == nil {
		s.Logger = zap.NewNop()
	}
	if s.Observer == nil {
		s.Observer = nopObserver{}
	}

	p := &Pipeline{
		target:    s.Target,
		logger:    s.Logger.Named("telemetry"),
		requested: make(chan struct{}),
		done:      make(chan struct{}),
	}
	if s.Target.Kind == config.TargetDisabled {
		p.logger.Info("telemetry disabled")
		return p, nil
	}

	if s.Spans.Name == "" {
		s.Spans.Name = "spans"
	}
	if s.Logs.Name == "" {
		s.Logs.Name = "logs"
	}
	s.Spans = s.Spans.WithDefaults()
	s.Logs = s.Logs.WithDefaults()

	if o.spans == nil || o.logs == nil {
		spans, logs, err := buildTransports(ctx, s, o, p.logger)
		if err != nil {
			return nil, err
		}
		if o.spans == nil {
			o.spans = spans
		}
		if o.logs == nil {
			o.logs = logs
		}
	}

	exportOpts := []export.Option{export.WithLogger(p.logger), export.WithObserver(s.Observer)}
	p.spans = export.New(s.Spans, o.spans, exportOpts...)
	p.logs = export.New(s.Logs, o.logs, exportOpts...)
	p.tracker = tracing.NewTracker(p.spans)

	translatorOpts := []logrecord.Option{logrecord.WithErrorHandler(s.Observer.TranslationError)}
	if s.Backend == BackendNewRelic {
		translatorOpts = append(translatorOpts, logrecord.WithTraceAttributes())
	}
	p.translator = logrecord.NewTranslator(p.logger, translatorOpts...)

	p.spans.Start()
	p.logs.Start()

	p.logger.Info("telemetry pipeline started",
		zap.Stringer("target", s.Target.Kind),
		zap.String("service", s.Resource.ServiceName),
		zap.String("environment", string(s.Resource.Environment)),
	)
	return p, nil
}

func buildTransports(ctx context.Context, s Settings, o options, logger *zap.Logger) (
	export.Transport[tracing.SpanRecord], export.Transport[logrecord.Record], error,
) {
	switch s.Target.Kind {
	case config.TargetConsole:
		return transport.NewSpanConsole(o.console, s.Resource), transport.NewLogConsole(o.console, s.Resource), nil

	case config.TargetRemote:
		remote := s.Target.Remote

		spans, err := transport.NewOTLPSpans(ctx, remote, s.Resource, s.Spans.ExportTimeout)
		if err != nil {
			return nil, nil, err
		}

		var logs export.Transport[logrecord.Record]
		if remote.Protocol == config.ProtocolGRPC {
			grpcLogs, err := transport.NewOTLPLogsGRPC(remote, s.Resource)
			if err != nil {
				_ = spans.Shutdown(ctx)
				return nil, nil, err
			}
			logs = grpcLogs
		} else {
			logs = transport.NewOTLPLogsHTTP(remote, s.Resource, s.Logs.ExportTimeout)
		}

		return transport.Guard[tracing.SpanRecord](spans, newBreaker("spans", s.Breaker, logger)),
			transport.Guard(logs, newBreaker("logs", s.Breaker, logger)),
			nil

	default:
		return nil, nil, fmt.Errorf("unsupported telemetry target %s", s.Target.Kind)
	}
}

func newBreaker(name string, settings resilience.Settings, logger *zap.Logger) *resilience.Breaker {
	settings.OnStateChange = func(name string, from, to resilience.State) {
		logger.Warn("telemetry transport breaker changed state",
			zap.String("exporter", name),
			zap.Stringer("from", from),
			zap.Stringer("to", to),
		)
	}
	return resilience.New(name, settings)
}

// Enabled reports whether telemetry is exported at all.
func (p *Pipeline) Enabled() bool {
	return p.target.Kind != config.TargetDisabled
}

func (p *Pipeline) active() bool {
	return p.Enabled() && !p.closed.Load()
}

// Tracker returns the span tracker, or nil when disabled.
func (p *Pipeline) Tracker() *tracing.Tracker {
	return p.tracker
}

// OnRequestStart opens the server span of a request.
func (p *Pipeline) OnRequestStart(ctx context.Context, info tracing.RequestInfo) (context.Context, *tracing.Span) {
	if !p.active() {
		return ctx, nil
	}
	return p.tracker.Start(ctx, info)
}

// OnRequestEnd closes the server span with the response status.
func (p *Pipeline) OnRequestEnd(span *tracing.Span, statusCode int) {
	if span == nil || !p.active() {
		return
	}
	p.tracker.End(span, statusCode)
}

// StartChild opens a nested span under the span in ctx.
func (p *Pipeline) StartChild(ctx context.Context, name string) (context.Context, *tracing.Span) {
	if !p.active() {
		return ctx, nil
	}
	return p.tracker.StartChild(ctx, name)
}

// EndChild closes a nested span.
func (p *Pipeline) EndChild(span *tracing.Span, err error) {
	if span == nil || !p.active() {
		return
	}
	p.tracker.EndChild(span, err)
}

// OnLogEmitted translates a structured log entry and queues it for export.
func (p *Pipeline) OnLogEmitted(raw logrecord.RawLog, sc trace.SpanContext) {
	if !p.active() {
		return
	}
	p.logs.Enqueue(p.translator.Translate(raw, sc))
}

// OnLogLine translates one JSON log line and queues it for export.
func (p *Pipeline) OnLogLine(line []byte, sc trace.SpanContext) {
	if !p.active() {
		return
	}
	p.logs.Enqueue(p.translator.TranslateJSON(line, sc))
}

// RequestShutdown signals that the process should stop. It never blocks and
// may be called any number of times.
func (p *Pipeline) RequestShutdown() {
	p.requestOnce.Do(func() { close(p.requested) })
}

// ShutdownRequested is closed once shutdown has been requested.
func (p *Pipeline) ShutdownRequested() <-chan struct{} {
	return p.requested
}

// Shutdown drains logs, then spans, within ctx. Hooks become no-ops
// immediately. When ctx ends first the drain is abandoned and ctx.Err() is
// returned. Later calls wait for the same drain.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	p.RequestShutdown()
	p.shutdownOnce.Do(func() {
		p.closed.Store(true)
		if !p.Enabled() {
			close(p.done)
			return
		}
		go func() {
			defer close(p.done)
			err := p.logs.Shutdown(ctx)
			p.shutdownErr = multierr.Append(err, p.spans.Shutdown(ctx))
		}()
	})

	select {
	case <-p.done:
		return p.shutdownErr
	case <-ctx.Done():
		p.logger.Warn("telemetry shutdown deadline exceeded, exiting without full drain")
		return ctx.Err()
	}
}

// Run blocks until shutdown is requested or ctx ends, drains within timeout
// and returns the process exit code.
func (p *Pipeline) Run(ctx context.Context, timeout time.Duration) int {
	select {
	case <-p.requested:
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := p.Shutdown(sctx); err != nil {
		p.logger.Error("telemetry shutdown failed", zap.Error(err))
		return 1
	}
	p.logger.Info("telemetry pipeline stopped")
	return 0
}

// ExporterStats describes one exporter.
type ExporterStats struct {
	State    string `json:"state"`
	Queued   int    `json:"queued"`
	Dropped  uint64 `json:"dropped"`
	Exported uint64 `json:"exported"`
	Failed   uint64 `json:"failed"`
}

// Stats describes the pipeline.
type Stats struct {
	Enabled bool           `json:"enabled"`
	Target  string         `json:"target"`
	Spans   *ExporterStats `json:"spans,omitempty"`
	Logs    *ExporterStats `json:"logs,omitempty"`
}

// Stats returns a point-in-time view of the exporters.
func (p *Pipeline) Stats() Stats {
	s := Stats{Enabled: p.Enabled(), Target: p.target.Kind.String()}
	if p.spans != nil {
		s.Spans = exporterStats(p.spans)
	}
	if p.logs != nil {
		s.Logs = exporterStats(p.logs)
	}
	return s
}

type exporterView interface {
	State() export.State
	Len() int
	Dropped() uint64
	Exported() uint64
	Failed() uint64
}

func exporterStats(e exporterView) *ExporterStats {
	return &ExporterStats{
		State:    e.State().String(),
		Queued:   e.Len(),
		Dropped:  e.Dropped(),
		Exported: e.Exported(),
		Failed:   e.Failed(),
	}
}

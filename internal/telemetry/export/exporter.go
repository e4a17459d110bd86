package export

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Defaults applied to zero Config fields.
const (
	DefaultMaxQueueSize       = 1000
	DefaultMaxExportBatchSize = 512
	DefaultFlushInterval      = time.Second
	DefaultExportTimeout      = 2 * time.Second
)

// Failure reports are rate limited so a dead backend cannot flood the
// side-channel log.
const (
	reportInterval = time.Second
	reportBurst    = 3
)

// Transport performs the network hand-off of one batch.
type Transport[T any] interface {
	Export(ctx context.Context, batch []T) error
	Shutdown(ctx context.Context) error
}

// Config tunes an Exporter.
type Config struct {
	Name string
	// MaxQueueSize bounds the buffer; records beyond it are dropped.
	MaxQueueSize int
	// MaxExportBatchSize is the size threshold that triggers an early flush
	// and the largest batch handed to the transport in one call.
	MaxExportBatchSize int
	FlushInterval      time.Duration
	ExportTimeout      time.Duration
}

// DefaultConfig returns the default tuning for an exporter named name.
func DefaultConfig(name string) Config {
	return Config{
		Name:               name,
		MaxQueueSize:       DefaultMaxQueueSize,
		MaxExportBatchSize: DefaultMaxExportBatchSize,
		FlushInterval:      DefaultFlushInterval,
		ExportTimeout:      DefaultExportTimeout,
	}
}

// WithDefaults fills zero fields with the package defaults and caps the
// batch size at the queue size.
func (c Config) WithDefaults() Config {
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = DefaultMaxQueueSize
	}
	if c.MaxExportBatchSize <= 0 {
		c.MaxExportBatchSize = DefaultMaxExportBatchSize
	}
	if c.MaxExportBatchSize > c.MaxQueueSize {
		c.MaxExportBatchSize = c.MaxQueueSize
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = DefaultFlushInterval
	}
	if c.ExportTimeout <= 0 {
		c.ExportTimeout = DefaultExportTimeout
	}
	return c
}

// Option configures an Exporter.
type Option func(*options)

type options struct {
	logger   *zap.Logger
	observer Observer
}

// WithLogger sets the side-channel logger for export failures.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithObserver sets the observer notified of queue and export events.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// Outcome summarizes one flush.
type Outcome struct {
	Records  int
	Exported int
	Err      error
}

// Exporter buffers records of type T and exports them in batches.
type Exporter[T any] struct {
	cfg       Config
	transport Transport[T]
	logger    *zap.Logger
	observer  Observer
	limiter   *rate.Limiter

	mu       sync.Mutex
	buf      []T
	flushing int
	draining bool
	sealed   bool
	closed   bool

	// exportMu serializes flushes so batches leave in enqueue order.
	exportMu sync.Mutex

	dropped  atomic.Uint64
	exported atomic.Uint64
	failed   atomic.Uint64

	kick      chan struct{}
	stop      chan struct{}
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
}

// New creates an exporter. The background drainer is not running until
// Start is called.
func New[T any](cfg Config, transport Transport[T], opts ...Option) *Exporter[T] {
	o := options{logger: zap.NewNop(), observer: NopObserver{}}
	for _, opt := range opts {
		opt(&o)
	}
	cfg = cfg.WithDefaults()

	return &Exporter[T]{
		cfg:       cfg,
		transport: transport,
		logger:    o.logger.With(zap.String("exporter", cfg.Name)),
		observer:  o.observer,
		limiter:   rate.NewLimiter(rate.Every(reportInterval), reportBurst),
		buf:       make([]T, 0, cfg.MaxExportBatchSize),
		kick:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Name returns the exporter name.
func (e *Exporter[T]) Name() string {
	return e.cfg.Name
}

// Config returns the effective configuration.
func (e *Exporter[T]) Config() Config {
	return e.cfg
}

// Start launches the background drainer. It is a no-op after the first call
// and after Shutdown.
func (e *Exporter[T]) Start() {
	e.mu.Lock()
	draining := e.draining
	e.mu.Unlock()
	if draining {
		return
	}
	e.startOnce.Do(func() {
		e.started.Store(true)
		go e.run()
	})
}

func (e *Exporter[T]) run() {
	defer close(e.done)

	ticker := time.NewTicker(e.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
			e.Flush(context.Background())
		case <-e.kick:
			e.Flush(context.Background())
			ticker.Reset(e.cfg.FlushInterval)
		}
	}
}

// Enqueue adds rec to the queue. It never blocks on I/O and never fails:
// when the queue is full or the exporter is closed the record is dropped and
// counted.
func (e *Exporter[T]) Enqueue(rec T) {
	e.mu.Lock()
	if e.sealed {
		e.mu.Unlock()
		e.drop(DropClosed)
		return
	}
	if len(e.buf) >= e.cfg.MaxQueueSize {
		e.mu.Unlock()
		e.drop(DropQueueFull)
		return
	}
	e.buf = append(e.buf, rec)
	full := len(e.buf) >= e.cfg.MaxExportBatchSize
	e.mu.Unlock()

	e.observer.Enqueued(e.cfg.Name)
	if full {
		select {
		case e.kick <- struct{}{}:
		default:
		}
	}
}

func (e *Exporter[T]) drop(reason DropReason) {
	e.dropped.Add(1)
	e.observer.Dropped(e.cfg.Name, reason)
}

// Flush exports everything currently queued. Transport failures discard the
// batch and are reported through the observer and side-channel log; they
// are also returned in the Outcome for callers that care.
func (e *Exporter[T]) Flush(ctx context.Context) Outcome {
	e.exportMu.Lock()
	defer e.exportMu.Unlock()

	e.mu.Lock()
	if e.sealed {
		e.mu.Unlock()
		return Outcome{Err: ErrClosed}
	}
	batch := e.swapLocked()
	if len(batch) == 0 {
		e.mu.Unlock()
		return Outcome{}
	}
	e.flushing++
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.flushing--
		e.mu.Unlock()
	}()
	return e.export(ctx, batch)
}

// Shutdown stops the drainer, performs one final flush bounded by ctx and
// closes the transport. Only the first call has any effect.
func (e *Exporter[T]) Shutdown(ctx context.Context) error {
	first := false
	e.stopOnce.Do(func() { first = true })
	if !first {
		return nil
	}

	e.mu.Lock()
	e.draining = true
	e.mu.Unlock()

	close(e.stop)
	if e.started.Load() {
		select {
		case <-e.done:
		case <-ctx.Done():
			e.logger.Warn("drainer did not stop before deadline")
		}
	}

	e.mu.Lock()
	batch := e.swapLocked()
	e.sealed = true
	e.mu.Unlock()

	var out Outcome
	if len(batch) > 0 {
		out = e.export(ctx, batch)
	}

	err := bounded(ctx, func(ctx context.Context) error {
		return e.transport.Shutdown(ctx)
	})

	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	return multierr.Combine(out.Err, err)
}

func (e *Exporter[T]) swapLocked() []T {
	if len(e.buf) == 0 {
		return nil
	}
	batch := e.buf
	e.buf = make([]T, 0, e.cfg.MaxExportBatchSize)
	return batch
}

func (e *Exporter[T]) export(ctx context.Context, batch []T) Outcome {
	out := Outcome{Records: len(batch)}
	for start := 0; start < len(batch); start += e.cfg.MaxExportBatchSize {
		end := start + e.cfg.MaxExportBatchSize
		if end > len(batch) {
			end = len(batch)
		}
		chunk := batch[start:end]
		if err := e.exportChunk(ctx, chunk); err != nil {
			out.Err = multierr.Append(out.Err, err)
			continue
		}
		out.Exported += len(chunk)
	}
	return out
}

func (e *Exporter[T]) exportChunk(ctx context.Context, chunk []T) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.ExportTimeout)
	defer cancel()

	err := bounded(ctx, func(ctx context.Context) error {
		return e.transport.Export(ctx, chunk)
	})
	if err == nil {
		e.exported.Add(uint64(len(chunk)))
		e.observer.Exported(e.cfg.Name, len(chunk))
		return nil
	}

	terr := &TransportError{Exporter: e.cfg.Name, Records: len(chunk), Err: err}
	e.failed.Add(uint64(len(chunk)))
	e.observer.ExportFailed(e.cfg.Name, len(chunk), terr)
	if e.limiter.Allow() {
		e.logger.Warn("telemetry export failed, batch discarded",
			zap.Int("records", len(chunk)),
			zap.Uint64("failed_total", e.failed.Load()),
			zap.Uint64("dropped_total", e.dropped.Load()),
			zap.Error(err),
		)
	}
	return terr
}

// bounded runs fn and returns when it finishes or ctx is done, whichever
// comes first. A transport that ignores its context is abandoned.
func bounded(ctx context.Context, fn func(context.Context) error) error {
	errc := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				errc <- fmt.Errorf("transport panic: %v", r)
			}
		}()
		errc <- fn(ctx)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current lifecycle state.
func (e *Exporter[T]) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case e.closed:
		return StateClosed
	case e.draining:
		return StateDraining
	case e.flushing > 0:
		return StateFlushing
	case len(e.buf) > 0:
		return StateAccumulating
	default:
		return StateIdle
	}
}

// Len returns the number of queued records.
func (e *Exporter[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.buf)
}

// Dropped returns the number of records dropped at enqueue.
func (e *Exporter[T]) Dropped() uint64 {
	return e.dropped.Load()
}

// Exported returns the number of records delivered.
func (e *Exporter[T]) Exported() uint64 {
	return e.exported.Load()
}

// Failed returns the number of records discarded after a transport failure.
func (e *Exporter[T]) Failed() uint64 {
	return e.failed.Load()
}

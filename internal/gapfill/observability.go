package gapfill

import (
	"context"
	"time"
)

// Logger is the structured logging surface used by the gap-filling core.
// *slog.Logger satisfies it directly.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Clock supplies timestamps for run records.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// MetricsRecorder observes the outcome and latency of gap-filling operations.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

// Tracer starts spans around gap-filling operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is ended exactly once with the operation error, if any.
type TraceSpan interface {
	End(err error)
}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// Option configures observability and collaborators shared by the pipeline,
// selector and service.
type Option func(*options)

type options struct {
	logger  Logger
	clock   Clock
	metrics MetricsRecorder
	tracer  Tracer
	runs    RunStore
	arts    ArtifactSink
}

func defaultOptions() options {
	return options{
		logger:  noopLogger{},
		clock:   ClockFunc(func() time.Time { return time.Now().UTC() }),
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithLogger overrides the logger. Nil keeps the no-op logger.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the clock.
func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithMetricsRecorder overrides the metrics recorder.
func WithMetricsRecorder(rec MetricsRecorder) Option {
	return func(o *options) {
		if rec != nil {
			o.metrics = rec
		}
	}
}

// WithTracer overrides the tracer.
func WithTracer(tracer Tracer) Option {
	return func(o *options) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithRunStore records every gap-fill run in store.
func WithRunStore(store RunStore) Option {
	return func(o *options) {
		o.runs = store
	}
}

// WithArtifacts persists intermediate results to sink.
func WithArtifacts(sink ArtifactSink) Option {
	return func(o *options) {
		o.arts = sink
	}
}

// observe wraps an operation with tracing and metrics.
func (o options) observe(ctx context.Context, operation string, fn func(context.Context) error) error {
	started := o.clock.Now()
	ctx, span := o.tracer.Start(ctx, operation)
	err := fn(ctx)
	span.End(err)
	o.metrics.Observe(ctx, operation, err == nil, o.clock.Now().Sub(started))
	return err
}

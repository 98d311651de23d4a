package monitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/allbin/cleanroom/reading"
)

// Sink receives every reading the recorder produces
type Sink interface {
	Record(ctx context.Context, r reading.Reading) error
}

// SinkFunc adapts a function to Sink
type SinkFunc func(ctx context.Context, r reading.Reading) error

func (f SinkFunc) Record(ctx context.Context, r reading.Reading) error {
	return f(ctx, r)
}

// Recorder runs cycles until cancelled
type Recorder struct {
	agg       *Aggregator
	sinks     []Sink
	interval  time.Duration
	once      bool
	onReading func(reading.Reading)
	wait      func(ctx context.Context, d time.Duration) error
	logger    *zap.Logger
}

type RecorderOption func(*Recorder)

// WithInterval sets the pause between the end of one cycle and the start of
// the next
func WithInterval(d time.Duration) RecorderOption {
	return func(r *Recorder) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithOnce stops the recorder after a single cycle
func WithOnce(once bool) RecorderOption {
	return func(r *Recorder) {
		r.once = once
	}
}

// OnReading registers a callback run for every reading before the sinks
func OnReading(fn func(reading.Reading)) RecorderOption {
	return func(r *Recorder) {
		r.onReading = fn
	}
}

func WithRecorderLogger(logger *zap.Logger) RecorderOption {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func withWait(wait func(ctx context.Context, d time.Duration) error) RecorderOption {
	return func(r *Recorder) {
		r.wait = wait
	}
}

func NewRecorder(agg *Aggregator, sinks []Sink, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		agg:      agg,
		sinks:    sinks,
		interval: 10 * time.Second,
		wait:     sleepContext,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run records cycles until ctx is cancelled, or once when configured so. A
// cycle that has started always completes and reaches every sink; the
// cancellation is honoured in the pause between cycles and reported as
// ctx.Err(). Sink failures are logged and never stop the loop.
func (r *Recorder) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.logger.Info("recorder started",
		zap.Strings("instruments", r.agg.Instruments()),
		zap.Duration("interval", r.interval),
		zap.Bool("once", r.once))

	for cycle := 1; ; cycle++ {
		cycleCtx := context.WithoutCancel(ctx)
		rd := r.agg.Cycle(cycleCtx)

		if r.onReading != nil {
			r.onReading(rd)
		}
		for _, sink := range r.sinks {
			if err := sink.Record(cycleCtx, rd); err != nil {
				r.logger.Error("sink failed", zap.Int("cycle", cycle), zap.Error(err))
			}
		}
		r.logger.Debug("cycle complete",
			zap.Int("cycle", cycle),
			zap.Int("iso_class", rd.ISO))

		if r.once {
			return nil
		}
		if err := r.wait(ctx, r.interval); err != nil {
			return err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

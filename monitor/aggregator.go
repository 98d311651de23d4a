// Package monitor runs the sampling cycle: every enabled instrument is read in
// turn, the fragments are merged into one classified reading, and the reading
// is handed to the configured sinks.
package monitor

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/allbin/cleanroom/instrument"
	"github.com/allbin/cleanroom/reading"
)

// Aggregator builds one reading per cycle from a fixed set of instruments
type Aggregator struct {
	instruments []instrument.Instrument
	now         func() time.Time
	logger      *zap.Logger
}

type AggregatorOption func(*Aggregator)

// WithClock sets the clock used to timestamp readings
func WithClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

func WithLogger(logger *zap.Logger) AggregatorOption {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAggregator samples instruments in the given order. The set is fixed for
// the aggregator's lifetime.
func NewAggregator(instruments []instrument.Instrument, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		instruments: append([]instrument.Instrument(nil), instruments...),
		now:         time.Now,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Instruments returns the names of the sampled instruments
func (a *Aggregator) Instruments() []string {
	names := make([]string, 0, len(a.instruments))
	for _, inst := range a.instruments {
		names = append(names, inst.Name())
	}
	return names
}

// Cycle samples every instrument one after another and returns the reading.
// It never fails: an instrument that errors leaves its fields absent. The
// reading is stamped with the time the cycle started.
func (a *Aggregator) Cycle(ctx context.Context) reading.Reading {
	start := a.now()

	var frag reading.Fragment
	for _, inst := range a.instruments {
		f, err := inst.Sample(ctx)
		if err != nil {
			a.logger.Warn("instrument read failed",
				zap.String("instrument", inst.Name()),
				zap.Error(err))
			continue
		}
		frag = frag.Merge(f)
	}

	return reading.New(start, frag)
}

// Close releases every instrument
func (a *Aggregator) Close() error {
	var errs []error
	for _, inst := range a.instruments {
		if err := inst.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package store

import (
	"time"

	"go.uber.org/zap"
)

// Option configures a Repository.
type Option func(*options)

type options struct {
	logger  *zap.Logger
	metrics *Metrics
	clock   func() time.Time
	strict  bool
}

func newOptions(opts []Option) options {
	o := options{
		logger: zap.NewNop(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger. Operations log at debug level on success and
// at warn or error level on failure.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records every operation in m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithClock sets the time source for audit timestamps.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithOptimisticConcurrency makes Update replace a document only if its
// stored version equals the entity's version before the update. A mismatch
// fails with *ConcurrencyConflictError. Without it the last write wins.
func WithOptimisticConcurrency() Option {
	return func(o *options) { o.strict = true }
}

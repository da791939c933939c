package gc

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/busengine/core/metrics"
)

const (
	// DefaultInterval is the time between ticks.
	DefaultInterval = 60 * time.Second
	// DefaultConcurrency bounds parallel teardowns within one pass.
	DefaultConcurrency = 8
)

// Option is a functional option for configuring a Collector.
type Option func(*options)

type options struct {
	interval        time.Duration
	timeout         func() time.Duration
	now             func() time.Time
	concurrency     int
	shutdownTimeout time.Duration
	logger          *slog.Logger
	metrics         *metrics.Metrics
}

// WithInterval configures how often the collector ticks.
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithTimeout supplies the bus liveness timeout. It is read on every tick so
// the collector follows runtime changes; a non-positive value disables ticks.
func WithTimeout(fn func() time.Duration) Option {
	return func(o *options) {
		if fn != nil {
			o.timeout = fn
		}
	}
}

// WithClock overrides the time source used to compute the stale cutoff.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithConcurrency bounds how many clients are torn down in parallel.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithShutdownTimeout bounds how long Stop waits for an in-flight pass.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.shutdownTimeout = d
		}
	}
}

// WithLogger configures structured logging for collector operations.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records tick outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

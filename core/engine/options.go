package engine

import (
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/busengine/core/metrics"
	"github.com/dmitrymomot/busengine/core/notify"
)

// Option configures an Engine.
type Option func(*options)

type options struct {
	namespace       string
	subscriber      notify.Subscriber
	logger          *slog.Logger
	now             func() time.Time
	metrics         *metrics.Metrics
	gcInterval      time.Duration
	lockTimeout     time.Duration
	gcConcurrency   int
	shutdownTimeout time.Duration
	closers         []io.Closer
}

// WithNamespace prefixes every key and topic. Instances sharing a store only
// see each other within the same namespace.
func WithNamespace(ns string) Option {
	return func(o *options) {
		o.namespace = ns
	}
}

// WithSubscriber sets the connection used for the notification subscription.
// Defaults to the command client when it can subscribe.
func WithSubscriber(sub notify.Subscriber) Option {
	return func(o *options) {
		if sub != nil {
			o.subscriber = sub
		}
	}
}

// WithLogger sets the debug and trace sink.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides the time source for heartbeats, liveness, locks and
// garbage collection.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithMetrics records engine activity.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithGCInterval sets the garbage collection tick interval.
func WithGCInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.gcInterval = d
		}
	}
}

// WithLockTimeout sets how long a garbage collection lease lasts.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.lockTimeout = d
		}
	}
}

// WithGCConcurrency bounds parallel teardowns within one collection pass.
func WithGCConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.gcConcurrency = n
		}
	}
}

// WithShutdownTimeout bounds how long Shutdown waits for a collection pass.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.shutdownTimeout = d
		}
	}
}

// withClosers hands connection ownership to the engine.
func withClosers(c ...io.Closer) Option {
	return func(o *options) {
		o.closers = append(o.closers, c...)
	}
}

// UUIDGenerator is a client id generator for Server implementations.
func UUIDGenerator() string {
	return uuid.NewString()
}

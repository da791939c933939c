package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/busengine/core/gc"
	"github.com/dmitrymomot/busengine/core/keyspace"
	"github.com/dmitrymomot/busengine/core/lock"
	"github.com/dmitrymomot/busengine/core/logger"
	"github.com/dmitrymomot/busengine/core/mailbox"
	"github.com/dmitrymomot/busengine/core/metrics"
	"github.com/dmitrymomot/busengine/core/notify"
	"github.com/dmitrymomot/busengine/core/presence"
	"github.com/dmitrymomot/busengine/core/subscription"
	redisconn "github.com/dmitrymomot/busengine/integration/database/redis"
)

// Engine keeps the shared state of one bus namespace in the store and wakes
// whichever process holds a client's connection. Any number of engines may
// share a store; each process runs its own.
type Engine struct {
	server  Server
	client  redis.Cmdable
	ns      keyspace.Namespace
	logger  *slog.Logger
	metrics *metrics.Metrics

	registry  *presence.Registry
	index     *subscription.Index
	mailbox   *mailbox.Mailbox
	bus       *notify.Bus
	collector *gc.Collector

	shutdownTimeout time.Duration
	closers         []io.Closer

	mu       sync.Mutex
	started  bool
	closed   bool
	gcCancel context.CancelFunc
	gcDone   chan struct{}
}

// New creates an engine on top of an established command connection. The
// notification subscription uses the WithSubscriber connection, or client
// itself when it can subscribe. Connections passed in stay owned by the
// caller.
func New(server Server, client redis.Cmdable, opts ...Option) (*Engine, error) {
	if server == nil {
		return nil, ErrNilServer
	}
	if client == nil {
		return nil, ErrNilClient
	}

	o := &options{
		now:             time.Now,
		logger:          logger.Discard(),
		gcInterval:      gc.DefaultInterval,
		lockTimeout:     lock.DefaultTimeout,
		gcConcurrency:   gc.DefaultConcurrency,
		shutdownTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}

	sub := o.subscriber
	if sub == nil {
		s, ok := client.(notify.Subscriber)
		if !ok {
			return nil, ErrNoSubscriber
		}
		sub = s
	}

	ns := keyspace.New(o.namespace)
	e := &Engine{
		server:          server,
		client:          client,
		ns:              ns,
		logger:          o.logger,
		metrics:         o.metrics,
		registry:        presence.New(client, ns, presence.WithClock(o.now), presence.WithLogger(o.logger)),
		index:           subscription.New(client, ns),
		mailbox:         mailbox.New(client, ns),
		bus:             notify.New(client, sub, ns, notify.WithLogger(o.logger)),
		shutdownTimeout: o.shutdownTimeout,
		closers:         o.closers,
	}

	locker := lock.New(client, ns,
		lock.WithTimeout(o.lockTimeout),
		lock.WithClock(o.now),
		lock.WithLogger(o.logger))

	collector, err := gc.New(locker, e.registry, e,
		gc.WithInterval(o.gcInterval),
		gc.WithTimeout(server.Timeout),
		gc.WithClock(o.now),
		gc.WithConcurrency(o.gcConcurrency),
		gc.WithShutdownTimeout(o.shutdownTimeout),
		gc.WithLogger(o.logger),
		gc.WithMetrics(o.metrics))
	if err != nil {
		return nil, err
	}
	e.collector = collector

	return e, nil
}

// NewFromConfig opens the command and subscriber connections described by
// cfg.Redis and creates an engine that owns them: Shutdown closes both.
func NewFromConfig(ctx context.Context, server Server, cfg Config, opts ...Option) (*Engine, error) {
	client, err := redisconn.Connect(ctx, cfg.Redis)
	if err != nil {
		return nil, errors.Join(ErrConnect, err)
	}
	subscriber, err := redisconn.Connect(ctx, cfg.Redis)
	if err != nil {
		_ = client.Close()
		return nil, errors.Join(ErrConnect, err)
	}

	opts = append(cfg.Options(), opts...)
	opts = append(opts, WithSubscriber(subscriber), withClosers(client, subscriber))

	e, err := New(server, client, opts...)
	if err != nil {
		_ = client.Close()
		_ = subscriber.Close()
		return nil, err
	}
	return e, nil
}

// Namespace returns the key prefix of this engine.
func (e *Engine) Namespace() string {
	return e.ns.String()
}

// Collector exposes the garbage collector for stats and health checks.
func (e *Engine) Collector() *gc.Collector {
	return e.collector
}

// Start subscribes to notifications and starts the garbage collection timer.
// Notifications published after Start returns are guaranteed to be seen.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrShutdown
	}
	if e.started {
		return ErrAlreadyStarted
	}

	if err := e.bus.Listen(ctx, e); err != nil {
		return err
	}

	gcCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = e.collector.Start(gcCtx)
	}()

	e.started = true
	e.gcCancel = cancel
	e.gcDone = done

	e.logger.InfoContext(ctx, "bus engine started",
		logger.Namespace(e.ns.String()))
	return nil
}

// Run provides errgroup compatibility: it starts the engine and shuts it down
// once ctx is cancelled.
func (e *Engine) Run(ctx context.Context) func() error {
	return func() error {
		if err := e.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	}
}

// Shutdown unsubscribes from notifications, stops the garbage collection
// timer and closes the connections the engine owns. A collection pass in
// flight is allowed to finish within ctx. Calling Shutdown again is a no-op.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	cancel, done := e.gcCancel, e.gcDone
	e.mu.Unlock()

	var errs []error
	if err := e.bus.Close(); err != nil {
		errs = append(errs, err)
	}

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err()))
		}
	}

	for _, c := range e.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, errors.Join(ErrCloseConnections, err))
		}
	}

	e.logger.InfoContext(ctx, "bus engine stopped",
		logger.Namespace(e.ns.String()))
	return errors.Join(errs...)
}

// Healthcheck pings the store. It is meant for readiness checks.
func (e *Engine) Healthcheck(ctx context.Context) error {
	if err := e.client.Ping(ctx).Err(); err != nil {
		return errors.Join(redisconn.ErrHealthcheckFailed, err)
	}
	return nil
}

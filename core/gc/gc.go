package gc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/busengine/core/logger"
	"github.com/dmitrymomot/busengine/core/metrics"
	"github.com/dmitrymomot/busengine/core/presence"
	"github.com/dmitrymomot/busengine/pkg/async"
)

// LockName is the cluster-wide lock serializing collection passes.
const LockName = "gc"

// Locker runs a routine under a named cluster-wide lock.
type Locker interface {
	WithLock(ctx context.Context, name string, fn func(context.Context) error) (bool, error)
}

// StaleLister lists clients whose last heartbeat is at or before cutoff.
type StaleLister interface {
	ListStale(ctx context.Context, cutoff time.Time) ([]string, error)
}

// Destroyer tears a client down. It must tolerate clients that are already gone.
type Destroyer interface {
	DestroyClient(ctx context.Context, clientID string) error
}

// Status describes what a single tick did.
type Status string

const (
	StatusDisabled  Status = "disabled"
	StatusSkipped   Status = "skipped"
	StatusCompleted Status = "completed"
)

// Result is the outcome of one tick.
type Result struct {
	Status  Status
	Evicted int
}

// Collector periodically evicts clients that stopped sending heartbeats.
type Collector struct {
	locker    Locker
	lister    StaleLister
	destroyer Destroyer

	interval        time.Duration
	timeout         func() time.Duration
	now             func() time.Time
	concurrency     int
	shutdownTimeout time.Duration
	logger          *slog.Logger
	metrics         *metrics.Metrics

	mu     sync.RWMutex
	cancel context.CancelFunc
	wg     sync.WaitGroup

	runs     atomic.Int64
	skipped  atomic.Int64
	failures atomic.Int64
	evicted  atomic.Int64
	active   atomic.Int32
	lastRun  atomic.Int64
}

// Stats provides observability counters.
type Stats struct {
	Runs        int64     // Ticks that held the lock and finished
	Skipped     int64     // Ticks that could not take the lock
	Failures    int64     // Ticks that held the lock but hit an error
	Evicted     int64     // Clients destroyed so far
	ActivePass  bool      // Whether a pass is running right now
	IsRunning   bool      // Whether the timer loop is running
	LastRunTime time.Time // Completion time of the last pass that held the lock
}

// New creates a collector. Timeout defaults to zero, which disables every
// tick; the engine wires it to the bus liveness timeout.
func New(locker Locker, lister StaleLister, destroyer Destroyer, opts ...Option) (*Collector, error) {
	if locker == nil || lister == nil || destroyer == nil {
		return nil, ErrMissingDependency
	}

	options := &options{
		interval:        DefaultInterval,
		timeout:         func() time.Duration { return 0 },
		now:             time.Now,
		concurrency:     DefaultConcurrency,
		shutdownTimeout: 30 * time.Second,
		logger:          logger.Discard(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Collector{
		locker:          locker,
		lister:          lister,
		destroyer:       destroyer,
		interval:        options.interval,
		timeout:         options.timeout,
		now:             options.now,
		concurrency:     options.concurrency,
		shutdownTimeout: options.shutdownTimeout,
		logger:          options.logger,
		metrics:         options.metrics,
	}, nil
}

// Tick runs a single collection pass.
func (c *Collector) Tick(ctx context.Context) (Result, error) {
	timeout := c.timeout()
	if timeout <= 0 {
		return Result{Status: StatusDisabled}, nil
	}

	c.active.Add(1)
	defer c.active.Add(-1)

	start := c.now()
	var evicted int

	ran, err := c.locker.WithLock(ctx, LockName, func(ctx context.Context) error {
		stale, err := c.lister.ListStale(ctx, presence.StaleCutoff(start, timeout))
		if err != nil {
			return err
		}
		if len(stale) == 0 {
			return nil
		}

		c.logger.DebugContext(ctx, "evicting stale clients",
			logger.Component("gc"),
			logger.Count("stale_clients", len(stale)))

		var destroyed atomic.Int64
		err = async.ExecEach(ctx, c.concurrency, stale, func(ctx context.Context, id string) error {
			if err := c.destroyer.DestroyClient(ctx, id); err != nil {
				return fmt.Errorf("client %s: %w", id, err)
			}
			destroyed.Add(1)
			return nil
		})
		evicted = int(destroyed.Load())
		return err
	})

	elapsed := c.now().Sub(start)
	c.evicted.Add(int64(evicted))

	switch {
	case !ran && err == nil:
		c.skipped.Add(1)
		c.metrics.GCRun(metrics.GCSkipped, 0, 0)
		c.logger.DebugContext(ctx, "gc lock held elsewhere, skipping tick", logger.Lock(LockName))
		return Result{Status: StatusSkipped}, nil
	case err != nil:
		c.failures.Add(1)
		c.metrics.GCRun(metrics.GCFailed, evicted, elapsed)
		c.logger.WarnContext(ctx, "gc pass failed",
			logger.Component("gc"),
			logger.Count("evicted", evicted),
			logger.Error(err))
		status := StatusCompleted
		if !ran {
			status = StatusSkipped
		}
		return Result{Status: status, Evicted: evicted}, errors.Join(ErrPassFailed, err)
	}

	c.runs.Add(1)
	c.lastRun.Store(c.now().UnixNano())
	c.metrics.GCRun(metrics.GCCompleted, evicted, elapsed)
	if evicted > 0 {
		c.logger.InfoContext(ctx, "gc pass completed",
			logger.Component("gc"),
			logger.Count("evicted", evicted),
			logger.Duration(elapsed))
	}
	return Result{Status: StatusCompleted, Evicted: evicted}, nil
}

// Start runs ticks every interval until ctx is cancelled or Stop is called.
// It blocks; use Run for errgroup integration or call it in a goroutine.
func (c *Collector) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.InfoContext(ctx, "gc started", slog.Duration("interval", c.interval))

	for {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			c.cancel = nil
			c.mu.Unlock()
			return ctx.Err()
		case <-ticker.C:
			c.tickWithWait(ctx)
		}
	}
}

// tickWithWait tracks the pass so Stop can wait for it.
func (c *Collector) tickWithWait(ctx context.Context) {
	c.mu.RLock()
	if c.cancel == nil {
		c.mu.RUnlock()
		return
	}
	c.wg.Add(1)
	c.mu.RUnlock()
	defer c.wg.Done()

	// A pass that started finishes its teardowns even if shutdown begins.
	_, _ = c.Tick(context.WithoutCancel(ctx))
}

// Stop cancels the timer loop and waits for an in-flight pass, up to the
// shutdown timeout.
func (c *Collector) Stop() error {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel == nil {
		return ErrNotStarted
	}
	cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.InfoContext(context.Background(), "gc stopped")
		return nil
	case <-time.After(c.shutdownTimeout):
		c.logger.WarnContext(context.Background(), "gc shutdown timeout exceeded",
			slog.Duration("timeout", c.shutdownTimeout))
		return fmt.Errorf("%w after %s", ErrShutdownTimeout, c.shutdownTimeout)
	}
}

// Run provides errgroup compatibility: it starts the loop and stops it
// gracefully once ctx is cancelled.
func (c *Collector) Run(ctx context.Context) func() error {
	return func() error {
		errCh := make(chan error, 1)
		go func() {
			errCh <- c.Start(ctx)
		}()

		select {
		case <-ctx.Done():
			_ = c.Stop()
			<-errCh
			return nil
		case err := <-errCh:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}

// Stats returns current counters. Safe to call at any time.
func (c *Collector) Stats() Stats {
	c.mu.RLock()
	running := c.cancel != nil
	c.mu.RUnlock()

	var last time.Time
	if ns := c.lastRun.Load(); ns != 0 {
		last = time.Unix(0, ns)
	}

	return Stats{
		Runs:        c.runs.Load(),
		Skipped:     c.skipped.Load(),
		Failures:    c.failures.Load(),
		Evicted:     c.evicted.Load(),
		ActivePass:  c.active.Load() > 0,
		IsRunning:   running,
		LastRunTime: last,
	}
}

// Healthcheck reports an error when the timer loop is not running.
func (c *Collector) Healthcheck(context.Context) error {
	if !c.Stats().IsRunning {
		return errors.Join(ErrHealthcheckFailed, ErrNotRunning)
	}
	return nil
}

// Package lock implements a best-effort, lease-based cluster-wide lock.
//
// The lock key holds the lease deadline in unix milliseconds. A caller owns the
// lock when it creates the key, or when it overwrites an expired deadline and
// reads back the exact value it saw expire. Ownership is not tied to an
// identity and is not renewed, so the protected routine must finish well
// inside the lease timeout.
//
// Known bound: the takeover is overwrite-then-compare (GETSET), not a
// compare-and-swap against the expired value. If three or more callers race
// on the same expired lease, a late overwrite can hand the readback check to
// more than one of them. Routines guarded by this lock must therefore be safe
// to run twice.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/busengine/core/keyspace"
	"github.com/dmitrymomot/busengine/core/logger"
)

// DefaultTimeout is the lease length.
const DefaultTimeout = 120 * time.Second

// Locker acquires named leases in one namespace.
type Locker struct {
	client  redis.Cmdable
	ns      keyspace.Namespace
	timeout time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Locker.
type Option func(*Locker)

// WithTimeout sets the lease length.
func WithTimeout(d time.Duration) Option {
	return func(l *Locker) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Locker) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(l *Locker) {
		if log != nil {
			l.logger = log
		}
	}
}

// New creates a Locker on top of client.
func New(client redis.Cmdable, ns keyspace.Namespace, opts ...Option) *Locker {
	l := &Locker{
		client:  client,
		ns:      ns,
		timeout: DefaultTimeout,
		now:     time.Now,
		logger:  logger.Discard(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lease is a held lock. It is valid until ExpiresAt.
type Lease struct {
	locker *Locker
	name   string
	key    string
	expiry int64
}

// Name returns the lock name.
func (ls *Lease) Name() string { return ls.name }

// ExpiresAt returns the lease deadline.
func (ls *Lease) ExpiresAt() time.Time { return time.UnixMilli(ls.expiry) }

// Release deletes the lock key, unless the lease already expired: by then
// another caller may have taken the key over.
func (ls *Lease) Release(ctx context.Context) error {
	if ls.locker.now().UnixMilli() >= ls.expiry {
		ls.locker.logger.DebugContext(ctx, "lease expired before release, leaving key",
			logger.Lock(ls.name))
		return nil
	}
	if err := ls.locker.client.Del(ctx, ls.key).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	return nil
}

// Acquire tries to take the named lock once. It returns ErrNotAcquired when a
// live lease is held elsewhere or a concurrent takeover won.
func (l *Locker) Acquire(ctx context.Context, name string) (*Lease, error) {
	key := l.ns.Lock(name)
	start := l.now()
	now := start.UnixMilli()
	expiry := start.Add(l.timeout).UnixMilli()
	value := strconv.FormatInt(expiry, 10)

	created, err := l.client.SetNX(ctx, key, value, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	if created {
		return l.lease(ctx, name, key, expiry, "created"), nil
	}

	current, err := l.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// Released between SETNX and GET; the next attempt will create it.
		return nil, ErrNotAcquired
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}

	// An unparsable deadline is treated as expired.
	if deadline, perr := strconv.ParseInt(current, 10, 64); perr == nil && now < deadline {
		return nil, ErrNotAcquired
	}

	previous, err := l.client.GetSet(ctx, key, value).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	if previous != current {
		l.logger.DebugContext(ctx, "lost lease takeover race", logger.Lock(name))
		return nil, ErrNotAcquired
	}

	return l.lease(ctx, name, key, expiry, "takeover"), nil
}

func (l *Locker) lease(ctx context.Context, name, key string, expiry int64, how string) *Lease {
	l.logger.DebugContext(ctx, "lease acquired",
		logger.Lock(name),
		logger.Action(how),
		logger.Timestamp("expires_at", time.UnixMilli(expiry)))
	return &Lease{locker: l, name: name, key: key, expiry: expiry}
}

// WithLock runs fn while holding the named lock and releases it afterwards.
// It reports false without calling fn when the lock is not acquired.
func (l *Locker) WithLock(ctx context.Context, name string, fn func(context.Context) error) (bool, error) {
	lease, err := l.Acquire(ctx, name)
	if errors.Is(err, ErrNotAcquired) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	runErr := fn(ctx)
	if err := lease.Release(ctx); err != nil {
		return true, errors.Join(runErr, err)
	}
	return true, runErr
}

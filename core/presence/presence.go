// Package presence tracks which bus clients exist and when they last
// checked in. The registry is a sorted set keyed by client id whose score is
// the last heartbeat in unix milliseconds. A score of 0 marks a client that
// was registered but never pinged.
package presence

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

const (
	// LivenessFactor scales the bus timeout into the delivery liveness window.
	LivenessFactor = 1.6
	// EvictionFactor scales the bus timeout into the GC eviction window.
	EvictionFactor = 2.0
)

// Registry is the presence registry for one namespace.
type Registry struct {
	client redis.Cmdable
	ns     keyspace.Namespace
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the time source used for heartbeats and liveness.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a registry on top of client.
func New(client redis.Cmdable, ns keyspace.Namespace, opts ...Option) *Registry {
	r := &Registry{
		client: client,
		ns:     ns,
		now:    time.Now,
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds id with the sentinel score if it is not registered yet.
// It reports false when the id is already taken.
func (r *Registry) Register(ctx context.Context, id string) (bool, error) {
	added, err := r.client.ZAddNX(ctx, r.ns.Clients(), redis.Z{Score: 0, Member: id}).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrRegister, err)
	}
	return added == 1, nil
}

// RegisterNew draws ids from generate until one is free and registers it.
// Collisions are retried without limit; only store errors or ctx stop the loop.
func (r *Registry) RegisterNew(ctx context.Context, generate func() string) (string, error) {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		id := generate()
		ok, err := r.Register(ctx, id)
		if err != nil {
			return "", err
		}
		if ok {
			return id, nil
		}

		r.logger.DebugContext(ctx, "client id collision, retrying",
			logger.ClientID(id),
			logger.RetryCount(attempt+1))
	}
}

// Heartbeat overwrites the client's score with the current time.
func (r *Registry) Heartbeat(ctx context.Context, id string) error {
	score := float64(r.now().UnixMilli())
	if err := r.client.ZAdd(ctx, r.ns.Clients(), redis.Z{Score: score, Member: id}).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrHeartbeat, err)
	}
	return nil
}

// IsAlive reports whether id pinged within LivenessFactor × timeout.
// With a non-positive timeout liveness is undefined and any registered client
// counts as alive.
func (r *Registry) IsAlive(ctx context.Context, id string, timeout time.Duration) (bool, error) {
	score, err := r.client.ZScore(ctx, r.ns.Clients(), id).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrLookup, err)
	}
	if timeout <= 0 {
		return true, nil
	}

	window := time.Duration(float64(timeout) * LivenessFactor)
	cutoff := r.now().Add(-window).UnixMilli()
	return int64(score) > cutoff, nil
}

// ListStale returns ids whose last heartbeat is in [0, cutoff].
func (r *Registry) ListStale(ctx context.Context, cutoff time.Time) ([]string, error) {
	ids, err := r.client.ZRangeByScore(ctx, r.ns.Clients(), &redis.ZRangeBy{
		Min: "0",
		Max: strconv.FormatInt(cutoff.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLookup, err)
	}
	return ids, nil
}

// StaleCutoff is the newest heartbeat that still counts as abandoned at now.
func StaleCutoff(now time.Time, timeout time.Duration) time.Time {
	return now.Add(-time.Duration(float64(timeout) * EvictionFactor))
}

// Remove deletes id from the registry and reports whether it was present.
// Full client teardown removes the entry inside its own transaction; Remove is
// the standalone form for callers that only need to unregister.
func (r *Registry) Remove(ctx context.Context, id string) (bool, error) {
	n, err := r.client.ZRem(ctx, r.ns.Clients(), id).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrRemove, err)
	}
	return n == 1, nil
}

package lock_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/busengine/core/keyspace"
	"github.com/dmitrymomot/busengine/core/lock"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setup(t *testing.T) (*miniredis.Miniredis, *redis.Client, *fakeClock) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client, &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
}

func newLocker(client redis.Cmdable, clock *fakeClock) *lock.Locker {
	return lock.New(client, keyspace.New("/test"), lock.WithClock(clock.Now))
}

func TestLocker_AcquireAndRelease(t *testing.T) {
	t.Parallel()
	_, client, clock := setup(t)
	ctx := context.Background()
	locker := newLocker(client, clock)

	lease, err := locker.Acquire(ctx, "gc")
	require.NoError(t, err)
	assert.Equal(t, "gc", lease.Name())
	assert.Equal(t, clock.Now().Add(lock.DefaultTimeout), lease.ExpiresAt())

	stored, err := client.Get(ctx, "/test/locks/gc").Result()
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatInt(lease.ExpiresAt().UnixMilli(), 10), stored)

	_, err = locker.Acquire(ctx, "gc")
	assert.ErrorIs(t, err, lock.ErrNotAcquired, "live lease blocks other callers")

	require.NoError(t, lease.Release(ctx))
	exists, err := client.Exists(ctx, "/test/locks/gc").Result()
	require.NoError(t, err)
	assert.Zero(t, exists)

	_, err = locker.Acquire(ctx, "gc")
	assert.NoError(t, err, "released lock can be taken again")
}

func TestLocker_ConcurrentAcquire(t *testing.T) {
	t.Parallel()
	_, client, clock := setup(t)
	ctx := context.Background()

	const callers = 8
	var (
		wg       sync.WaitGroup
		acquired atomic.Int32
		start    = make(chan struct{})
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			locker := newLocker(client, clock)
			<-start
			_, err := locker.Acquire(ctx, "gc")
			if err == nil {
				acquired.Add(1)
				return
			}
			assert.ErrorIs(t, err, lock.ErrNotAcquired)
		}()
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, acquired.Load())
}

func TestLocker_TakeoverAfterExpiry(t *testing.T) {
	t.Parallel()
	_, client, clock := setup(t)
	ctx := context.Background()

	crashed := newLocker(client, clock)
	_, err := crashed.Acquire(ctx, "gc")
	require.NoError(t, err)

	clock.Advance(lock.DefaultTimeout - time.Millisecond)
	_, err = newLocker(client, clock).Acquire(ctx, "gc")
	assert.ErrorIs(t, err, lock.ErrNotAcquired, "lease still live")

	clock.Advance(time.Millisecond)
	lease, err := newLocker(client, clock).Acquire(ctx, "gc")
	require.NoError(t, err, "expired lease is taken over")

	stored, err := client.Get(ctx, "/test/locks/gc").Result()
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatInt(lease.ExpiresAt().UnixMilli(), 10), stored)
}

func TestLocker_TakeoverOfGarbageValue(t *testing.T) {
	t.Parallel()
	_, client, clock := setup(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "/test/locks/gc", "not-a-number", 0).Err())

	_, err := newLocker(client, clock).Acquire(ctx, "gc")
	assert.NoError(t, err)
}

// raceHook lets a competing instance overwrite the lock right before GETSET runs.
type raceHook struct {
	other *redis.Client
	key   string
	value string
	once  sync.Once
}

func (h *raceHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *raceHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if cmd.Name() == "getset" {
			h.once.Do(func() {
				_ = h.other.Set(ctx, h.key, h.value, 0).Err()
			})
		}
		return next(ctx, cmd)
	}
}

func (h *raceHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestLocker_TakeoverRaceLost(t *testing.T) {
	t.Parallel()
	mr, other, clock := setup(t)
	ctx := context.Background()

	require.NoError(t, other.Set(ctx, "/test/locks/gc", "1", 0).Err())

	racing := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = racing.Close() })
	racing.AddHook(&raceHook{other: other, key: "/test/locks/gc", value: "2"})

	_, err := newLocker(racing, clock).Acquire(ctx, "gc")
	assert.ErrorIs(t, err, lock.ErrNotAcquired, "readback differs from the expired value")
}

func TestLease_ReleaseAfterExpiryKeepsKey(t *testing.T) {
	t.Parallel()
	_, client, clock := setup(t)
	ctx := context.Background()

	lease, err := newLocker(client, clock).Acquire(ctx, "gc")
	require.NoError(t, err)

	clock.Advance(lock.DefaultTimeout)
	require.NoError(t, lease.Release(ctx))

	exists, err := client.Exists(ctx, "/test/locks/gc").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, exists, "expired lease may belong to someone else now")
}

func TestLocker_WithLock(t *testing.T) {
	t.Parallel()
	_, client, clock := setup(t)
	ctx := context.Background()
	locker := newLocker(client, clock)

	t.Run("runs and releases", func(t *testing.T) {
		calls := 0
		ran, err := locker.WithLock(ctx, "job", func(context.Context) error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.True(t, ran)
		assert.Equal(t, 1, calls)

		exists, err := client.Exists(ctx, "/test/locks/job").Result()
		require.NoError(t, err)
		assert.Zero(t, exists)
	})

	t.Run("skips when held", func(t *testing.T) {
		lease, err := locker.Acquire(ctx, "held")
		require.NoError(t, err)
		t.Cleanup(func() { _ = lease.Release(ctx) })

		ran, err := locker.WithLock(ctx, "held", func(context.Context) error {
			t.Fatal("must not run")
			return nil
		})
		require.NoError(t, err)
		assert.False(t, ran)
	})

	t.Run("propagates routine error", func(t *testing.T) {
		boom := errors.New("boom")
		ran, err := locker.WithLock(ctx, "failing", func(context.Context) error { return boom })
		assert.True(t, ran)
		assert.ErrorIs(t, err, boom)

		exists, err := client.Exists(ctx, "/test/locks/failing").Result()
		require.NoError(t, err)
		assert.Zero(t, exists, "lock is released even when the routine fails")
	})
}

func TestLocker_CustomTimeout(t *testing.T) {
	t.Parallel()
	_, client, clock := setup(t)

	locker := lock.New(client, keyspace.New("/test"),
		lock.WithClock(clock.Now),
		lock.WithTimeout(5*time.Second))

	lease, err := locker.Acquire(context.Background(), "gc")
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(5*time.Second), lease.ExpiresAt())
}

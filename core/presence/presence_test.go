package presence_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/busengine/core/keyspace"
	"github.com/dmitrymomot/busengine/core/presence"
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

func setup(t *testing.T) (*presence.Registry, *redis.Client, *fakeClock) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	reg := presence.New(client, keyspace.New("/test"), presence.WithClock(clock.Now))
	return reg, client, clock
}

func TestRegistry_Register(t *testing.T) {
	t.Parallel()
	reg, client, _ := setup(t)
	ctx := context.Background()

	ok, err := reg.Register(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	score, err := client.ZScore(ctx, "/test/clients", "a").Result()
	require.NoError(t, err)
	assert.Zero(t, score, "fresh clients carry the sentinel score")

	ok, err = reg.Register(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok, "second registration of the same id collides")
}

func TestRegistry_RegisterNew(t *testing.T) {
	t.Parallel()
	reg, _, _ := setup(t)
	ctx := context.Background()

	_, err := reg.Register(ctx, "taken-1")
	require.NoError(t, err)
	_, err = reg.Register(ctx, "taken-2")
	require.NoError(t, err)

	candidates := []string{"taken-1", "taken-2", "free"}
	calls := 0
	gen := func() string {
		id := candidates[calls]
		calls++
		return id
	}

	id, err := reg.RegisterNew(ctx, gen)
	require.NoError(t, err)
	assert.Equal(t, "free", id)
	assert.Equal(t, 3, calls)

	t.Run("stops on cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := reg.RegisterNew(ctx, func() string { return "taken-1" })
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRegistry_IsAlive(t *testing.T) {
	t.Parallel()
	reg, _, clock := setup(t)
	ctx := context.Background()
	timeout := 10 * time.Second

	alive, err := reg.IsAlive(ctx, "ghost", timeout)
	require.NoError(t, err)
	assert.False(t, alive, "unknown client is not alive")

	_, err = reg.Register(ctx, "c")
	require.NoError(t, err)

	alive, err = reg.IsAlive(ctx, "c", timeout)
	require.NoError(t, err)
	assert.False(t, alive, "never pinged client is outside the window")

	alive, err = reg.IsAlive(ctx, "c", 0)
	require.NoError(t, err)
	assert.True(t, alive, "without a timeout a registered client is alive")

	require.NoError(t, reg.Heartbeat(ctx, "c"))
	alive, err = reg.IsAlive(ctx, "c", timeout)
	require.NoError(t, err)
	assert.True(t, alive)

	clock.Advance(15*time.Second + 999*time.Millisecond)
	alive, err = reg.IsAlive(ctx, "c", timeout)
	require.NoError(t, err)
	assert.True(t, alive, "still inside 1.6 x timeout")

	clock.Advance(time.Millisecond)
	alive, err = reg.IsAlive(ctx, "c", timeout)
	require.NoError(t, err)
	assert.False(t, alive, "dead once now - heartbeat reaches 1.6 x timeout")
}

func TestRegistry_ListStale(t *testing.T) {
	t.Parallel()
	reg, _, clock := setup(t)
	ctx := context.Background()
	timeout := 10 * time.Second

	for i := range 3 {
		_, err := reg.Register(ctx, fmt.Sprintf("c%d", i))
		require.NoError(t, err)
	}
	require.NoError(t, reg.Heartbeat(ctx, "c0"))
	require.NoError(t, reg.Heartbeat(ctx, "c1"))

	clock.Advance(15 * time.Second)
	require.NoError(t, reg.Heartbeat(ctx, "c1"))

	clock.Advance(6 * time.Second)
	stale, err := reg.ListStale(ctx, presence.StaleCutoff(clock.Now(), timeout))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c0", "c2"}, stale)
}

func TestRegistry_Remove(t *testing.T) {
	t.Parallel()
	reg, client, _ := setup(t)
	ctx := context.Background()

	_, err := reg.Register(ctx, "a")
	require.NoError(t, err)
	_, err = reg.Register(ctx, "b")
	require.NoError(t, err)

	n, err := client.ZCard(ctx, "/test/clients").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	removed, err := reg.Remove(ctx, "a")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = reg.Remove(ctx, "a")
	require.NoError(t, err)
	assert.False(t, removed, "removing an absent client is a no-op")

	n, err = client.ZCard(ctx, "/test/clients").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestStaleCutoff(t *testing.T) {
	t.Parallel()
	now := time.UnixMilli(100_000)
	assert.Equal(t, time.UnixMilli(80_000), presence.StaleCutoff(now, 10*time.Second))
}

func TestRegistry_StoreError(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	reg := presence.New(client, keyspace.New("/test"))
	mr.Close()

	_, err := reg.Register(context.Background(), "a")
	assert.ErrorIs(t, err, presence.ErrRegister)
	assert.ErrorIs(t, reg.Heartbeat(context.Background(), "a"), presence.ErrHeartbeat)
}

package async_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrymomot/busengine/pkg/async"
)

func TestExecFunctionality(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	futureInt := async.Exec(ctx, 42, func(ctx context.Context, num int) error {
		time.Sleep(50 * time.Millisecond)
		if num != 42 {
			return errors.New("unexpected number")
		}
		return nil
	})

	futureString := async.Exec(ctx, "client-1", func(ctx context.Context, s string) error {
		if len(s) == 0 {
			return errors.New("empty string")
		}
		return nil
	})

	if err := futureInt.Await(); err != nil {
		t.Errorf("Unexpected error from futureInt: %v", err)
	}
	if err := futureString.Await(); err != nil {
		t.Errorf("Unexpected error from futureString: %v", err)
	}
	if !futureInt.IsComplete() {
		t.Error("Expected future to be complete after Await")
	}
}

func TestExecContextCancellation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	future := async.Exec(ctx, 42, func(ctx context.Context, num int) error {
		select {
		case <-time.After(time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	if err := future.Await(); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context deadline exceeded error, got: %v", err)
	}
}

func TestExecPreCancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	future := async.Exec(ctx, 1, func(context.Context, int) error {
		called = true
		return nil
	})

	if err := future.Await(); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context canceled error, got: %v", err)
	}
	if called {
		t.Error("Function must not run with a cancelled context")
	}
}

func TestAwaitWithTimeout(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	future := async.Exec(context.Background(), 0, func(context.Context, int) error {
		<-release
		return nil
	})

	if err := future.AwaitWithTimeout(20 * time.Millisecond); !errors.Is(err, async.ErrTimeout) {
		t.Errorf("Expected ErrTimeout, got: %v", err)
	}
	if future.IsComplete() {
		t.Error("Future should still be running")
	}

	close(release)
	if err := future.AwaitWithTimeout(time.Second); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestExecAllWaitsForEveryFuture(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	errFirst := errors.New("first")
	errThird := errors.New("third")

	var finished atomic.Int32
	slow := func(ctx context.Context, err error) error {
		time.Sleep(30 * time.Millisecond)
		finished.Add(1)
		return err
	}

	err := async.ExecAll(
		async.Exec(ctx, errFirst, func(context.Context, error) error { finished.Add(1); return errFirst }),
		async.Exec(ctx, error(nil), slow),
		async.Exec(ctx, errThird, slow),
	)

	if !errors.Is(err, errFirst) || !errors.Is(err, errThird) {
		t.Errorf("Expected both errors joined, got: %v", err)
	}
	if got := finished.Load(); got != 3 {
		t.Errorf("Expected all 3 futures to finish, got %d", got)
	}
}

func TestExecEachRespectsLimit(t *testing.T) {
	t.Parallel()
	items := make([]int, 20)
	for i := range items {
		items[i] = i
	}

	var inFlight, peak, total atomic.Int32
	err := async.ExecEach(context.Background(), 3, items, func(ctx context.Context, _ int) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		total.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if total.Load() != 20 {
		t.Errorf("Expected 20 calls, got %d", total.Load())
	}
	if peak.Load() > 3 {
		t.Errorf("Expected at most 3 concurrent calls, got %d", peak.Load())
	}
}

func TestExecEachEmptyAndCancelled(t *testing.T) {
	t.Parallel()

	if err := async.ExecEach(context.Background(), 2, []string(nil), func(context.Context, string) error {
		t.Error("Must not be called")
		return nil
	}); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := async.ExecEach(ctx, 1, []string{"a", "b", "c"}, func(context.Context, string) error {
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context canceled error, got: %v", err)
	}
}

package async

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ExecFuture represents the result of an asynchronous computation that only returns an error.
type ExecFuture struct {
	err  error
	once sync.Once
	done chan struct{}
}

// Await waits for the asynchronous function to complete and returns its error.
func (f *ExecFuture) Await() error {
	<-f.done
	return f.err
}

// AwaitWithTimeout waits for the asynchronous function to complete with a timeout.
// If the timeout occurs before completion, returns ErrTimeout.
func (f *ExecFuture) AwaitWithTimeout(timeout time.Duration) error {
	select {
	case <-f.done:
		return f.err
	case <-time.After(timeout):
		return ErrTimeout
	}
}

// IsComplete checks if the asynchronous function is complete without blocking.
func (f *ExecFuture) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Exec executes a function asynchronously that only returns an error.
// The function accepts a context.Context and a parameter of any type T, and returns error.
func Exec[T any](ctx context.Context, param T, fn func(context.Context, T) error) *ExecFuture {
	f := &ExecFuture{done: make(chan struct{})}

	go func() {
		defer close(f.done)

		// Early exit prevents goroutine leak when context is pre-canceled
		select {
		case <-ctx.Done():
			f.err = ctx.Err()
			return
		default:
		}

		err := fn(ctx, param)

		f.once.Do(func() {
			f.err = err
		})
	}()

	return f
}

// ExecAll waits for every future to complete and returns their errors joined.
// Unlike a fail-fast wait it never abandons futures that are still running.
func ExecAll(futures ...*ExecFuture) error {
	var errs []error
	for _, future := range futures {
		if err := future.Await(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ExecEach runs fn for every item with at most limit calls in flight and waits
// for all of them. A limit below 1 means no limit. Errors are joined.
func ExecEach[T any](ctx context.Context, limit int, items []T, fn func(context.Context, T) error) error {
	if len(items) == 0 {
		return nil
	}
	if limit < 1 || limit > len(items) {
		limit = len(items)
	}

	sem := make(chan struct{}, limit)
	futures := make([]*ExecFuture, 0, len(items))
	for _, item := range items {
		sem <- struct{}{}
		f := Exec(ctx, item, fn)
		go func() {
			<-f.done
			<-sem
		}()
		futures = append(futures, f)
	}
	return ExecAll(futures...)
}

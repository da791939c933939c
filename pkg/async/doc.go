// Package async provides small future helpers for running functions in the
// background and waiting for their results.
//
// Exec starts a function in a goroutine and returns an *ExecFuture:
//
//	future := async.Exec(ctx, clientID, func(ctx context.Context, id string) error {
//		return engine.DestroyClient(ctx, id)
//	})
//	if err := future.Await(); err != nil {
//		// handle
//	}
//
// ExecAll waits for a set of futures and joins their errors. ExecEach fans a
// function out over a slice with bounded concurrency and waits for every call,
// which is how the garbage collector tears down stale clients:
//
//	err := async.ExecEach(ctx, 8, staleIDs, destroy)
//
// A future whose context is already cancelled completes immediately with the
// context error without calling the function.
package async

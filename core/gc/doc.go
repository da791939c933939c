// Package gc evicts bus clients that stopped sending heartbeats.
//
// Every tick the collector takes the cluster-wide "gc" lock, lists clients
// whose last heartbeat is older than twice the bus timeout and destroys each of
// them. Ticks that cannot take the lock are skipped; another instance is
// already collecting. Without a timeout there is no notion of liveness and
// every tick is a no-op.
//
// Teardowns must be idempotent: the lock is best-effort, so two instances can
// occasionally run the same pass.
//
//	collector, err := gc.New(locker, registry, engine,
//		gc.WithInterval(time.Minute),
//		gc.WithTimeout(server.Timeout),
//	)
//	eg.Go(collector.Run(ctx))
package gc

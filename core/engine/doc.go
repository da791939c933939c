// Package engine is the shared-state backend of a multi-process pub/sub bus.
//
// Every process of the bus runs an Engine against the same store and
// namespace. The engine records which clients exist and when they last sent a
// heartbeat, which channels they subscribe to and which messages wait for
// them. Publishing queues the message for every subscriber and broadcasts a
// notification; the process holding the subscriber's connection drains the
// queue and hands the messages to its Server. A garbage collector, serialized
// cluster-wide by a lease lock, tears down clients that stopped sending
// heartbeats.
//
// # Usage
//
//	e, err := engine.New(server, client,
//		engine.WithNamespace("/chat"),
//		engine.WithLogger(log),
//	)
//	if err != nil {
//		return err
//	}
//	eg.Go(e.Run(ctx))
//
//	id, err := e.CreateClient(ctx)
//	err = e.Subscribe(ctx, id, "/rooms/lobby")
//	err = e.Publish(ctx, engine.Message{Channel: "/rooms/lobby", Data: "hi"},
//		engine.ExpandChannel("/rooms/lobby"))
//
// NewFromConfig opens both store connections itself and closes them on
// Shutdown:
//
//	var cfg engine.Config
//	config.MustLoad(&cfg)
//	e, err := engine.NewFromConfig(ctx, server, cfg)
//
// # Events
//
// The Server receives handshake, subscribe, unsubscribe, publish, disconnect
// and close events. Subscribe and unsubscribe events fire only when the call
// changed the subscription; disconnect fires only for the teardown that
// removed the client, so repeated teardowns stay silent.
package engine

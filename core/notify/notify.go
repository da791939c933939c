// Package notify wakes whichever engine instance holds a client's connection.
//
// Two broadcast topics live under the namespace: the message topic carries ids
// of clients whose queue changed and the close topic carries ids of clients
// that must be disconnected. Every instance subscribes to both and decides
// locally whether a notification concerns one of its own connections.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/busengine/core/keyspace"
	"github.com/dmitrymomot/busengine/core/logger"
)

// Handler reacts to notifications received by Listen.
// Calls are made sequentially from a single goroutine.
type Handler interface {
	HandleMessage(ctx context.Context, clientID string)
	HandleClose(ctx context.Context, clientID string)
}

// Subscriber opens pub/sub subscriptions. *redis.Client satisfies it.
type Subscriber interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// Bus publishes and receives notifications for one namespace.
type Bus struct {
	pub    redis.Cmdable
	sub    Subscriber
	ns     keyspace.Namespace
	logger *slog.Logger
	buffer int

	mu     sync.Mutex
	pubsub *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithBufferSize sets how many received notifications may wait for the handler.
func WithBufferSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// New creates a bus. pub issues PUBLISH commands; sub is used only for the
// long-lived subscription and may be the same client.
func New(pub redis.Cmdable, sub Subscriber, ns keyspace.Namespace, opts ...Option) *Bus {
	b := &Bus{
		pub:    pub,
		sub:    sub,
		ns:     ns,
		logger: logger.Discard(),
		buffer: 100,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NotifyMessage announces that clientID's queue changed.
func (b *Bus) NotifyMessage(ctx context.Context, clientID string) error {
	if err := b.pub.Publish(ctx, b.ns.MessageTopic(), clientID).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublish, err)
	}
	return nil
}

// NotifyClose asks the instance holding clientID's connection to close it.
// Client teardown publishes the same notification from inside its
// transaction; NotifyClose is the standalone form.
func (b *Bus) NotifyClose(ctx context.Context, clientID string) error {
	if err := b.pub.Publish(ctx, b.ns.CloseTopic(), clientID).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublish, err)
	}
	return nil
}

// Listen subscribes to both topics and dispatches notifications to h in the
// background. It returns once the store confirmed the subscription, so any
// notification published afterwards is seen. Stop it with Close.
func (b *Bus) Listen(ctx context.Context, h Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pubsub != nil {
		return ErrAlreadyListening
	}

	ps := b.sub.Subscribe(ctx, b.ns.MessageTopic(), b.ns.CloseTopic())
	// SUBSCRIBE with both topics is a single command, the first confirmation
	// means both are active.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return fmt.Errorf("%w: %w", ErrSubscribe, err)
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	b.pubsub = ps
	b.cancel = cancel
	b.done = make(chan struct{})

	go b.loop(loopCtx, ps.Channel(redis.WithChannelSize(b.buffer)), h, b.done)

	b.logger.DebugContext(ctx, "listening for notifications",
		logger.Component("notify"),
		logger.Namespace(b.ns.String()))
	return nil
}

func (b *Bus) loop(ctx context.Context, ch <-chan *redis.Message, h Handler, done chan struct{}) {
	defer close(done)

	messageTopic := b.ns.MessageTopic()
	closeTopic := b.ns.CloseTopic()

	for msg := range ch {
		switch msg.Channel {
		case messageTopic:
			h.HandleMessage(ctx, msg.Payload)
		case closeTopic:
			h.HandleClose(ctx, msg.Payload)
		}
	}
}

// Close unsubscribes and waits for the dispatch goroutine to exit.
// Calling Close on a bus that is not listening is a no-op.
func (b *Bus) Close() error {
	b.mu.Lock()
	ps, cancel, done := b.pubsub, b.cancel, b.done
	b.pubsub, b.cancel, b.done = nil, nil, nil
	b.mu.Unlock()

	if ps == nil {
		return nil
	}

	cancel()
	_ = ps.Unsubscribe(context.Background())
	err := ps.Close()
	<-done

	if err != nil {
		return fmt.Errorf("%w: %w", ErrClose, err)
	}
	return nil
}

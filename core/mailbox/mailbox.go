// Package mailbox holds the per-client FIFO of serialized messages waiting
// for delivery.
package mailbox

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/busengine/core/keyspace"
)

// Mailbox stores queued payloads for one namespace.
type Mailbox struct {
	client redis.Cmdable
	ns     keyspace.Namespace
}

// New creates a mailbox on top of client.
func New(client redis.Cmdable, ns keyspace.Namespace) *Mailbox {
	return &Mailbox{client: client, ns: ns}
}

// Enqueue appends payload to the client's queue. Waking the reader is up to
// the caller.
func (m *Mailbox) Enqueue(ctx context.Context, clientID string, payload []byte) error {
	if err := m.client.RPush(ctx, m.ns.ClientMessages(clientID), payload).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrEnqueue, err)
	}
	return nil
}

// Drain reads and clears the queue in one MULTI/EXEC, so pushes from other
// instances land either before or after it. An empty queue yields nil.
func (m *Mailbox) Drain(ctx context.Context, clientID string) ([][]byte, error) {
	key := m.ns.ClientMessages(clientID)

	var read *redis.StringSliceCmd
	_, err := m.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		read = p.LRange(ctx, key, 0, -1)
		p.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDrain, err)
	}

	items := read.Val()
	if len(items) == 0 {
		return nil, nil
	}
	out := make([][]byte, len(items))
	for i, s := range items {
		out[i] = []byte(s)
	}
	return out, nil
}

// Discard drops the queue.
func (m *Mailbox) Discard(ctx context.Context, clientID string) error {
	if err := m.client.Del(ctx, m.ns.ClientMessages(clientID)).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrDiscard, err)
	}
	return nil
}

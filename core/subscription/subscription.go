// Package subscription keeps the client/channel relation in two directions:
// the channels of each client and the clients of each channel. Both halves
// are written together; a half left behind by a failed call is removed by the
// next unsubscribe or client teardown.
package subscription

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/busengine/core/keyspace"
)

// Index is the subscription index for one namespace.
type Index struct {
	client redis.Cmdable
	ns     keyspace.Namespace
}

// Change reports which halves of the relation a call actually modified.
type Change struct {
	ClientSide  bool
	ChannelSide bool
}

// New creates an index on top of client.
func New(client redis.Cmdable, ns keyspace.Namespace) *Index {
	return &Index{client: client, ns: ns}
}

// Subscribe adds the pair to both directional sets.
// Change.ClientSide is true only for the call that created the subscription.
func (x *Index) Subscribe(ctx context.Context, clientID, channel string) (Change, error) {
	var fromClient, fromChannel *redis.IntCmd
	_, err := x.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		fromClient = p.SAdd(ctx, x.ns.ClientChannels(clientID), channel)
		fromChannel = p.SAdd(ctx, x.ns.ChannelClients(channel), clientID)
		return nil
	})
	if err != nil {
		return Change{}, fmt.Errorf("%w: %w", ErrSubscribe, err)
	}
	return Change{
		ClientSide:  fromClient.Val() == 1,
		ChannelSide: fromChannel.Val() == 1,
	}, nil
}

// Unsubscribe removes the pair from both directional sets.
// Change.ClientSide is true only when the client was actually subscribed.
func (x *Index) Unsubscribe(ctx context.Context, clientID, channel string) (Change, error) {
	var fromClient, fromChannel *redis.IntCmd
	_, err := x.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		fromClient = p.SRem(ctx, x.ns.ClientChannels(clientID), channel)
		fromChannel = p.SRem(ctx, x.ns.ChannelClients(channel), clientID)
		return nil
	})
	if err != nil {
		return Change{}, fmt.Errorf("%w: %w", ErrUnsubscribe, err)
	}
	return Change{
		ClientSide:  fromClient.Val() == 1,
		ChannelSide: fromChannel.Val() == 1,
	}, nil
}

// ChannelsOf returns the channels clientID subscribes to.
func (x *Index) ChannelsOf(ctx context.Context, clientID string) ([]string, error) {
	channels, err := x.client.SMembers(ctx, x.ns.ClientChannels(clientID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLookup, err)
	}
	return channels, nil
}

// SubscribersOf returns the union of subscribers across channels.
func (x *Index) SubscribersOf(ctx context.Context, channels []string) ([]string, error) {
	if len(channels) == 0 {
		return nil, nil
	}

	keys := make([]string, len(channels))
	for i, ch := range channels {
		keys[i] = x.ns.ChannelClients(ch)
	}

	clients, err := x.client.SUnion(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLookup, err)
	}
	return clients, nil
}

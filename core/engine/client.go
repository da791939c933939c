package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/busengine/core/logger"
	"github.com/dmitrymomot/busengine/core/metrics"
)

// CreateClient registers a fresh client id, records a first heartbeat and
// triggers the handshake event.
func (e *Engine) CreateClient(ctx context.Context) (string, error) {
	id, err := e.registry.RegisterNew(ctx, e.server.GenerateID)
	if err != nil {
		return "", errors.Join(ErrCreateClient, err)
	}

	e.logger.DebugContext(ctx, "created new client", logger.ClientID(id))

	if err := e.Ping(ctx, id); err != nil {
		e.logger.WarnContext(ctx, "first heartbeat failed",
			logger.ClientID(id),
			logger.Error(err))
	}

	e.server.Trigger(ctx, Event{Type: EventHandshake, ClientID: id})
	e.metrics.ClientCreated()
	return id, nil
}

// ClientExists reports whether the client is registered and has sent a
// heartbeat recently enough to count as alive.
func (e *Engine) ClientExists(ctx context.Context, clientID string) (bool, error) {
	return e.registry.IsAlive(ctx, clientID, e.server.Timeout())
}

// Ping records a heartbeat. It does nothing when the server has no liveness
// timeout.
func (e *Engine) Ping(ctx context.Context, clientID string) error {
	if e.server.Timeout() <= 0 {
		return nil
	}
	e.logger.DebugContext(ctx, "ping", logger.ClientID(clientID))
	return e.registry.Heartbeat(ctx, clientID)
}

// DestroyClient tears a client down: every subscription, the message queue and
// the registry entry are removed in one transaction that also broadcasts a
// close notification. Unsubscribe events are triggered only for pairs that
// were still present and the disconnect event only when the client was still
// registered, so destroying a client twice is harmless.
func (e *Engine) DestroyClient(ctx context.Context, clientID string) error {
	channels, err := e.index.ChannelsOf(ctx, clientID)
	if err != nil {
		return errors.Join(ErrDestroyClient, err)
	}

	clientChannels := e.ns.ClientChannels(clientID)
	removed := make([]*redis.IntCmd, len(channels))
	var unregistered *redis.IntCmd

	_, err = e.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for i, channel := range channels {
			removed[i] = p.SRem(ctx, clientChannels, channel)
			p.SRem(ctx, e.ns.ChannelClients(channel), clientID)
		}
		p.Del(ctx, e.ns.ClientMessages(clientID))
		unregistered = p.ZRem(ctx, e.ns.Clients(), clientID)
		p.Publish(ctx, e.ns.CloseTopic(), clientID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrDestroyClient, clientID, err)
	}
	e.metrics.NotificationSent(metrics.NotifyClose)

	for i, channel := range channels {
		if removed[i].Val() != 1 {
			continue
		}
		e.logger.DebugContext(ctx, "unsubscribed client",
			logger.ClientID(clientID),
			logger.Channel(channel))
		e.server.Trigger(ctx, Event{Type: EventUnsubscribe, ClientID: clientID, Channel: channel})
		e.metrics.Unsubscribed()
	}

	if unregistered.Val() == 1 {
		e.logger.DebugContext(ctx, "destroyed client", logger.ClientID(clientID))
		e.server.Trigger(ctx, Event{Type: EventDisconnect, ClientID: clientID})
		e.metrics.ClientDestroyed()
	}
	return nil
}

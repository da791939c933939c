package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrymomot/busengine/core/logger"
	"github.com/dmitrymomot/busengine/core/metrics"
)

// Subscribe adds the client to channel. The subscribe event is triggered only
// by the call that created the subscription.
func (e *Engine) Subscribe(ctx context.Context, clientID, channel string) error {
	change, err := e.index.Subscribe(ctx, clientID, channel)
	if err != nil {
		return err
	}

	e.logger.DebugContext(ctx, "subscribed client",
		logger.ClientID(clientID),
		logger.Channel(channel))

	if change.ClientSide {
		e.server.Trigger(ctx, Event{Type: EventSubscribe, ClientID: clientID, Channel: channel})
		e.metrics.Subscribed()
	}
	return nil
}

// Unsubscribe removes the client from channel. The unsubscribe event is
// triggered only when the client was actually subscribed.
func (e *Engine) Unsubscribe(ctx context.Context, clientID, channel string) error {
	change, err := e.index.Unsubscribe(ctx, clientID, channel)
	if err != nil {
		return err
	}

	e.logger.DebugContext(ctx, "unsubscribed client",
		logger.ClientID(clientID),
		logger.Channel(channel))

	if change.ClientSide {
		e.server.Trigger(ctx, Event{Type: EventUnsubscribe, ClientID: clientID, Channel: channel})
		e.metrics.Unsubscribed()
	}
	return nil
}

// Publish queues msg for every subscriber of any of channels and notifies
// them. Queues of recipients that are no longer alive are dropped right away.
// Failures for one recipient do not stop delivery to the others; they are
// returned joined once every recipient was handled.
func (e *Engine) Publish(ctx context.Context, msg Message, channels []string) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncodeMessage, err)
	}

	e.logger.DebugContext(ctx, "publishing message",
		logger.Channel(msg.Channel),
		logger.Channels(channels))

	recipients, err := e.index.SubscribersOf(ctx, channels)
	if err != nil {
		return errors.Join(ErrPublish, err)
	}

	var errs []error
	for _, id := range recipients {
		if err := e.mailbox.Enqueue(ctx, id, payload); err != nil {
			errs = append(errs, fmt.Errorf("client %s: %w", id, err))
			continue
		}
		e.metrics.MessageQueued()

		if err := e.bus.NotifyMessage(ctx, id); err != nil {
			e.logger.WarnContext(ctx, "message notification failed",
				logger.ClientID(id),
				logger.Error(err))
		} else {
			e.metrics.NotificationSent(metrics.NotifyMessage)
		}

		e.purgeIfDead(ctx, id)
	}

	e.server.Trigger(ctx, Event{
		Type:     EventPublish,
		ClientID: msg.ClientID,
		Channel:  msg.Channel,
		Data:     msg.Data,
	})

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrPublish}, errs...)...)
	}
	return nil
}

// purgeIfDead drops the queue of a recipient that stopped sending heartbeats,
// so messages do not pile up for a client that will never drain them.
func (e *Engine) purgeIfDead(ctx context.Context, clientID string) {
	alive, err := e.registry.IsAlive(ctx, clientID, e.server.Timeout())
	if err != nil || alive {
		return
	}
	if err := e.mailbox.Discard(ctx, clientID); err != nil {
		e.logger.WarnContext(ctx, "failed to purge queue of dead client",
			logger.ClientID(clientID),
			logger.Error(err))
		return
	}
	e.logger.DebugContext(ctx, "purged queue of dead client", logger.ClientID(clientID))
}

// HandleMessage drains and delivers the queue of a client connected to this
// process. Notifications for clients connected elsewhere are ignored.
func (e *Engine) HandleMessage(ctx context.Context, clientID string) {
	if !e.server.HasConnection(clientID) {
		return
	}

	raw, err := e.mailbox.Drain(ctx, clientID)
	if err != nil {
		e.logger.WarnContext(ctx, "failed to drain queue",
			logger.ClientID(clientID),
			logger.Error(err))
		return
	}
	if len(raw) == 0 {
		return
	}

	messages := make([]Message, 0, len(raw))
	for _, payload := range raw {
		var msg Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			e.logger.WarnContext(ctx, "dropping undecodable message",
				logger.ClientID(clientID),
				logger.Error(err))
			continue
		}
		messages = append(messages, msg)
	}
	if len(messages) == 0 {
		return
	}

	e.server.Deliver(ctx, clientID, messages)
	e.metrics.MessagesDelivered(len(messages))
}

// HandleClose triggers the close event for a client connected to this process.
func (e *Engine) HandleClose(ctx context.Context, clientID string) {
	if !e.server.HasConnection(clientID) {
		return
	}
	e.server.Trigger(ctx, Event{Type: EventClose, ClientID: clientID})
}

package engine

import (
	"context"
	"time"
)

// Server is the bus front end the engine reports to. Implementations must be
// safe for concurrent use: notifications are dispatched from a background
// goroutine while front-end calls run on their own goroutines.
type Server interface {
	// GenerateID returns a fresh client id candidate.
	GenerateID() string
	// Timeout is the client liveness timeout. Zero disables heartbeats and
	// garbage collection.
	Timeout() time.Duration
	// HasConnection reports whether this process holds a live connection for
	// the client.
	HasConnection(clientID string) bool
	// Deliver hands drained messages to the local connection of the client.
	Deliver(ctx context.Context, clientID string, messages []Message)
	// Trigger surfaces a lifecycle event.
	Trigger(ctx context.Context, event Event)
}

// EventType names a lifecycle event.
type EventType string

const (
	EventHandshake   EventType = "handshake"
	EventSubscribe   EventType = "subscribe"
	EventUnsubscribe EventType = "unsubscribe"
	EventPublish     EventType = "publish"
	EventDisconnect  EventType = "disconnect"
	EventClose       EventType = "close"
)

// Event is a lifecycle event. Channel is set for subscribe, unsubscribe and
// publish; Data only for publish.
type Event struct {
	Type     EventType
	ClientID string
	Channel  string
	Data     any
}

// Message is the envelope queued for every recipient of a publish.
type Message struct {
	ID       string         `json:"id,omitempty"`
	ClientID string         `json:"clientId,omitempty"`
	Channel  string         `json:"channel"`
	Data     any            `json:"data,omitempty"`
	Ext      map[string]any `json:"ext,omitempty"`
}

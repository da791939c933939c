package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/busengine/core/engine"
	"github.com/dmitrymomot/busengine/core/logger"
)

// maintenance is the engine.Server of a process without client connections.
// Notifications are never for it; lifecycle events are only logged.
type maintenance struct {
	timeout time.Duration
	log     *slog.Logger
}

func (m *maintenance) GenerateID() string { return engine.UUIDGenerator() }

func (m *maintenance) Timeout() time.Duration { return m.timeout }

func (m *maintenance) HasConnection(string) bool { return false }

func (m *maintenance) Deliver(context.Context, string, []engine.Message) {}

func (m *maintenance) Trigger(ctx context.Context, event engine.Event) {
	m.log.DebugContext(ctx, "bus event",
		logger.Event(string(event.Type)),
		logger.ClientID(event.ClientID),
		logger.Channel(event.Channel))
}

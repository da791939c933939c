// Package logger provides structured logging utilities built on Go's standard slog package.
// It offers environment-specific configurations and a set of pre-built attributes
// for the events the bus engine logs.
//
// # Basic Usage
//
//	import "github.com/dmitrymomot/busengine/core/logger"
//
//	// Development: text format, debug level, stdout
//	log := logger.New(logger.WithDevelopment("busengine"))
//
//	// Production: JSON format, info level, stdout
//	log := logger.New(logger.WithProduction("busengine"))
//
//	// Custom configuration
//	log := logger.New(
//		logger.WithLevel(slog.LevelWarn),
//		logger.WithJSONFormatter(),
//		logger.WithAttr(slog.String("service", "bus")),
//		logger.WithOutput(os.Stderr),
//	)
//
// # Attribute Helpers
//
// Helpers return the empty slog.Attr for nil or empty input, so they can be
// passed unconditionally:
//
//	log.Debug("Queueing message",
//		logger.ClientID(clientID),
//		logger.Channel(msg.Channel),
//		logger.Component("engine"),
//	)
//
//	log.Warn("GC teardown failed",
//		logger.Error(err),
//		logger.Lock("gc"),
//		logger.Count("stale_clients", n),
//	)
//
// Discard returns a logger that drops everything; components use it as their
// default so that logging is opt-in.
package logger

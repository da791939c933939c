package engine

import "errors"

var (
	ErrNilServer        = errors.New("engine: server is required")
	ErrNilClient        = errors.New("engine: store client is required")
	ErrNoSubscriber     = errors.New("engine: store client cannot subscribe, use WithSubscriber")
	ErrAlreadyStarted   = errors.New("engine: already started")
	ErrShutdown         = errors.New("engine: shut down")
	ErrCreateClient     = errors.New("engine: failed to create client")
	ErrDestroyClient    = errors.New("engine: failed to destroy client")
	ErrEncodeMessage    = errors.New("engine: failed to encode message")
	ErrPublish          = errors.New("engine: failed to publish")
	ErrConnect          = errors.New("engine: failed to connect to store")
	ErrShutdownTimeout  = errors.New("engine: shutdown timeout exceeded")
	ErrCloseConnections = errors.New("engine: failed to close store connections")
)

package presence

import "errors"

var (
	ErrRegister  = errors.New("presence: failed to register client")
	ErrHeartbeat = errors.New("presence: failed to record heartbeat")
	ErrLookup    = errors.New("presence: failed to query registry")
	ErrRemove    = errors.New("presence: failed to remove client")
)

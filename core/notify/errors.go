package notify

import "errors"

var (
	ErrPublish          = errors.New("notify: failed to publish notification")
	ErrSubscribe        = errors.New("notify: failed to subscribe to notification topics")
	ErrAlreadyListening = errors.New("notify: bus is already listening")
	ErrClose            = errors.New("notify: failed to close subscription")
)

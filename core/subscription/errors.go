package subscription

import "errors"

var (
	ErrSubscribe   = errors.New("subscription: failed to subscribe")
	ErrUnsubscribe = errors.New("subscription: failed to unsubscribe")
	ErrLookup      = errors.New("subscription: failed to query index")
)

package lock

import "errors"

var (
	ErrNotAcquired = errors.New("lock: not acquired")
	ErrStore       = errors.New("lock: store error")
)

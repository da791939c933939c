package gc

import "errors"

var (
	ErrMissingDependency = errors.New("gc: locker, lister and destroyer are required")
	ErrAlreadyStarted    = errors.New("gc: collector already started")
	ErrNotStarted        = errors.New("gc: collector not started")
	ErrNotRunning        = errors.New("gc: collector is not running")
	ErrShutdownTimeout   = errors.New("gc: shutdown timeout exceeded")
	ErrHealthcheckFailed = errors.New("gc: healthcheck failed")
	ErrPassFailed        = errors.New("gc: collection pass failed")
)

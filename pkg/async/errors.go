package async

import "errors"

// ErrTimeout is returned by AwaitWithTimeout when the future is still running.
var ErrTimeout = errors.New("async: timeout waiting for result")

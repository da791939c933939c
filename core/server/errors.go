package server

import "errors"

var (
	ErrMissingAddress       = errors.New("server: address is required")
	ErrServerAlreadyRunning = errors.New("server: already running")
	ErrListen               = errors.New("server: failed to listen")
	ErrHTTPServer           = errors.New("server: serve error")
	ErrHTTPShutdown         = errors.New("server: shutdown error")
)

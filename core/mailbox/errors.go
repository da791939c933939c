package mailbox

import "errors"

var (
	ErrEnqueue = errors.New("mailbox: failed to enqueue message")
	ErrDrain   = errors.New("mailbox: failed to drain queue")
	ErrDiscard = errors.New("mailbox: failed to discard queue")
)

package chat

import "errors"

// Domain-level error values returned by the chat session.
var (
	ErrEmptyMessage          = errors.New("empty message")
	ErrSendInFlight          = errors.New("send already in flight")
	ErrCompletionUnavailable = errors.New("completion service unavailable")
	ErrInvalidSessionConfig  = errors.New("invalid chat session config")
)

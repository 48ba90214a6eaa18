package errors

import "fmt"

var (
	ErrWorkerPanic      = fmt.Errorf("worker panic")
	ErrInvalidPayload   = fmt.Errorf("invalid event payload")
	ErrInvalidConfig    = fmt.Errorf("invalid configuration")
	ErrMissingDelimiter = fmt.Errorf("frame has no identity delimiter")
	ErrEmptyIdentity    = fmt.Errorf("frame has an empty identity")
	ErrEventDropped     = fmt.Errorf("event channel full, event dropped")
	ErrOutboxFull       = fmt.Errorf("session outbox full, frame dropped")
	ErrSessionClosed    = fmt.Errorf("session closed")
	ErrSessionReplaced  = fmt.Errorf("session replaced by a newer connection with the same identity")
	ErrUnknownCommand   = fmt.Errorf("unknown command")
	ErrInvalidIdentity  = fmt.Errorf("identity must not contain the delimiter")
	ErrGroupUnavailable = fmt.Errorf("multicast group not joined")
)

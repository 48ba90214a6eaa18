package domain

import (
	"chat-relay/contract"
	"time"

	"github.com/google/uuid"
)

// SessionID identifies one accepted stream connection.
// Two connections announcing the same identity still get distinct ids.
type SessionID uuid.UUID

func NewSessionID() SessionID {
	return SessionID(uuid.New())
}

func (id SessionID) String() string {
	return uuid.UUID(id).String()
}

type SessionState int

const (
	SessionActive SessionState = iota
	SessionClosing
	SessionRemoved
)

func (s SessionState) String() string {
	switch s {
	case SessionActive:
		return "active"
	case SessionClosing:
		return "closing"
	case SessionRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Session is a registered stream peer.
// Identity is bound at registration and used as the relay prefix for every later frame.
type Session struct {
	ID           SessionID
	Identity     Identity
	Handle       contract.Handle
	State        SessionState
	RegisteredAt time.Time
}

func NewSession(id SessionID, identity Identity, handle contract.Handle, at time.Time) *Session {
	return &Session{
		ID:           id,
		Identity:     identity,
		Handle:       handle,
		State:        SessionActive,
		RegisteredAt: at,
	}
}

func (s *Session) IsActive() bool {
	return s.State == SessionActive
}

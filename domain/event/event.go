package event

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"net/netip"
	"time"
)

// StreamEvent is produced by session readers and outboxes, consumed by the stream coordinator only.
type StreamEvent interface {
	SessionID() domain.SessionID
}

// MessageReceived is one parsed frame read from a stream connection.
type MessageReceived struct {
	Session  domain.SessionID
	Identity domain.Identity
	Handle   contract.Handle
	Text     string
	At       time.Time
}

func (m MessageReceived) SessionID() domain.SessionID {
	return m.Session
}

// SessionClosed reports the end of a stream connection,
// either from its reader (end of stream, fatal read error) or from its outbox (write failure).
// Final is set by the reader on its last event: nothing else follows for this session.
type SessionClosed struct {
	Session domain.SessionID
	Reason  error
	Final   bool
	At      time.Time
}

func (s SessionClosed) SessionID() domain.SessionID {
	return s.Session
}

// DatagramReceived is one datagram tagged with its source address.
type DatagramReceived struct {
	Source  netip.AddrPort
	Payload []byte
	At      time.Time
}

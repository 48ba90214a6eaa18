package domain

import (
	"github.com/samber/lo"
)

// StreamRoster is the ordered registry of stream sessions.
// It is not safe for concurrent use: the stream coordinator is its only owner.
type StreamRoster struct {
	sessions []*Session
}

func NewStreamRoster() *StreamRoster {
	return &StreamRoster{}
}

// Register appends the session unless one with the same id is already known.
// It reports whether the session was added.
func (r *StreamRoster) Register(session *Session) bool {
	if _, ok := r.Lookup(session.ID); ok {
		return false
	}
	r.sessions = append(r.sessions, session)
	return true
}

func (r *StreamRoster) Lookup(id SessionID) (*Session, bool) {
	return lo.Find(r.sessions, func(s *Session) bool {
		return s.ID == id
	})
}

// LookupIdentity returns the active session bound to identity, if any.
func (r *StreamRoster) LookupIdentity(identity Identity) (*Session, bool) {
	return lo.Find(r.sessions, func(s *Session) bool {
		return s.IsActive() && s.Identity == identity
	})
}

// Remove drops the session from the roster and marks it removed.
func (r *StreamRoster) Remove(id SessionID) (*Session, bool) {
	session, index, ok := lo.FindIndexOf(r.sessions, func(s *Session) bool {
		return s.ID == id
	})
	if !ok {
		return nil, false
	}
	r.sessions = append(r.sessions[:index], r.sessions[index+1:]...)
	session.State = SessionRemoved
	return session, true
}

// Recipients lists, in registration order, every active session that is
// neither the sender's connection nor bound to the sender's identity.
func (r *StreamRoster) Recipients(sender *Session) []*Session {
	return lo.Filter(r.sessions, func(s *Session, _ int) bool {
		return s.IsActive() && s.ID != sender.ID && s.Identity != sender.Identity
	})
}

func (r *StreamRoster) Sessions() []*Session {
	return append([]*Session(nil), r.sessions...)
}

func (r *StreamRoster) Identities() []Identity {
	return lo.Map(r.sessions, func(s *Session, _ int) Identity {
		return s.Identity
	})
}

func (r *StreamRoster) Len() int {
	return len(r.sessions)
}

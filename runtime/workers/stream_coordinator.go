package workers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	"log/slog"
	"sync"
	"time"
)

var _ contract.Worker = (*StreamCoordinator)(nil)

// StreamCoordinator is the single owner of the stream roster.
// Every registration, removal and fan-out happens on its Run goroutine, in
// event arrival order. The roster and the outbox map must never be touched
// from anywhere else: other goroutines talk to it through the events channel.
//
// Identity collisions: a new connection announcing an identity already bound
// to an active session replaces it. The stale session is closed and removed.
//
// A removed session stays in removed until its reader reports its final close:
// frames its reader had already queued are dropped and never register it again.
type StreamCoordinator struct {
	log           *slog.Logger
	events        chan event.StreamEvent
	telemetryChan chan event.Event
	roster        *domain.StreamRoster
	outboxes      map[domain.SessionID]*Outbox
	removed       map[domain.SessionID]struct{}
	outboxSize    int
	writeTimeout  time.Duration
	writers       sync.WaitGroup
}

func NewStreamCoordinator(
	log *slog.Logger,
	events chan event.StreamEvent,
	telemetryChan chan event.Event,
	outboxSize int,
	writeTimeout time.Duration) *StreamCoordinator {
	return &StreamCoordinator{
		log:           log,
		events:        events,
		telemetryChan: telemetryChan,
		roster:        domain.NewStreamRoster(),
		outboxes:      make(map[domain.SessionID]*Outbox),
		removed:       make(map[domain.SessionID]struct{}),
		outboxSize:    outboxSize,
		writeTimeout:  writeTimeout,
	}
}

func (c *StreamCoordinator) Run(ctx context.Context) error {
	defer c.shutdown()
	for {
		select {
		case <-ctx.Done():
			c.log.Debug("Context done, stopping stream coordinator")
			return nil
		case evt := <-c.events:
			c.handle(ctx, evt)
		}
	}
}

func (c *StreamCoordinator) handle(ctx context.Context, evt event.StreamEvent) {
	switch e := evt.(type) {
	case event.MessageReceived:
		c.relay(ctx, e)
	case event.SessionClosed:
		c.remove(e.Session, e.Reason)
		if e.Final {
			delete(c.removed, e.Session)
		}
	default:
		c.log.Error(errors.ErrInvalidPayload.Error())
	}
}

// relay registers the sender if needed, then hands the frame to every other session.
// The prefix comes from the roster entry, not from the bytes the peer sent.
func (c *StreamCoordinator) relay(ctx context.Context, msg event.MessageReceived) {
	if _, gone := c.removed[msg.Session]; gone {
		c.log.Debug("Frame from a removed session dropped", "identity", msg.Identity, "session", msg.Session.String())
		return
	}
	sender, ok := c.roster.Lookup(msg.Session)
	if !ok {
		sender = c.register(ctx, msg)
	} else if sender.Identity != msg.Identity {
		c.log.Warn("Frame identity differs from the registered one, keeping registered identity",
			"identity", sender.Identity, "claimed", msg.Identity)
	}

	frame := []byte(domain.FormatFrame(sender.Identity, msg.Text))
	recipients := c.roster.Recipients(sender)
	failed := 0
	for _, recipient := range recipients {
		if err := c.outboxes[recipient.ID].Enqueue(frame); err != nil {
			failed++
			c.log.Warn("Delivery failed", "identity", recipient.Identity, "error", err)
		}
	}
	c.log.Debug("Message relayed", "identity", sender.Identity, "recipients", len(recipients), "failed", failed)
	publish(c.telemetryChan, event.MessageRelayedType, event.MessageRelayed{
		Identity:   string(sender.Identity),
		Recipients: len(recipients),
		Failed:     failed,
	})
}

func (c *StreamCoordinator) register(ctx context.Context, msg event.MessageReceived) *domain.Session {
	if stale, ok := c.roster.LookupIdentity(msg.Identity); ok {
		c.log.Info("Identity claimed by a new connection, replacing stale session",
			"identity", msg.Identity, "session", stale.ID.String())
		c.remove(stale.ID, errors.ErrSessionReplaced)
	}

	session := domain.NewSession(msg.Session, msg.Identity, msg.Handle, msg.At)
	c.roster.Register(session)

	outbox := NewOutbox(c.log.With("identity", session.Identity), session.ID, session.Handle, c.events, c.outboxSize, c.writeTimeout)
	c.outboxes[session.ID] = outbox
	c.writers.Add(1)
	go func() {
		defer c.writers.Done()
		_ = outbox.Run(ctx)
	}()

	c.log.Info("Session registered", "identity", session.Identity, "session", session.ID.String(), "sessions", c.roster.Len())
	publish(c.telemetryChan, event.SessionRegisteredType, event.SessionRegistered{Identity: string(session.Identity)})
	return session
}

// remove walks the session through Closing to Removed and releases its handle.
// Unknown sessions (never registered, or already removed) are ignored.
func (c *StreamCoordinator) remove(id domain.SessionID, reason error) {
	session, ok := c.roster.Lookup(id)
	if !ok {
		return
	}
	session.State = domain.SessionClosing
	if outbox, ok := c.outboxes[id]; ok {
		outbox.Close()
		delete(c.outboxes, id)
	}
	if session.Handle != nil {
		_ = session.Handle.Close()
	}
	c.roster.Remove(id)
	c.removed[id] = struct{}{}

	reasonText := "end of stream"
	if reason != nil {
		reasonText = reason.Error()
	}
	c.log.Info("Session removed", "identity", session.Identity, "session", id.String(), "reason", reasonText)
	publish(c.telemetryChan, event.SessionRemovedType, event.SessionRemoved{Identity: string(session.Identity), Reason: reasonText})
}

func (c *StreamCoordinator) shutdown() {
	for _, session := range c.roster.Sessions() {
		c.remove(session.ID, errors.ErrSessionClosed)
	}
	c.writers.Wait()
}

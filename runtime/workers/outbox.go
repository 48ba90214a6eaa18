package workers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var _ contract.Worker = (*Outbox)(nil)

// Outbox is the bounded outbound queue of one session.
// A slow peer fills its own outbox and loses frames, it never delays other recipients.
// Enqueue and Close are called by the stream coordinator only.
type Outbox struct {
	log          *slog.Logger
	session      domain.SessionID
	handle       contract.Handle
	frames       chan []byte
	done         chan struct{}
	events       chan<- event.StreamEvent
	writeTimeout time.Duration
	closeOnce    sync.Once
}

func NewOutbox(
	log *slog.Logger,
	session domain.SessionID,
	handle contract.Handle,
	events chan<- event.StreamEvent,
	size int,
	writeTimeout time.Duration) *Outbox {
	return &Outbox{
		log:          log,
		session:      session,
		handle:       handle,
		frames:       make(chan []byte, size),
		done:         make(chan struct{}),
		events:       events,
		writeTimeout: writeTimeout,
	}
}

// Enqueue never blocks.
func (o *Outbox) Enqueue(frame []byte) error {
	select {
	case o.frames <- frame:
		return nil
	default:
		return errors.ErrOutboxFull
	}
}

// Close stops the writer. A closed outbox no longer reports write failures:
// the coordinator already knows the session is gone.
func (o *Outbox) Close() {
	o.closeOnce.Do(func() {
		close(o.done)
		close(o.frames)
	})
}

// Run writes queued frames until the outbox is closed, a write fails or ctx is done.
// A failed write is reported as the end of the session.
func (o *Outbox) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case frame, ok := <-o.frames:
			if !ok {
				return nil
			}
			if err := o.write(frame); err != nil {
				o.log.Warn("Write failed, closing session", "error", err)
				select {
				case o.events <- event.SessionClosed{Session: o.session, Reason: err, At: time.Now().UTC()}:
				case <-o.done:
				case <-ctx.Done():
				}
				return nil
			}
		}
	}
}

func (o *Outbox) write(frame []byte) error {
	if err := o.handle.SetWriteDeadline(time.Now().Add(o.writeTimeout)); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrSessionClosed, err)
	}
	_, err := o.handle.Write(frame)
	return err
}

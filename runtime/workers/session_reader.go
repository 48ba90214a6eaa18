package workers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"io"
	"log/slog"
	"net"
	"time"
)

var _ contract.Worker = (*SessionReader)(nil)

// SessionReader reads one stream connection.
// Each read is expected to carry exactly one "<identity>: <text>" frame.
type SessionReader struct {
	log             *slog.Logger
	session         domain.SessionID
	conn            net.Conn
	events          chan<- event.StreamEvent
	telemetryChan   chan event.Event
	readBufferSize  int
	retryMaxElapsed time.Duration
}

func NewSessionReader(
	log *slog.Logger,
	session domain.SessionID,
	conn net.Conn,
	events chan<- event.StreamEvent,
	telemetryChan chan event.Event,
	readBufferSize int,
	retryMaxElapsed time.Duration) *SessionReader {
	return &SessionReader{
		log:             log.With("session", session.String(), "addr", conn.RemoteAddr().String()),
		session:         session,
		conn:            conn,
		events:          events,
		telemetryChan:   telemetryChan,
		readBufferSize:  readBufferSize,
		retryMaxElapsed: retryMaxElapsed,
	}
}

// Run reads frames until the peer closes, the connection fails or ctx is done.
// The end of the session is always reported to the stream coordinator.
func (r *SessionReader) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = r.conn.Close() })
	defer stop()

	buf := make([]byte, r.readBufferSize)
	for {
		n, err := readWithRetry(ctx, r.conn, buf, r.retryMaxElapsed, func(err error, wait time.Duration) {
			r.log.Warn("Transient read error, retrying", "error", err, "wait", wait)
		})
		if err != nil {
			return r.close(ctx, err)
		}
		if n == 0 {
			// Zero-length read: the peer is gone
			return r.close(ctx, io.EOF)
		}
		r.handle(ctx, buf[:n])
	}
}

func (r *SessionReader) handle(ctx context.Context, raw []byte) {
	frame, err := domain.ParseFrame(domain.Decode(raw))
	if err != nil {
		r.log.Warn("Frame dropped", "error", err)
		publish(r.telemetryChan, event.FrameDroppedType, event.FrameDropped{Channel: "stream", Reason: err.Error()})
		return
	}
	r.log.Debug("Frame received", "identity", frame.Identity, "text", frame.Text)

	msg := event.MessageReceived{
		Session:  r.session,
		Identity: frame.Identity,
		Handle:   r.conn,
		Text:     frame.Text,
		At:       time.Now().UTC(),
	}
	select {
	case r.events <- msg:
	case <-ctx.Done():
	}
}

func (r *SessionReader) close(ctx context.Context, cause error) error {
	_ = r.conn.Close()
	if ctx.Err() != nil {
		return nil
	}

	var reason error
	switch classifyReadError(cause) {
	case readClosed:
		r.log.Info("Peer disconnected")
	default:
		r.log.Warn("Read failed, closing session", "error", cause)
		reason = cause
	}

	select {
	case r.events <- event.SessionClosed{Session: r.session, Reason: reason, Final: true, At: time.Now().UTC()}:
	case <-ctx.Done():
	}
	return nil
}

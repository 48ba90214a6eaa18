package workers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"
)

var _ contract.Worker = (*StreamListener)(nil)

const acceptRetryDelay = 50 * time.Millisecond

// StreamListener accepts stream connections and starts one SessionReader per connection.
// Readers are not supervised: a failed connection is over, not restarted.
type StreamListener struct {
	log             *slog.Logger
	listener        net.Listener
	events          chan<- event.StreamEvent
	telemetryChan   chan event.Event
	readBufferSize  int
	retryMaxElapsed time.Duration
}

func NewStreamListener(
	log *slog.Logger,
	listener net.Listener,
	events chan<- event.StreamEvent,
	telemetryChan chan event.Event,
	readBufferSize int,
	retryMaxElapsed time.Duration) *StreamListener {
	return &StreamListener{
		log:             log,
		listener:        listener,
		events:          events,
		telemetryChan:   telemetryChan,
		readBufferSize:  readBufferSize,
		retryMaxElapsed: retryMaxElapsed,
	}
}

func (w *StreamListener) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = w.listener.Close() })
	defer stop()

	var readers sync.WaitGroup
	defer readers.Wait()

	w.log.Info("Accepting stream connections", "addr", w.listener.Addr().String())
	for {
		conn, err := w.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				w.log.Debug("Stream listener closed")
				return nil
			}
			w.log.Warn("Failed to accept connection", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(acceptRetryDelay):
			}
			continue
		}

		session := domain.NewSessionID()
		w.log.Debug("Connection accepted", "session", session.String(), "addr", conn.RemoteAddr().String())
		reader := NewSessionReader(w.log, session, conn, w.events, w.telemetryChan, w.readBufferSize, w.retryMaxElapsed)

		readers.Add(1)
		go func() {
			defer readers.Done()
			_ = reader.Run(ctx)
		}()
	}
}

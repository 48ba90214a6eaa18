package workers

import (
	"bytes"
	"chat-relay/contract"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	goerrors "errors"
	"log/slog"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var _ contract.Worker = (*DatagramReceiver)(nil)

// DatagramReceiver tags every inbound datagram with its source address
// and hands it to the datagram coordinator.
type DatagramReceiver struct {
	log            *slog.Logger
	conn           contract.DatagramReader
	events         chan<- event.DatagramReceived
	telemetryChan  chan event.Event
	readBufferSize int
}

func NewDatagramReceiver(
	log *slog.Logger,
	conn contract.DatagramReader,
	events chan<- event.DatagramReceived,
	telemetryChan chan event.Event,
	readBufferSize int) *DatagramReceiver {
	return &DatagramReceiver{
		log:            log,
		conn:           conn,
		events:         events,
		telemetryChan:  telemetryChan,
		readBufferSize: readBufferSize,
	}
}

// Run returns once the endpoint is closed. Read errors on a live endpoint
// are logged and retried after an increasing pause, reset by the next success.
func (w *DatagramReceiver) Run(ctx context.Context) error {
	pause := backoff.NewExponentialBackOff()
	pause.MaxElapsedTime = 0
	pause.MaxInterval = time.Second

	buf := make([]byte, w.readBufferSize)
	for {
		n, source, err := w.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if ctx.Err() != nil || goerrors.Is(err, net.ErrClosed) {
				w.log.Debug("Datagram endpoint closed")
				return nil
			}
			wait := pause.NextBackOff()
			w.log.Warn("Failed to receive datagram", "error", err, "wait", wait)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait):
			}
			continue
		}
		pause.Reset()

		received := event.DatagramReceived{
			Source:  source,
			Payload: bytes.Clone(buf[:n]),
			At:      time.Now().UTC(),
		}
		w.log.Debug("Datagram received", "addr", source.String(), "size", n)

		select {
		case w.events <- received:
		default:
			w.log.Warn("Datagram lost, coordinator is behind", "addr", source.String(), "error", errors.ErrEventDropped)
			publish(w.telemetryChan, event.FrameDroppedType, event.FrameDropped{Channel: "datagram", Reason: errors.ErrEventDropped.Error()})
		}
	}
}

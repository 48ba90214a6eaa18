package workers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"log/slog"
	"time"
)

var _ contract.Worker = (*DatagramCoordinator)(nil)

// DatagramCoordinator is the single owner of the datagram roster.
// Payloads are forwarded byte for byte, without prefix, to every known
// address but the source. Each send carries its own deadline so one
// destination cannot hold the others back.
type DatagramCoordinator struct {
	log           *slog.Logger
	conn          contract.DatagramWriter
	events        <-chan event.DatagramReceived
	telemetryChan chan event.Event
	roster        *domain.DatagramRoster
	writeTimeout  time.Duration
	peerTTL       time.Duration
}

func NewDatagramCoordinator(
	log *slog.Logger,
	conn contract.DatagramWriter,
	events <-chan event.DatagramReceived,
	telemetryChan chan event.Event,
	writeTimeout, peerTTL time.Duration) *DatagramCoordinator {
	return &DatagramCoordinator{
		log:           log,
		conn:          conn,
		events:        events,
		telemetryChan: telemetryChan,
		roster:        domain.NewDatagramRoster(),
		writeTimeout:  writeTimeout,
		peerTTL:       peerTTL,
	}
}

func (c *DatagramCoordinator) Run(ctx context.Context) error {
	// A nil channel never fires: without ttl nobody expires
	var expiry <-chan time.Time
	if c.peerTTL > 0 {
		ticker := time.NewTicker(c.peerTTL / 2)
		defer ticker.Stop()
		expiry = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			c.log.Debug("Context done, stopping datagram coordinator")
			return nil
		case now := <-expiry:
			for _, addr := range c.roster.Expire(now.UTC(), c.peerTTL) {
				c.log.Info("Datagram peer expired", "addr", addr.String())
			}
		case received := <-c.events:
			c.relay(received)
		}
	}
}

func (c *DatagramCoordinator) relay(received event.DatagramReceived) {
	if c.roster.Touch(received.Source, received.At) {
		c.log.Info("Datagram peer registered", "addr", received.Source.String(), "peers", c.roster.Len())
	}

	recipients := c.roster.Recipients(received.Source)
	failed := 0
	for _, addr := range recipients {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			c.log.Warn("Failed to set datagram write deadline", "error", err)
		}
		if _, err := c.conn.WriteToUDPAddrPort(received.Payload, addr); err != nil {
			failed++
			c.log.Warn("Failed to forward datagram", "addr", addr.String(), "error", err)
		}
	}
	c.log.Debug("Datagram relayed", "addr", received.Source.String(), "recipients", len(recipients), "failed", failed)
	publish(c.telemetryChan, event.DatagramRelayedType, event.DatagramRelayed{
		Source:     received.Source.String(),
		Recipients: len(recipients),
		Failed:     failed,
	})
}

package peer

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/gookit/color"
)

const receiveBufferSize = 1024

var (
	_ contract.Worker = (*StreamReceiver)(nil)
	_ contract.Worker = (*DatagramReceiver)(nil)
)

// StreamReceiver prints every frame relayed on the stream channel.
// The relay closing the connection ends it for good.
type StreamReceiver struct {
	log     *slog.Logger
	conn    net.Conn
	printer *Printer
}

func NewStreamReceiver(log *slog.Logger, conn net.Conn, printer *Printer) *StreamReceiver {
	return &StreamReceiver{log: log, conn: conn, printer: printer}
}

func (r *StreamReceiver) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = r.conn.Close() })
	defer stop()

	buf := make([]byte, receiveBufferSize)
	for {
		n, err := r.conn.Read(buf)
		if n > 0 {
			r.printer.Println(streamStyle, domain.Decode(buf[:n]))
		}
		if err == nil {
			continue
		}
		if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
			return nil
		}
		if errors.Is(err, io.EOF) {
			r.printer.Println(errorStyle, "Relay closed the connection")
			return nil
		}
		r.log.Warn("Stream channel lost", "error", err)
		return nil
	}
}

// DatagramReceiver prints every datagram arriving on a connectionless channel.
// A read error is returned so the supervisor restarts it after a pause:
// a connected socket reports the relay being down this way.
type DatagramReceiver struct {
	log     *slog.Logger
	channel string
	conn    net.PacketConn
	style   color.Style
	printer *Printer
}

func NewDatagramReceiver(log *slog.Logger, channel string, conn net.PacketConn, style color.Style, printer *Printer) *DatagramReceiver {
	return &DatagramReceiver{log: log, channel: channel, conn: conn, style: style, printer: printer}
}

func (r *DatagramReceiver) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = r.conn.Close() })
	defer stop()

	buf := make([]byte, receiveBufferSize)
	for {
		n, from, err := r.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			r.log.Warn("Failed to read datagram", "channel", r.channel, "error", err)
			return err
		}
		r.printer.Println(r.style, fmt.Sprintf("[%s %s] %s", r.channel, from.String(), domain.Decode(buf[:n])))
	}
}

package workers

import (
	"chat-relay/domain/event"
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestDatagramReceiver_Tags_Source(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	endpoint, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	req.NoError(err)
	events := make(chan event.DatagramReceived, 10)
	receiver := NewDatagramReceiver(log, endpoint, events, nil, 1024)

	done := make(chan struct{})
	go func() {
		_ = receiver.Run(context.Background())
		close(done)
	}()

	// Given a peer socket
	client, err := net.DialUDP("udp", nil, endpoint.LocalAddr().(*net.UDPAddr))
	req.NoError(err)
	defer client.Close()

	// When it sends a datagram
	_, err = client.Write([]byte("hello group"))
	req.NoError(err)

	// Then the payload arrives tagged with the peer address
	select {
	case received := <-events:
		req.Equal("hello group", string(received.Payload))
		req.Equal(client.LocalAddr().(*net.UDPAddr).AddrPort().Port(), received.Source.Port())
	case <-time.After(time.Second):
		req.Fail("datagram not received")
	}

	// When the endpoint is closed, the receiver returns
	req.NoError(endpoint.Close())
	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("receiver should stop once the endpoint is closed")
	}
}

func TestDatagramReceiver_Drops_When_Coordinator_Is_Behind(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	endpoint, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	req.NoError(err)
	defer endpoint.Close()
	// Given nobody consumes the single slot
	events := make(chan event.DatagramReceived, 1)
	telemetryChan := make(chan event.Event, 10)
	receiver := NewDatagramReceiver(log, endpoint, events, telemetryChan, 1024)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = receiver.Run(ctx) }()

	client, err := net.DialUDP("udp", nil, endpoint.LocalAddr().(*net.UDPAddr))
	req.NoError(err)
	defer client.Close()

	// When two datagrams arrive
	_, err = client.Write([]byte("one"))
	req.NoError(err)
	_, err = client.Write([]byte("two"))
	req.NoError(err)

	// Then the second one is lost and reported
	select {
	case evt := <-telemetryChan:
		req.Equal(event.FrameDroppedType, evt.Type)
	case <-time.After(time.Second):
		req.Fail("dropped datagram not reported")
	}
	req.Equal("one", string((<-events).Payload))
}

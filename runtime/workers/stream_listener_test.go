package workers

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestStreamListener_Spawns_One_Reader_Per_Connection(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)
	events := make(chan event.StreamEvent, 10)
	worker := NewStreamListener(log, listener, events, nil, 1024, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = worker.Run(ctx)
		close(done)
	}()

	// Given two peers connected
	alice, err := net.Dial("tcp", listener.Addr().String())
	req.NoError(err)
	defer alice.Close()
	bob, err := net.Dial("tcp", listener.Addr().String())
	req.NoError(err)
	defer bob.Close()

	// When both send a frame
	_, err = alice.Write([]byte("alice: hi"))
	req.NoError(err)
	first := nextStreamEvent(t, events).(event.MessageReceived)
	_, err = bob.Write([]byte("bob: hi"))
	req.NoError(err)
	second := nextStreamEvent(t, events).(event.MessageReceived)

	// Then each connection has its own session
	req.Equal(domain.Identity("alice"), first.Identity)
	req.Equal(domain.Identity("bob"), second.Identity)
	req.NotEqual(first.Session, second.Session)

	// When the listener is stopped, readers stop too
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("listener should stop with its context")
	}
}

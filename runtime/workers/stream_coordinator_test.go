package workers

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/mocks"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type peer struct {
	id       domain.SessionID
	identity domain.Identity
	handle   *mocks.MockHandle
	received chan string
	closed   chan struct{}
}

// newPeer returns a mocked connection recording what the relay writes to it.
func newPeer(ctrl *gomock.Controller, identity domain.Identity) *peer {
	p := &peer{
		id:       domain.NewSessionID(),
		identity: identity,
		handle:   mocks.NewMockHandle(ctrl),
		received: make(chan string, 10),
		closed:   make(chan struct{}),
	}
	var once sync.Once
	p.handle.EXPECT().SetWriteDeadline(gomock.Any()).Return(nil).AnyTimes()
	p.handle.EXPECT().Close().DoAndReturn(func() error {
		once.Do(func() { close(p.closed) })
		return nil
	}).AnyTimes()
	return p
}

func (p *peer) expectFrames(n int) {
	p.handle.EXPECT().Write(gomock.Any()).DoAndReturn(func(b []byte) (int, error) {
		p.received <- string(b)
		return len(b), nil
	}).Times(n)
}

func (p *peer) says(text string) event.MessageReceived {
	return event.MessageReceived{Session: p.id, Identity: p.identity, Handle: p.handle, Text: text, At: time.Now().UTC()}
}

// leaves is what the peer's reader reports once the connection is over.
func (p *peer) leaves() event.SessionClosed {
	return event.SessionClosed{Session: p.id, Final: true, At: time.Now().UTC()}
}

func registrations(telemetryChan chan event.Event) []string {
	var identities []string
	for {
		select {
		case evt := <-telemetryChan:
			if evt.Type == event.SessionRegisteredType {
				identities = append(identities, evt.Payload.(event.SessionRegistered).Identity)
			}
		default:
			return identities
		}
	}
}

func startStreamCoordinator(t *testing.T, events chan event.StreamEvent, telemetryChan chan event.Event) func() {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctx, cancel := context.WithCancel(context.Background())
	coordinator := NewStreamCoordinator(log, events, telemetryChan, 8, time.Second)
	done := make(chan struct{})
	go func() {
		_ = coordinator.Run(ctx)
		close(done)
	}()
	stop := func() {
		cancel()
		<-done
	}
	t.Cleanup(stop)
	return stop
}

func waitFrame(t *testing.T, p *peer) string {
	t.Helper()
	select {
	case frame := <-p.received:
		return frame
	case <-time.After(time.Second):
		require.Fail(t, "no frame delivered", "peer %s", p.identity)
		return ""
	}
}

func waitTelemetry(t *testing.T, telemetryChan chan event.Event, eventType event.Type) event.Event {
	t.Helper()
	for {
		select {
		case evt := <-telemetryChan:
			if evt.Type == eventType {
				return evt
			}
		case <-time.After(time.Second):
			require.Fail(t, "telemetry event not published", "type %s", eventType)
			return event.Event{}
		}
	}
}

func TestStreamCoordinator_Single_Session_Is_Registered_Without_Fanout(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	events := make(chan event.StreamEvent, 10)
	telemetryChan := make(chan event.Event, 10)
	alice := newPeer(ctrl, "alice")
	stop := startStreamCoordinator(t, events, telemetryChan)

	// When alice is the only one talking
	events <- alice.says("hi")

	// Then she is registered and nobody receives anything
	registered := waitTelemetry(t, telemetryChan, event.SessionRegisteredType)
	req.Equal(event.SessionRegistered{Identity: "alice"}, registered.Payload)
	relayed := waitTelemetry(t, telemetryChan, event.MessageRelayedType)
	req.Equal(event.MessageRelayed{Identity: "alice", Recipients: 0, Failed: 0}, relayed.Payload)
	stop()
}

func TestStreamCoordinator_Fanout_Between_Two_Sessions(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	events := make(chan event.StreamEvent, 10)
	alice := newPeer(ctrl, "alice")
	bob := newPeer(ctrl, "bob")
	alice.expectFrames(1)
	bob.expectFrames(1)
	stop := startStreamCoordinator(t, events, nil)

	// Given alice is registered
	events <- alice.says("hi")

	// When bob talks, alice receives it prefixed with bob's name
	events <- bob.says("hello alice")
	req.Equal("bob: hello alice", waitFrame(t, alice))

	// When alice answers, only bob receives it
	events <- alice.says("hello bob")
	req.Equal("alice: hello bob", waitFrame(t, bob))
	stop()
}

func TestStreamCoordinator_Same_Identity_Twice_Registers_Once(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	events := make(chan event.StreamEvent, 10)
	telemetryChan := make(chan event.Event, 20)
	alice := newPeer(ctrl, "alice")
	startStreamCoordinator(t, events, telemetryChan)

	// When alice sends twice on the same connection
	events <- alice.says("one")
	events <- alice.says("two")

	// Then she has been registered only once
	var types []event.Type
	for range 3 {
		select {
		case evt := <-telemetryChan:
			types = append(types, evt.Type)
		case <-time.After(time.Second):
			req.Fail("telemetry event not published")
		}
	}
	req.Equal([]event.Type{event.SessionRegisteredType, event.MessageRelayedType, event.MessageRelayedType}, types)
}

func TestStreamCoordinator_Keeps_Registered_Identity(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	events := make(chan event.StreamEvent, 10)
	alice := newPeer(ctrl, "alice")
	bob := newPeer(ctrl, "bob")
	alice.expectFrames(1)
	bob.expectFrames(1)
	stop := startStreamCoordinator(t, events, nil)

	events <- alice.says("hi")
	events <- bob.says("hi")
	req.Equal("bob: hi", waitFrame(t, alice))

	// When alice's connection claims another name
	impostor := alice.says("I am mallory")
	impostor.Identity = "mallory"
	events <- impostor

	// Then the relay keeps the prefix it registered
	req.Equal("alice: I am mallory", waitFrame(t, bob))
	stop()
}

func TestStreamCoordinator_Closed_Session_Is_Removed(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	events := make(chan event.StreamEvent, 10)
	telemetryChan := make(chan event.Event, 20)
	alice := newPeer(ctrl, "alice")
	bob := newPeer(ctrl, "bob")
	carol := newPeer(ctrl, "carol")
	alice.expectFrames(2)
	carol.expectFrames(1)
	stop := startStreamCoordinator(t, events, telemetryChan)

	events <- alice.says("hi")
	events <- bob.says("hi")
	req.Equal("bob: hi", waitFrame(t, alice))

	// When bob disconnects
	events <- event.SessionClosed{Session: bob.id, At: time.Now().UTC()}
	<-bob.closed
	removed := waitTelemetry(t, telemetryChan, event.SessionRemovedType)
	req.Equal("bob", removed.Payload.(event.SessionRemoved).Identity)

	// Then alice's next message only reaches carol
	events <- carol.says("hi")
	req.Equal("carol: hi", waitFrame(t, alice))
	events <- alice.says("still there?")
	req.Equal("alice: still there?", waitFrame(t, carol))
	stop()
}

func TestStreamCoordinator_Write_Failure_Removes_Recipient(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	events := make(chan event.StreamEvent, 10)
	telemetryChan := make(chan event.Event, 20)
	alice := newPeer(ctrl, "alice")
	bob := newPeer(ctrl, "bob")
	carol := newPeer(ctrl, "carol")
	bob.handle.EXPECT().Write(gomock.Any()).Return(0, errors.New("broken pipe")).Times(1)
	carol.expectFrames(2)
	stop := startStreamCoordinator(t, events, telemetryChan)

	events <- bob.says("hi")

	// When the write to bob fails
	events <- carol.says("hi")
	<-bob.closed
	waitTelemetry(t, telemetryChan, event.SessionRemovedType)

	// Then bob is out of the roster and carol still gets everything
	events <- alice.says("first")
	req.Equal("alice: first", waitFrame(t, carol))
	events <- alice.says("second")
	req.Equal("alice: second", waitFrame(t, carol))
	stop()
}

func TestStreamCoordinator_Same_Identity_New_Connection_Replaces_Stale(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	events := make(chan event.StreamEvent, 10)
	stale := newPeer(ctrl, "alice")
	fresh := newPeer(ctrl, "alice")
	bob := newPeer(ctrl, "bob")
	fresh.expectFrames(1)
	stop := startStreamCoordinator(t, events, nil)

	events <- stale.says("hi")

	// When alice reconnects on another connection
	events <- fresh.says("back again")

	// Then the stale connection is released
	select {
	case <-stale.closed:
	case <-time.After(time.Second):
		req.Fail("stale session should have been closed")
	}

	// And only the fresh one receives bob's messages
	events <- bob.says("welcome back")
	req.Equal("bob: welcome back", waitFrame(t, fresh))
	stop()
}

func TestStreamCoordinator_Late_Frame_From_Replaced_Session_Is_Dropped(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	events := make(chan event.StreamEvent, 10)
	telemetryChan := make(chan event.Event, 20)
	stale := newPeer(ctrl, "alice")
	fresh := newPeer(ctrl, "alice")
	bob := newPeer(ctrl, "bob")
	fresh.expectFrames(2)
	stop := startStreamCoordinator(t, events, telemetryChan)

	// Given alice reconnected and her old connection was released
	events <- stale.says("first")
	events <- fresh.says("reconnected")
	<-stale.closed

	// When the old reader still delivers a frame it had queued
	events <- stale.says("late frame")

	// Then the fresh session stays the one receiving
	events <- bob.says("welcome back")
	req.Equal("bob: welcome back", waitFrame(t, fresh))
	req.Equal([]string{"alice", "alice", "bob"}, registrations(telemetryChan))

	// When the old reader finally stops, the fresh session is untouched
	events <- stale.leaves()
	events <- bob.says("still with us?")
	req.Equal("bob: still with us?", waitFrame(t, fresh))
	select {
	case <-fresh.closed:
		req.Fail("fresh session must not be closed by the replaced connection")
	default:
	}
	stop()
}

func TestStreamCoordinator_Late_Frame_After_Write_Failure_Is_Dropped(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	events := make(chan event.StreamEvent, 10)
	telemetryChan := make(chan event.Event, 20)
	alice := newPeer(ctrl, "alice")
	bob := newPeer(ctrl, "bob")
	carol := newPeer(ctrl, "carol")
	bob.handle.EXPECT().Write(gomock.Any()).Return(0, errors.New("broken pipe")).Times(1)
	carol.expectFrames(1)
	stop := startStreamCoordinator(t, events, telemetryChan)

	// Given bob was removed after a failed write
	events <- bob.says("hi")
	events <- carol.says("hi")
	<-bob.closed
	waitTelemetry(t, telemetryChan, event.SessionRemovedType)

	// When his reader still delivers a queued frame
	events <- bob.says("late frame")

	// Then bob is not registered again and receives nothing more
	events <- alice.says("first")
	req.Equal("alice: first", waitFrame(t, carol))
	req.Equal([]string{"alice"}, registrations(telemetryChan))
	stop()
}

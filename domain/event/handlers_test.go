package event

import (
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestRelayCounterHandler_Counts(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	counter := NewCounter()
	handler := NewRelayCounterHandler(log, counter)

	// Given a session registration and two fan-out passes
	handler.Handle(Event{Type: SessionRegisteredType, CreatedAt: time.Now(), Payload: SessionRegistered{Identity: "alice"}})
	handler.Handle(Event{Type: MessageRelayedType, Payload: MessageRelayed{Identity: "alice", Recipients: 2, Failed: 1}})
	handler.Handle(Event{Type: DatagramRelayedType, Payload: DatagramRelayed{Source: "127.0.0.1:40000", Recipients: 1}})

	// Then totals are kept per type
	req.Equal(1, counter.Get(SessionRegisteredType))
	req.Equal(1, counter.Get(MessageRelayedType))
	req.Equal(1, counter.Get(DatagramRelayedType))
	req.Equal(1, counter.Get(DeliveryFailedType))
}

func TestRelayCounterHandler_Ignores_Invalid_Payload(t *testing.T) {
	req := require.New(t)
	counter := NewCounter()
	handler := NewRelayCounterHandler(logs.GetLoggerFromLevel(slog.LevelDebug), counter)

	handler.Handle(Event{Type: MessageRelayedType, Payload: "not a payload"})

	req.Zero(counter.Get(MessageRelayedType))
}

func TestWorkerRestartedAfterPanicHandler_Counts(t *testing.T) {
	req := require.New(t)
	counter := NewCounter()
	handler := NewWorkerRestartedAfterPanicHandler(logs.GetLoggerFromLevel(slog.LevelDebug), counter)

	handler.Handle(Event{Type: RestartedAfterPanicType, Payload: WorkerRestartedAfterPanic{WorkerName: "StreamCoordinator"}})
	handler.Handle(Event{Type: RestartedAfterPanicType, Payload: WorkerRestartedAfterPanic{WorkerName: "StreamCoordinator"}})
	// Other types are not this handler's business
	handler.Handle(Event{Type: ChannelCapacityType, Payload: ChannelCapacity{}})

	req.Equal(2, counter.Get(RestartedAfterPanicType))
	req.Len(counter.Snapshot(), 1)
}

package workers

import (
	"chat-relay/domain/event"
	"context"
	"log/slog"
	"time"
)

// TelemetryWorker hands every technical event to the handler chain.
type TelemetryWorker struct {
	log           *slog.Logger
	telemetryChan chan event.Event
	handlers      []event.Handler
}

func NewTelemetryWorker(log *slog.Logger,
	telemetryChan chan event.Event,
	handlers ...event.Handler) *TelemetryWorker {
	return &TelemetryWorker{
		log:           log,
		telemetryChan: telemetryChan,
		handlers:      handlers,
	}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping telemetry")
			return nil
		case evt := <-w.telemetryChan:
			w.handle(evt)
		}
	}
}

func (w *TelemetryWorker) handle(event event.Event) {
	for _, h := range w.handlers {
		h.Handle(event)
	}
}

// publish sends a technical event without ever blocking the caller.
// Telemetry is best effort: a full channel loses the event.
func publish(telemetryChan chan event.Event, t event.Type, payload any) bool {
	if telemetryChan == nil {
		return false
	}
	select {
	case telemetryChan <- event.Event{Type: t, CreatedAt: time.Now().UTC(), Payload: payload}:
		return true
	default:
		return false
	}
}

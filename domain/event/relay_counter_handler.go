package event

import (
	"chat-relay/errors"
	"log/slog"
)

// RelayCounterHandler keeps relay totals: sessions, relayed messages, deliveries and drops.
type RelayCounterHandler struct {
	log     *slog.Logger
	counter *Counter
}

func NewRelayCounterHandler(log *slog.Logger, counter *Counter) *RelayCounterHandler {
	return &RelayCounterHandler{log: log, counter: counter}
}

func (h *RelayCounterHandler) Handle(event Event) {
	switch event.Type {
	case SessionRegisteredType, SessionRemovedType, FrameDroppedType:
		h.counter.Increment(event.Type)
	case MessageRelayedType:
		payload, ok := event.Payload.(MessageRelayed)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.counter.Increment(MessageRelayedType)
		h.counter.Add(DeliveryFailedType, payload.Failed)
	case DatagramRelayedType:
		payload, ok := event.Payload.(DatagramRelayed)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.counter.Increment(DatagramRelayedType)
		h.counter.Add(DeliveryFailedType, payload.Failed)
	}
}

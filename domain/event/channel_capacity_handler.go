package event

import (
	"chat-relay/errors"
	"log/slog"
)

// ChannelCapacityHandler watches the fill level of the relay event channels.
// Producers block or drop once a channel is full, so a channel close to its
// capacity means a coordinator is falling behind.
type ChannelCapacityHandler struct {
	log                  *slog.Logger
	lowCapacityThreshold int
}

func NewChannelCapacityHandler(log *slog.Logger, lowCapacityThreshold int) *ChannelCapacityHandler {
	return &ChannelCapacityHandler{log: log, lowCapacityThreshold: lowCapacityThreshold}
}

func (h ChannelCapacityHandler) Handle(event Event) {
	switch event.Type {
	case ChannelCapacityType:
		payload, ok := event.Payload.(ChannelCapacity)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.log.Debug("Channel usage", "channel", payload.ChannelName, "length", payload.Length, "capacity", payload.Capacity)
		if payload.Capacity <= 0 {
			// In case of unbuffered channel
			return
		}
		capacityLeft := payload.Capacity - payload.Length
		if capacityLeft <= h.lowCapacityThreshold {
			h.log.Warn("Event channel almost full", "channel", payload.ChannelName, "left", capacityLeft)
		}
	}
}

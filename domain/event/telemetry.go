package event

import (
	"sync"
	"time"
)

type Type string

const (
	RestartedAfterPanicType Type = "WORKER_RESTARTED_AFTER_PANIC"
	ChannelCapacityType     Type = "CHANNEL_CAPACITY"
	SessionRegisteredType   Type = "SESSION_REGISTERED"
	SessionRemovedType      Type = "SESSION_REMOVED"
	MessageRelayedType      Type = "MESSAGE_RELAYED"
	DatagramRelayedType     Type = "DATAGRAM_RELAYED"
	FrameDroppedType        Type = "FRAME_DROPPED"
	DeliveryFailedType      Type = "DELIVERY_FAILED"
)

// Event is a technical event, used for observability only.
type Event struct {
	Type      Type
	CreatedAt time.Time
	Payload   any
}

type WorkerRestartedAfterPanic struct {
	WorkerName string
}

type ChannelCapacity struct {
	ChannelName string
	Capacity    int
	Length      int
}

type SessionRegistered struct {
	Identity string
}

type SessionRemoved struct {
	Identity string
	Reason   string
}

// MessageRelayed is emitted once per fan-out pass on the stream channel.
type MessageRelayed struct {
	Identity   string
	Recipients int
	Failed     int
}

// DatagramRelayed is emitted once per fan-out pass on the datagram channel.
type DatagramRelayed struct {
	Source     string
	Recipients int
	Failed     int
}

type FrameDropped struct {
	Channel string
	Reason  string
}

// Counter keeps a running total per event type.
type Counter struct {
	mu     sync.Mutex
	counts map[Type]int
}

func NewCounter() *Counter {
	return &Counter{counts: make(map[Type]int)}
}

func (c *Counter) Increment(t Type) {
	c.Add(t, 1)
}

func (c *Counter) Add(t Type, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[t] += n
}

func (c *Counter) Get(t Type) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[t]
}

// Snapshot returns a copy of every total.
func (c *Counter) Snapshot() map[Type]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	res := make(map[Type]int, len(c.counts))
	for k, v := range c.counts {
		res[k] = v
	}
	return res
}

//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"net"
	"net/netip"
	"reflect"
	"time"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Handle is the write side of a peer's stream connection.
// Only the stream coordinator (through a session outbox) writes to it,
// the session reader keeps its own read side.
type Handle interface {
	Write(p []byte) (int, error)
	SetWriteDeadline(t time.Time) error
	Close() error
	RemoteAddr() net.Addr
}

// DatagramWriter is the outbound side of the relay's connectionless endpoint.
type DatagramWriter interface {
	WriteToUDPAddrPort(b []byte, addr netip.AddrPort) (int, error)
	SetWriteDeadline(t time.Time) error
}

// DatagramReader is the inbound side of the relay's connectionless endpoint.
type DatagramReader interface {
	ReadFromUDPAddrPort(b []byte) (int, netip.AddrPort, error)
}

// Sender is what the peer console needs from a connected client.
type Sender interface {
	Hello(name string) error
	SendStream(text string) error
	SendDatagram(text string) error
	SendGroup(text string) error
}

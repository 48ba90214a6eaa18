// Package runtime wires the relay engine: both endpoints, the event channels,
// the two broadcast coordinators and their observability workers.
// It holds no relay rule of its own, those live in runtime/workers and domain.
package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"chat-relay/internal"
	"chat-relay/runtime/workers"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
)

type Relay struct {
	mu             sync.Mutex
	log            *slog.Logger
	config         internal.Config
	listener       net.Listener
	datagram       *net.UDPConn
	supervisor     *workers.Supervisor
	streamEvents   chan event.StreamEvent
	datagramEvents chan event.DatagramReceived
	telemetryChan  chan event.Event
	counter        *event.Counter
	cancel         context.CancelFunc
	stopped        bool
}

// Listen binds the stream and the datagram endpoints on the configured address.
// Both sockets share the port: with port 0 the datagram endpoint takes the port
// picked for the stream endpoint. Failing to bind either one is fatal.
func Listen(log *slog.Logger, config internal.Config) (*Relay, error) {
	listener, err := net.Listen("tcp", config.Address())
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", config.Address(), err)
	}

	port := listener.Addr().(*net.TCPAddr).Port
	udpAddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(config.Host, strconv.Itoa(port)))
	if err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("failed to resolve datagram address: %w", err)
	}
	datagram, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", udpAddr.String(), err)
	}

	telemetryChan := make(chan event.Event, config.BufferSize)
	return &Relay{
		log:            log,
		config:         config,
		listener:       listener,
		datagram:       datagram,
		supervisor:     workers.NewSupervisor(log, telemetryChan, config.RestartInterval),
		streamEvents:   make(chan event.StreamEvent, config.BufferSize),
		datagramEvents: make(chan event.DatagramReceived, config.BufferSize),
		telemetryChan:  telemetryChan,
		counter:        event.NewCounter(),
	}, nil
}

func (r *Relay) StreamAddr() net.Addr {
	return r.listener.Addr()
}

func (r *Relay) DatagramAddr() net.Addr {
	return r.datagram.LocalAddr()
}

// Counters returns a copy of the relay totals gathered from telemetry.
func (r *Relay) Counters() map[event.Type]int {
	return r.counter.Snapshot()
}

// Start registers every worker to the supervisor and blocks until ctx is done
// or Stop is called. Both endpoints are closed on return.
func (r *Relay) Start(ctx context.Context) error {
	// 1. Preparation phase (No Lock)
	relayWorkers := r.prepareWorkers()

	// 2. Critical Section (Short Lock)
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.supervisor.Add(relayWorkers...)
	r.mu.Unlock()
	defer cancel()

	// The stream listener closes its own socket, the datagram endpoint is ours
	stop := context.AfterFunc(ctx, func() { _ = r.datagram.Close() })
	defer stop()

	// 3. Execution phase (No Lock)
	r.log.Info("Relay started",
		"stream", r.StreamAddr().String(),
		"datagram", r.DatagramAddr().String())
	r.supervisor.Run(ctx)
	r.log.Info("Relay stopped")
	return nil
}

func (r *Relay) prepareWorkers() []contract.Worker {
	telemetry := workers.NewTelemetryWorker(r.log, r.telemetryChan,
		event.NewChannelCapacityHandler(r.log, r.config.LowCapacityThreshold),
		event.NewWorkerRestartedAfterPanicHandler(r.log, r.counter),
		event.NewRelayCounterHandler(r.log, r.counter),
	)
	capacity := workers.NewChannelCapacityWorker(r.log, []workers.NamedChannel{
		{Name: "stream-events", Channel: r.streamEvents},
		{Name: "datagram-events", Channel: r.datagramEvents},
	}, r.telemetryChan, r.config.MetricInterval)

	return []contract.Worker{
		workers.NewStreamCoordinator(r.log, r.streamEvents, r.telemetryChan,
			r.config.OutboxSize, r.config.WriteTimeout),
		workers.NewDatagramCoordinator(r.log, r.datagram, r.datagramEvents, r.telemetryChan,
			r.config.WriteTimeout, r.config.DatagramPeerTTL),
		workers.NewStreamListener(r.log, r.listener, r.streamEvents, r.telemetryChan,
			r.config.ReadBufferSize, r.config.ReadRetryMaxElapsed),
		workers.NewDatagramReceiver(r.log, r.datagram, r.datagramEvents, r.telemetryChan,
			r.config.ReadBufferSize),
		telemetry,
		capacity,
		workers.NewProcessStatsWorker(r.log, r.counter, r.config.MetricInterval),
	}
}

// Stop initiates a graceful shutdown: workers are cancelled, sessions closed
// and both endpoints released. Stopping a relay that never started only
// releases the endpoints.
func (r *Relay) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log.Info("Requesting relay shutdown")
	if r.cancel != nil {
		r.cancel()
		return
	}
	if !r.stopped {
		r.stopped = true
		_ = r.listener.Close()
		_ = r.datagram.Close()
	}
}

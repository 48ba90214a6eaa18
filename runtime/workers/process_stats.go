package workers

import (
	"bytes"
	"chat-relay/domain/event"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/shirou/gopsutil/process"
)

// ProcessStatsWorker logs, every interval, the relay process footprint
// (RSS, CPU) together with the relay counters.
type ProcessStatsWorker struct {
	log         *slog.Logger
	counter     *event.Counter
	interval    time.Duration
	openProcess func(pid int32) (*process.Process, error)
}

func NewProcessStatsWorker(log *slog.Logger, counter *event.Counter, interval time.Duration) *ProcessStatsWorker {
	return &ProcessStatsWorker{log: log, counter: counter, interval: interval, openProcess: process.NewProcess}
}

// Run keeps reporting counters even when the process itself cannot be inspected.
func (w *ProcessStatsWorker) Run(ctx context.Context) error {
	p, err := w.openProcess(int32(os.Getpid()))
	if err != nil {
		w.log.Warn("Process stats unavailable, reporting counters only", "error", err)
		p = nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.report(p)
		}
	}
}

func (w *ProcessStatsWorker) report(p *process.Process) {
	var (
		rss uint64
		cpu float64
	)
	if p != nil {
		var err error
		if rss, cpu, err = selfStats(p); err != nil {
			w.log.Warn("Failed to collect self stats", "error", err)
		}
	}
	snapshot := w.counter.Snapshot()
	active := snapshot[event.SessionRegisteredType] - snapshot[event.SessionRemovedType]

	w.log.Info("Relay stats",
		"rss_bytes", rss,
		"cpu_percent", cpu,
		"active_sessions", active,
		"messages_relayed", snapshot[event.MessageRelayedType],
		"datagrams_relayed", snapshot[event.DatagramRelayedType],
		"frames_dropped", snapshot[event.FrameDroppedType],
		"deliveries_failed", snapshot[event.DeliveryFailedType])

	if w.log.Enabled(context.Background(), slog.LevelDebug) {
		w.log.Debug("Relay counters\n" + CountersTable(snapshot))
	}
}

// CountersTable renders counters as a text table, sorted by type.
func CountersTable(snapshot map[event.Type]int) string {
	types := make([]string, 0, len(snapshot))
	for t := range snapshot {
		types = append(types, string(t))
	}
	sort.Strings(types)

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Event", "Total"})
	for _, t := range types {
		table.Append([]string{t, strconv.Itoa(snapshot[event.Type(t)])})
	}
	table.Render()
	return buf.String()
}

// selfStats retrieves resident memory and CPU usage for the given process.
func selfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, fmt.Errorf("memory info: %w", err)
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return memInfo.RSS, 0, fmt.Errorf("cpu percent: %w", err)
	}
	return memInfo.RSS, cpuPercent, nil
}

package workers

import (
	"chat-relay/domain/event"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/shirou/gopsutil/process"
	"github.com/stretchr/testify/require"
)

func TestProcessStatsWorker_Keeps_Running_Without_Process_Stats(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	worker := NewProcessStatsWorker(log, event.NewCounter(), 5*time.Millisecond)
	// Given the process cannot be inspected
	worker.openProcess = func(int32) (*process.Process, error) {
		return nil, errors.New("no such process")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	// Then the worker keeps reporting counters instead of failing
	select {
	case err := <-done:
		req.Failf("worker stopped early", "error: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		req.Fail("worker should stop with its context")
	}
}

package workers

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type readOutcome int

const (
	readClosed readOutcome = iota
	readTransient
	readFatal
)

// classifyReadError decides what a session reader does after a failed read.
// End of stream and local close end the session normally, timeouts and
// interrupted calls are retried, everything else ends the session with an error.
func classifyReadError(err error) readOutcome {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		return readClosed
	case errors.Is(err, syscall.EINTR), errors.Is(err, syscall.EAGAIN):
		return readTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return readTransient
	}
	return readFatal
}

// readBackoff bounds how long a reader keeps retrying transient read errors.
func readBackoff(ctx context.Context, maxElapsed time.Duration) backoff.BackOff {
	return backoff.WithContext(&backoff.ExponentialBackOff{
		InitialInterval:     10 * time.Millisecond,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         time.Second,
		MaxElapsedTime:      maxElapsed,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}, ctx)
}

// readWithRetry performs one logical read, retrying transient failures with backoff.
// The returned error is the last read error once retrying is over.
func readWithRetry(ctx context.Context, r io.Reader, buf []byte, maxElapsed time.Duration, notify backoff.Notify) (int, error) {
	operation := func() (int, error) {
		n, err := r.Read(buf)
		if n > 0 {
			// Data first, the error shows up again on the next read
			return n, nil
		}
		if err == nil {
			return 0, nil
		}
		if classifyReadError(err) != readTransient {
			return 0, backoff.Permanent(err)
		}
		return 0, err
	}
	return backoff.RetryNotifyWithData(operation, readBackoff(ctx, maxElapsed), notify)
}

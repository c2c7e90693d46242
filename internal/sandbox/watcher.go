package sandbox

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// DefaultTimeout bounds how long a sandbox may run before it is abandoned.
const DefaultTimeout = 60 * time.Second

const (
	defaultPollInterval = 200 * time.Millisecond
	defaultMaxInterval  = 2 * time.Second
)

// ErrDeadlineExceeded is returned by AwaitTerminal when a sandbox does not
// reach a terminal phase before the deadline.
var ErrDeadlineExceeded = errors.New("sandbox did not terminate before the deadline")

// Watcher polls a sandbox until it reaches a terminal phase or a deadline
// expires. Polling backs off exponentially from PollInterval to MaxInterval
// so short commands finish fast without hammering the control plane on
// long ones.
type Watcher struct {
	// Timeout counts from Handle.CreatedAt. Zero means DefaultTimeout.
	Timeout      time.Duration
	PollInterval time.Duration
	MaxInterval  time.Duration
	Logger       *slog.Logger
}

// AwaitTerminal blocks until the sandbox reaches a terminal phase or the
// deadline expires, whichever comes first. Transient status errors are
// tolerated; the deadline bounds how long they can go on.
func (w *Watcher) AwaitTerminal(ctx context.Context, drv Driver, h *Handle) (Phase, error) {
	timeout := w.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	interval := w.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	maxInterval := w.MaxInterval
	if maxInterval <= 0 {
		maxInterval = defaultMaxInterval
	}
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}

	start := h.CreatedAt
	if start.IsZero() {
		start = time.Now()
	}
	deadline := time.NewTimer(time.Until(start.Add(timeout)))
	defer deadline.Stop()

	for {
		phase, err := drv.Status(ctx, h)
		if err != nil {
			logger.Debug("sandbox status check failed, will retry", "sandbox", h.ID, "error", err)
		} else if phase.IsTerminal() {
			return phase, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			return "", ErrDeadlineExceeded
		case <-time.After(interval):
		}

		if interval *= 2; interval > maxInterval {
			interval = maxInterval
		}
	}
}

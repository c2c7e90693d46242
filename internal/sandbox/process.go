package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ProcessDriver implements Driver by running each command in a local child
// process. It serves as the fallback when the cluster is unreachable, at the
// cost of real isolation; callers are expected to surface that tradeoff.
type ProcessDriver struct {
	logger *slog.Logger

	mu    sync.Mutex
	procs map[string]*localProcess
}

type localProcess struct {
	cancel context.CancelFunc
	output *boundedBuffer
	done   chan struct{}

	mu    sync.Mutex
	phase Phase
}

// NewProcessDriver creates a local-process driver.
func NewProcessDriver(logger *slog.Logger) *ProcessDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessDriver{
		logger: logger,
		procs:  make(map[string]*localProcess),
	}
}

// Name implements Driver.
func (d *ProcessDriver) Name() string {
	return "process"
}

// Healthy reports whether a shell is available to run commands.
func (d *ProcessDriver) Healthy(ctx context.Context) error {
	if _, err := exec.LookPath("sh"); err != nil {
		return fmt.Errorf("no shell available: %w", err)
	}
	return nil
}

// Create implements Driver.Create by starting `sh -c` with the command.
// The process outlives the Create call; Delete is its kill switch.
func (d *ProcessDriver) Create(ctx context.Context, command string) (*Handle, error) {
	procCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(procCtx, "sh", "-c", command)

	out := newBoundedBuffer(maxLogBytes)
	cmd.Stdout = out
	cmd.Stderr = out
	// Unblocks Wait when a grandchild inherits the output pipe.
	cmd.WaitDelay = 10 * time.Second

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: failed to start process: %v", ErrProvisionFailure, err)
	}

	p := &localProcess{
		cancel: cancel,
		output: out,
		done:   make(chan struct{}),
		phase:  PhaseRunning,
	}
	id := fmt.Sprintf("local-%s", uuid.NewString())

	d.mu.Lock()
	d.procs[id] = p
	d.mu.Unlock()

	go func() {
		err := cmd.Wait()
		p.mu.Lock()
		if err == nil {
			p.phase = PhaseSucceeded
		} else {
			p.phase = PhaseFailed
		}
		p.mu.Unlock()
		close(p.done)
	}()

	d.logger.Info("started local sandbox process", "sandbox", id, "pid", cmd.Process.Pid)

	return &Handle{
		ID:        id,
		Driver:    d.Name(),
		CreatedAt: time.Now(),
	}, nil
}

// Status implements Driver.Status.
func (d *ProcessDriver) Status(ctx context.Context, h *Handle) (Phase, error) {
	d.mu.Lock()
	p, ok := d.procs[h.ID]
	d.mu.Unlock()
	if !ok {
		return PhaseVanished, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase, nil
}

// FetchOutput implements Driver.FetchOutput with the combined stdout and
// stderr captured so far.
func (d *ProcessDriver) FetchOutput(ctx context.Context, h *Handle) string {
	d.mu.Lock()
	p, ok := d.procs[h.ID]
	d.mu.Unlock()
	if !ok {
		return ""
	}
	return p.output.String()
}

// Delete implements Driver.Delete by killing the process and forgetting it.
func (d *ProcessDriver) Delete(ctx context.Context, h *Handle) error {
	d.mu.Lock()
	p, ok := d.procs[h.ID]
	delete(d.procs, h.ID)
	d.mu.Unlock()
	if !ok {
		return nil
	}

	p.cancel()
	select {
	case <-p.done:
	case <-time.After(5 * time.Second):
		d.logger.Warn("local sandbox process slow to exit", "sandbox", h.ID)
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// boundedBuffer captures process output up to a fixed limit. Writes past the
// limit are discarded so a chatty command keeps its earliest output.
type boundedBuffer struct {
	mu    sync.Mutex
	limit int
	buf   bytes.Buffer
}

func newBoundedBuffer(limit int) *boundedBuffer {
	return &boundedBuffer{limit: limit}
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if remaining := b.limit - b.buf.Len(); remaining > 0 {
		if len(p) > remaining {
			b.buf.Write(p[:remaining])
		} else {
			b.buf.Write(p)
		}
	}
	// Report the full write so the child process never sees a short write.
	return len(p), nil
}

func (b *boundedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

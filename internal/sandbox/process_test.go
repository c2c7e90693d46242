package sandbox

import (
	"context"
	"strings"
	"testing"
	"time"
)

func awaitProcess(t *testing.T, d *ProcessDriver, h *Handle) Phase {
	t.Helper()
	w := &Watcher{Timeout: 10 * time.Second, PollInterval: 10 * time.Millisecond}
	phase, err := w.AwaitTerminal(context.Background(), d, h)
	if err != nil {
		t.Fatalf("AwaitTerminal failed: %v", err)
	}
	return phase
}

func TestProcessDriver_RunsCommandToCompletion(t *testing.T) {
	d := NewProcessDriver(nil)
	ctx := context.Background()

	handle, err := d.Create(ctx, "echo Hello World!")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if handle.Driver != "process" {
		t.Errorf("expected driver name 'process', got %q", handle.Driver)
	}

	phase := awaitProcess(t, d, handle)
	if phase != PhaseSucceeded {
		t.Errorf("got phase %s, want %s", phase, PhaseSucceeded)
	}

	output := d.FetchOutput(ctx, handle)
	if !strings.Contains(output, "Hello World!") {
		t.Errorf("output %q does not contain command output", output)
	}

	if err := d.Delete(ctx, handle); err != nil {
		t.Errorf("Delete() failed: %v", err)
	}
}

func TestProcessDriver_NonZeroExitReportsFailed(t *testing.T) {
	d := NewProcessDriver(nil)
	ctx := context.Background()

	handle, err := d.Create(ctx, "exit 3")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	defer d.Delete(ctx, handle)

	if phase := awaitProcess(t, d, handle); phase != PhaseFailed {
		t.Errorf("got phase %s, want %s", phase, PhaseFailed)
	}
}

func TestProcessDriver_CapturesStderr(t *testing.T) {
	d := NewProcessDriver(nil)
	ctx := context.Background()

	handle, err := d.Create(ctx, "echo oops 1>&2")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	defer d.Delete(ctx, handle)

	awaitProcess(t, d, handle)
	if output := d.FetchOutput(ctx, handle); !strings.Contains(output, "oops") {
		t.Errorf("output %q does not contain stderr", output)
	}
}

func TestProcessDriver_DeleteKillsRunningProcess(t *testing.T) {
	d := NewProcessDriver(nil)
	ctx := context.Background()

	handle, err := d.Create(ctx, "sleep 30")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	start := time.Now()
	if err := d.Delete(ctx, handle); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("delete took %v, expected a prompt kill", elapsed)
	}

	phase, err := d.Status(ctx, handle)
	if err != nil {
		t.Fatalf("Status() failed: %v", err)
	}
	if phase != PhaseVanished {
		t.Errorf("got phase %s after delete, want %s", phase, PhaseVanished)
	}
}

func TestProcessDriver_DeleteUnknownSandboxIsNoop(t *testing.T) {
	d := NewProcessDriver(nil)

	if err := d.Delete(context.Background(), &Handle{ID: "local-missing"}); err != nil {
		t.Errorf("expected idempotent delete, got %v", err)
	}
}

func TestProcessDriver_Healthy(t *testing.T) {
	d := NewProcessDriver(nil)
	if err := d.Healthy(context.Background()); err != nil {
		t.Errorf("Healthy() failed: %v", err)
	}
}

func TestBoundedBuffer_KeepsEarliestOutput(t *testing.T) {
	b := newBoundedBuffer(8)

	n, err := b.Write([]byte("0123456789"))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != 10 {
		t.Errorf("short write reported: %d", n)
	}
	if got := b.String(); got != "01234567" {
		t.Errorf("got %q, want first 8 bytes", got)
	}

	// Further writes past the limit are discarded.
	if _, err := b.Write([]byte("abc")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if got := b.String(); got != "01234567" {
		t.Errorf("got %q after overflow write, want unchanged", got)
	}
}

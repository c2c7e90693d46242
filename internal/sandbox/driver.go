// Package sandbox provides the Driver interface for command execution backends.
package sandbox

import (
	"context"
	"errors"
	"time"
)

// Phase describes where a sandbox is in its lifecycle.
type Phase string

const (
	PhaseRequested Phase = "REQUESTED"
	PhaseCreating  Phase = "CREATING"
	PhaseRunning   Phase = "RUNNING"
	PhaseSucceeded Phase = "SUCCEEDED"
	PhaseFailed    Phase = "FAILED"
	// PhaseVanished means the backend no longer knows the sandbox; the
	// cluster may have evicted it. Treated as failed with no output.
	PhaseVanished Phase = "VANISHED"
)

// IsTerminal reports whether the sandbox can make no further transitions.
func (p Phase) IsTerminal() bool {
	switch p {
	case PhaseSucceeded, PhaseFailed, PhaseVanished:
		return true
	}
	return false
}

// ErrProvisionFailure wraps Create errors that mean the backend could not
// produce a sandbox at all, as opposed to the command failing inside one.
var ErrProvisionFailure = errors.New("sandbox provisioning failed")

// Handle identifies one sandbox. It is owned by the driver that created it,
// never persisted, and destroyed at the end of every execution attempt.
type Handle struct {
	ID        string
	Driver    string
	CreatedAt time.Time
}

// Driver runs a single validated command inside a disposable sandbox.
// Implementations include a Kubernetes backend and a local process fallback.
type Driver interface {
	// Name identifies the backend in logs and responses.
	Name() string

	// Healthy reports whether the backend can currently provision sandboxes.
	Healthy(ctx context.Context) error

	// Create provisions a sandbox running the command and returns without
	// waiting for it to start.
	Create(ctx context.Context, command string) (*Handle, error)

	// Status reports the sandbox's current phase. A sandbox the backend no
	// longer knows about reports PhaseVanished, not an error.
	Status(ctx context.Context, h *Handle) (Phase, error)

	// FetchOutput returns whatever output the sandbox has produced so far.
	// Best effort: a vanished sandbox yields an empty string.
	FetchOutput(ctx context.Context, h *Handle) string

	// Delete tears the sandbox down. Deleting a sandbox that is already
	// gone is not an error.
	Delete(ctx context.Context, h *Handle) error
}

// Package executor coordinates task executions from lookup and validation
// through sandbox teardown and the durable execution record.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ajithabhiram/Kaiburr-task2/internal/command"
	"github.com/ajithabhiram/Kaiburr-task2/internal/sandbox"
	"github.com/ajithabhiram/Kaiburr-task2/internal/store"
)

var (
	// ErrInvalidCommand reports that a task's stored command failed safety
	// validation at execution time.
	ErrInvalidCommand = errors.New("invalid command")

	// ErrExecutionFailed reports that no driver could provide a sandbox,
	// so the command never ran.
	ErrExecutionFailed = errors.New("no sandbox driver available")
)

// Result is what one execution attempt produced.
type Result struct {
	Execution *store.TaskExecution
	Task      *store.Task
	// FellBack reports the command ran in a local process instead of a
	// cluster sandbox, losing the isolation guarantee.
	FellBack bool
	// Driver names the backend that ran the command.
	Driver string
}

// Orchestrator runs one task execution per call: validate, provision a
// sandbox, await a terminal phase, collect output, tear the sandbox down,
// and append the record. The sandbox is deleted exactly once on every path
// that created one.
type Orchestrator struct {
	store    store.TaskStore
	cluster  sandbox.Driver
	fallback sandbox.Driver
	watcher  *sandbox.Watcher
	recorder *Recorder
	logger   *slog.Logger

	execCounter metric.Int64Counter
}

// New creates an Orchestrator. Either driver may be nil when disabled by
// configuration; at least one must be provided for executions to succeed.
func New(ts store.TaskStore, cluster, fallback sandbox.Driver, watcher *sandbox.Watcher, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if watcher == nil {
		watcher = &sandbox.Watcher{Logger: logger}
	}

	meter := otel.Meter("taskrunner-executor")
	counter, err := meter.Int64Counter("taskrunner.executions.total",
		metric.WithDescription("Completed task execution attempts by driver and outcome"))
	if err != nil {
		logger.Warn("failed to register execution counter", "error", err)
	}

	return &Orchestrator{
		store:       ts,
		cluster:     cluster,
		fallback:    fallback,
		watcher:     watcher,
		recorder:    NewRecorder(ts, logger),
		logger:      logger,
		execCounter: counter,
	}
}

// ExecuteTask runs the stored command of the given task in a disposable
// sandbox and appends a TaskExecution to the task's history.
//
// A command that ran and failed, timed out, or lost its sandbox is a normal
// outcome: the caller still gets a Result whose execution carries whatever
// output was captured. Errors are reserved for the task missing, the stored
// command being unsafe, no driver being available, or the record not being
// writable.
func (o *Orchestrator) ExecuteTask(ctx context.Context, taskID string) (*Result, error) {
	tracer := otel.Tracer("taskrunner-executor")
	ctx, span := tracer.Start(ctx, "execute_task",
		trace.WithAttributes(attribute.String("task.id", taskID)))
	defer span.End()

	task, err := o.store.FindTaskByID(ctx, taskID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := command.Validate(task.Command); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}

	drv, fellBack, err := o.pickDriver(ctx)
	if err != nil {
		span.RecordError(err)
		o.count(ctx, "none", "unavailable")
		return nil, err
	}

	startedAt := time.Now().UTC()

	handle, err := drv.Create(ctx, task.Command)
	if err != nil {
		// The probe passed but provisioning still failed; the process
		// driver gets one chance before the whole execution is refused.
		if !fellBack && o.fallback != nil && errors.Is(err, sandbox.ErrProvisionFailure) {
			o.logger.Warn("cluster sandbox provisioning failed, falling back to local process",
				"task", taskID, "error", err)
			drv, fellBack = o.fallback, true
			handle, err = drv.Create(ctx, task.Command)
		}
		if err != nil {
			span.RecordError(err)
			o.count(ctx, drv.Name(), "provision_failure")
			return nil, fmt.Errorf("%w: %v", ErrExecutionFailed, err)
		}
	}

	span.SetAttributes(
		attribute.String("sandbox.id", handle.ID),
		attribute.String("sandbox.driver", drv.Name()),
		attribute.Bool("sandbox.fallback", fellBack),
	)

	// Teardown is bound to every exit path from the moment the handle
	// exists, and runs at most once. Cleanup uses a fresh context so a
	// cancelled request cannot leak the sandbox.
	deleted := false
	deleteSandbox := func() {
		if deleted {
			return
		}
		deleted = true
		deleteCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := drv.Delete(deleteCtx, handle); err != nil {
			o.logger.Error("sandbox cleanup failed", "sandbox", handle.ID, "error", err)
		}
	}
	defer deleteSandbox()

	phase, waitErr := o.watcher.AwaitTerminal(ctx, drv, handle)

	timedOut := errors.Is(waitErr, sandbox.ErrDeadlineExceeded)
	if waitErr != nil && !timedOut {
		span.RecordError(waitErr)
		return nil, waitErr
	}

	output := drv.FetchOutput(ctx, handle)

	outcome := strings.ToLower(string(phase))
	switch {
	case timedOut:
		phase = sandbox.PhaseFailed
		outcome = "timeout"
		if output != "" && !strings.HasSuffix(output, "\n") {
			output += "\n"
		}
		output += fmt.Sprintf("execution timed out after %s", o.effectiveTimeout())
	case phase == sandbox.PhaseVanished:
		// The cluster lost the sandbox; nothing it printed is trustworthy.
		phase = sandbox.PhaseFailed
		output = ""
	}

	deleteSandbox()

	ex := store.TaskExecution{
		StartedAt: startedAt,
		EndedAt:   time.Now().UTC(),
		Output:    output,
	}

	updated, err := o.recorder.Record(ctx, taskID, ex)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.String("sandbox.phase", string(phase)))
	o.count(ctx, drv.Name(), outcome)
	o.logger.Info("task execution finished",
		"task", taskID, "driver", drv.Name(), "phase", phase, "fallback", fellBack)

	return &Result{
		Execution: &ex,
		Task:      updated,
		FellBack:  fellBack,
		Driver:    drv.Name(),
	}, nil
}

// pickDriver probes the cluster first and falls back to the local process
// driver when the cluster is unreachable.
func (o *Orchestrator) pickDriver(ctx context.Context) (sandbox.Driver, bool, error) {
	if o.cluster != nil {
		err := o.cluster.Healthy(ctx)
		if err == nil {
			return o.cluster, false, nil
		}
		o.logger.Warn("cluster unreachable, trying local process fallback", "error", err)
	}

	if o.fallback != nil {
		err := o.fallback.Healthy(ctx)
		if err == nil {
			return o.fallback, true, nil
		}
		o.logger.Error("fallback driver unavailable", "error", err)
	}

	return nil, false, ErrExecutionFailed
}

func (o *Orchestrator) effectiveTimeout() time.Duration {
	if o.watcher.Timeout > 0 {
		return o.watcher.Timeout
	}
	return sandbox.DefaultTimeout
}

func (o *Orchestrator) count(ctx context.Context, driver, outcome string) {
	if o.execCounter == nil {
		return
	}
	o.execCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("driver", driver),
		attribute.String("outcome", outcome),
	))
}

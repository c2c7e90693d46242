package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ajithabhiram/Kaiburr-task2/internal/store"
)

// Recorder writes finished executions into a task's history.
type Recorder struct {
	store  store.TaskStore
	logger *slog.Logger
}

// NewRecorder creates a Recorder backed by the given store.
func NewRecorder(ts store.TaskStore, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: ts, logger: logger}
}

// Record appends the execution to the task identified by taskID and returns
// the task as stored afterwards. A concurrent modification is retried
// exactly once; a second conflict is surfaced to the caller as transient.
func (r *Recorder) Record(ctx context.Context, taskID string, ex store.TaskExecution) (*store.Task, error) {
	task, err := r.store.AppendExecution(ctx, taskID, ex)
	if errors.Is(err, store.ErrConcurrentModification) {
		r.logger.Warn("concurrent modification while recording execution, retrying once", "task", taskID)
		task, err = r.store.AppendExecution(ctx, taskID, ex)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record execution: %w", err)
	}
	return task, nil
}

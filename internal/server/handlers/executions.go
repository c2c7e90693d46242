package handlers

import (
	"errors"
	"net/http"

	"github.com/ajithabhiram/Kaiburr-task2/internal/executor"
	"github.com/ajithabhiram/Kaiburr-task2/internal/store"
	"github.com/ajithabhiram/Kaiburr-task2/pkg/api"
)

// RunTaskExecution handles PUT /tasks/{id}/executions.
// It runs the task's stored command in a disposable sandbox and responds
// with the recorded execution. A command that ran and failed or timed out
// still yields 200: the failure lives in the execution record, not the
// transport. Errors are reserved for the task missing, an unsafe stored
// command, or no sandbox backend being available at all.
func (h *Handlers) RunTaskExecution(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	res, err := h.executor.ExecuteTask(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			h.httpError(w, "Task not found", http.StatusNotFound)
		case errors.Is(err, executor.ErrInvalidCommand):
			h.httpError(w, "Unsafe command rejected", http.StatusBadRequest)
		case errors.Is(err, executor.ErrExecutionFailed):
			h.httpError(w, "No sandbox backend available", http.StatusBadGateway)
		case errors.Is(err, store.ErrConcurrentModification):
			h.httpError(w, "Conflicting update, please retry", http.StatusConflict)
		default:
			h.httpError(w, "Failed to execute task", http.StatusInternalServerError)
		}
		return
	}

	h.respondJson(w, http.StatusOK, api.TaskExecutionResponse{
		StartedAt:           res.Execution.StartedAt,
		EndedAt:             res.Execution.EndedAt,
		Output:              res.Execution.Output,
		ExecutedViaFallback: res.FellBack,
	})
}

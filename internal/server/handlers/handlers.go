// Package handlers contains HTTP handlers for the task API.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ajithabhiram/Kaiburr-task2/internal/executor"
	"github.com/ajithabhiram/Kaiburr-task2/internal/store"
	"github.com/ajithabhiram/Kaiburr-task2/pkg/api"
)

// Storer combines the store capabilities the handlers need.
type Storer interface {
	store.TaskStore
	Ping(ctx context.Context) error
}

// Executor runs a task's stored command and records the outcome.
type Executor interface {
	ExecuteTask(ctx context.Context, taskID string) (*executor.Result, error)
}

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	store    Storer
	executor Executor
}

// New creates a new Handlers instance with the given dependencies.
func New(s Storer, e Executor) *Handlers {
	return &Handlers{store: s, executor: e}
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message string, code int) {
	h.respondJson(w, code, api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}

func toTaskResponse(t *store.Task) api.TaskResponse {
	executions := make([]api.TaskExecutionResponse, 0, len(t.Executions))
	for _, ex := range t.Executions {
		executions = append(executions, api.TaskExecutionResponse{
			StartedAt: ex.StartedAt,
			EndedAt:   ex.EndedAt,
			Output:    ex.Output,
		})
	}
	return api.TaskResponse{
		ID:         t.ID,
		Name:       t.Name,
		Owner:      t.Owner,
		Command:    t.Command,
		CreatedAt:  t.CreatedAt,
		Executions: executions,
	}
}

func toTaskResponses(tasks []store.Task) []api.TaskResponse {
	out := make([]api.TaskResponse, 0, len(tasks))
	for i := range tasks {
		out = append(out, toTaskResponse(&tasks[i]))
	}
	return out
}

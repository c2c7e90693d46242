package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ajithabhiram/Kaiburr-task2/internal/command"
	"github.com/ajithabhiram/Kaiburr-task2/internal/store"
	"github.com/ajithabhiram/Kaiburr-task2/pkg/api"
)

// PutTask handles PUT /tasks.
// It creates a task or replaces an existing one's definition; the execution
// history survives a replace. Commands are screened before they are stored.
func (h *Handlers) PutTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.ID == "" || req.Name == "" || req.Owner == "" || req.Command == "" {
		h.httpError(w, "Id, name, owner and command are required", http.StatusBadRequest)
		return
	}

	if err := command.Validate(req.Command); err != nil {
		h.httpError(w, fmt.Sprintf("Unsafe command rejected: %v", err), http.StatusBadRequest)
		return
	}

	task := &store.Task{
		ID:        req.ID,
		Name:      req.Name,
		Owner:     req.Owner,
		Command:   req.Command,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.store.SaveTask(ctx, task); err != nil {
		h.httpError(w, "Failed to save task", http.StatusInternalServerError)
		return
	}

	// Read back so the response reflects what is stored, including the
	// original creation time and any surviving executions.
	saved, err := h.store.FindTaskByID(ctx, req.ID)
	if err != nil {
		h.httpError(w, "Failed to load task", http.StatusInternalServerError)
		return
	}
	h.respondJson(w, http.StatusOK, toTaskResponse(saved))
}

// GetTasks handles GET /tasks.
// Without parameters it returns every task; with ?id= it returns that single
// task or 404.
func (h *Handlers) GetTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if id := r.URL.Query().Get("id"); id != "" {
		task, err := h.store.FindTaskByID(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				h.httpError(w, "Task not found", http.StatusNotFound)
				return
			}
			h.httpError(w, "Failed to load task", http.StatusInternalServerError)
			return
		}
		h.respondJson(w, http.StatusOK, toTaskResponse(task))
		return
	}

	tasks, err := h.store.FindAllTasks(ctx)
	if err != nil {
		h.httpError(w, "Failed to load tasks", http.StatusInternalServerError)
		return
	}
	h.respondJson(w, http.StatusOK, toTaskResponses(tasks))
}

// GetTask handles GET /tasks/{id}.
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	task, err := h.store.FindTaskByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.httpError(w, "Task not found", http.StatusNotFound)
			return
		}
		h.httpError(w, "Failed to load task", http.StatusInternalServerError)
		return
	}
	h.respondJson(w, http.StatusOK, toTaskResponse(task))
}

// SearchTasks handles GET /tasks/search?name=.
// Matching is a case-insensitive substring check; no match is a 404.
func (h *Handlers) SearchTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	fragment := r.URL.Query().Get("name")
	if fragment == "" {
		h.httpError(w, "Name query parameter is required", http.StatusBadRequest)
		return
	}

	tasks, err := h.store.FindTasksByNameContains(ctx, fragment)
	if err != nil {
		h.httpError(w, "Failed to search tasks", http.StatusInternalServerError)
		return
	}
	if len(tasks) == 0 {
		h.httpError(w, "No tasks found", http.StatusNotFound)
		return
	}
	h.respondJson(w, http.StatusOK, toTaskResponses(tasks))
}

// DeleteTask handles DELETE /tasks/{id}.
// The task's execution history goes with it.
func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	if err := h.store.DeleteTask(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.httpError(w, "Task not found", http.StatusNotFound)
			return
		}
		h.httpError(w, "Failed to delete task", http.StatusInternalServerError)
		return
	}
	h.respondJson(w, http.StatusOK, map[string]string{"status": "deleted"})
}

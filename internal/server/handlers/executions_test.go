package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ajithabhiram/Kaiburr-task2/internal/executor"
	"github.com/ajithabhiram/Kaiburr-task2/internal/store"
)

func sampleResult(fellBack bool) *executor.Result {
	return &executor.Result{
		Execution: &store.TaskExecution{
			StartedAt: time.Date(2025, 1, 15, 11, 0, 0, 0, time.UTC),
			EndedAt:   time.Date(2025, 1, 15, 11, 0, 2, 0, time.UTC),
			Output:    "Hello World!",
		},
		Task:     sampleTask(),
		FellBack: fellBack,
		Driver:   "kubernetes",
	}
}

func TestRunTaskExecution(t *testing.T) {
	tests := []struct {
		name           string
		mockSetup      func(*mockExecutor)
		expectedStatus int
		expectedInBody string
	}{
		{
			name: "Success",
			mockSetup: func(m *mockExecutor) {
				m.result = sampleResult(false)
			},
			expectedStatus: http.StatusOK,
			expectedInBody: "Hello World!",
		},
		{
			name: "Task Not Found",
			mockSetup: func(m *mockExecutor) {
				m.err = store.ErrNotFound
			},
			expectedStatus: http.StatusNotFound,
			expectedInBody: "Task not found",
		},
		{
			name: "Unsafe Stored Command",
			mockSetup: func(m *mockExecutor) {
				m.err = fmt.Errorf("%w: command contains a banned token", executor.ErrInvalidCommand)
			},
			expectedStatus: http.StatusBadRequest,
			expectedInBody: "Unsafe command rejected",
		},
		{
			name: "No Sandbox Backend",
			mockSetup: func(m *mockExecutor) {
				m.err = fmt.Errorf("%w: cluster unreachable", executor.ErrExecutionFailed)
			},
			expectedStatus: http.StatusBadGateway,
			expectedInBody: "No sandbox backend available",
		},
		{
			name: "Record Conflict",
			mockSetup: func(m *mockExecutor) {
				m.err = store.ErrConcurrentModification
			},
			expectedStatus: http.StatusConflict,
			expectedInBody: "Conflicting update",
		},
		{
			name: "Unexpected Failure",
			mockSetup: func(m *mockExecutor) {
				m.err = errors.New("watch error")
			},
			expectedStatus: http.StatusInternalServerError,
			expectedInBody: "Failed to execute task",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			exec := &mockExecutor{}
			if tt.mockSetup != nil {
				tt.mockSetup(exec)
			}
			h := New(&mockStore{}, exec)

			// Setup Router & Request
			mux := http.NewServeMux()
			mux.HandleFunc("PUT /tasks/{id}/executions", h.RunTaskExecution)

			req := httptest.NewRequest(http.MethodPut, "/tasks/task-1/executions", nil)

			// Execute via Mux
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)

			// Assertions
			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v body: %v",
					rr.Code, tt.expectedStatus, rr.Body.String())
			}

			if tt.expectedInBody != "" && !strings.Contains(rr.Body.String(), tt.expectedInBody) {
				t.Errorf("handler returned unexpected body: got %v want substring %v",
					rr.Body.String(), tt.expectedInBody)
			}

			if rr.Code == http.StatusOK && exec.capturedTaskID != "task-1" {
				t.Errorf("expected execution of task-1, got %q", exec.capturedTaskID)
			}
		})
	}
}

func TestRunTaskExecutionReportsFallback(t *testing.T) {
	exec := &mockExecutor{result: sampleResult(true)}
	h := New(&mockStore{}, exec)

	mux := http.NewServeMux()
	mux.HandleFunc("PUT /tasks/{id}/executions", h.RunTaskExecution)

	req := httptest.NewRequest(http.MethodPut, "/tasks/task-1/executions", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %v body: %v", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"executed_via_fallback":true`) {
		t.Errorf("expected fallback marker in response, got %v", rr.Body.String())
	}
}

func TestRunTaskExecutionOmitsFallbackWhenClusterRan(t *testing.T) {
	exec := &mockExecutor{result: sampleResult(false)}
	h := New(&mockStore{}, exec)

	mux := http.NewServeMux()
	mux.HandleFunc("PUT /tasks/{id}/executions", h.RunTaskExecution)

	req := httptest.NewRequest(http.MethodPut, "/tasks/task-1/executions", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %v body: %v", rr.Code, rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), "executed_via_fallback") {
		t.Errorf("expected no fallback marker in response, got %v", rr.Body.String())
	}
}

// Package api contains shared JSON request/response structs.
// This package is shared between the CLI and the server.
package api

import "time"

// TaskRequest is the request body for creating or replacing a task.
type TaskRequest struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Owner   string `json:"owner"`
	Command string `json:"command"`
}

// TaskExecutionResponse represents one recorded execution of a task's command.
type TaskExecutionResponse struct {
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Output    string    `json:"output"`
	// ExecutedViaFallback is set when the command ran in a local process
	// instead of a cluster sandbox, without the usual isolation.
	ExecutedViaFallback bool `json:"executed_via_fallback,omitempty"`
}

// TaskResponse represents a task in API responses.
type TaskResponse struct {
	ID         string                  `json:"id"`
	Name       string                  `json:"name"`
	Owner      string                  `json:"owner"`
	Command    string                  `json:"command"`
	CreatedAt  time.Time               `json:"created_at"`
	Executions []TaskExecutionResponse `json:"executions"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

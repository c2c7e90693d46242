// Package store contains the database layer for the task runner.
package store

import "time"

// Task is a stored command definition together with its execution history.
// The ID is supplied by the caller and must be unique.
type Task struct {
	ID         string
	Name       string
	Owner      string
	Command    string
	Executions []TaskExecution
	CreatedAt  time.Time
}

// TaskExecution is one immutable record of a single run of a task's command.
// Records are append-only; they are removed only when the owning task is
// deleted.
type TaskExecution struct {
	StartedAt time.Time
	EndedAt   time.Time
	Output    string
}

package store

import "context"

// TaskStore handles the persistence of task definitions and their execution
// history.
type TaskStore interface {
	// FindTaskByID returns a task with its executions, or ErrNotFound.
	FindTaskByID(ctx context.Context, id string) (*Task, error)

	// FindAllTasks returns every stored task with its executions.
	FindAllTasks(ctx context.Context) ([]Task, error)

	// FindTasksByNameContains returns the tasks whose name contains the
	// given fragment (case-insensitive). An empty result is not an error.
	FindTasksByNameContains(ctx context.Context, fragment string) ([]Task, error)

	// SaveTask inserts the task, or replaces name/owner/command if the id
	// already exists. Executions are never written through SaveTask.
	SaveTask(ctx context.Context, task *Task) error

	// DeleteTask removes the task and, with it, its execution history.
	DeleteTask(ctx context.Context, id string) error

	// AppendExecution atomically appends one execution record to the task's
	// history and returns the task as stored afterwards. Two concurrent
	// appends to the same task both land; neither overwrites the other.
	// Returns ErrNotFound if the task is gone, ErrConcurrentModification if
	// the database aborted the append due to a conflicting transaction.
	AppendExecution(ctx context.Context, id string, ex TaskExecution) (*Task, error)
}

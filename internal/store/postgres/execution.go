package postgres

import (
	"context"
	"fmt"

	"github.com/ajithabhiram/Kaiburr-task2/internal/store"
)

// AppendExecution appends one execution record to the task's history.
//
// The append is a single INSERT into a child table whose serial key fixes
// the position, so concurrent appends for the same task interleave without
// overwriting each other. If the task was deleted in the meantime the
// foreign key rejects the row and the caller gets store.ErrNotFound.
func (s *Store) AppendExecution(ctx context.Context, taskID string, ex store.TaskExecution) (*store.Task, error) {
	query := `
		INSERT INTO task_executions (task_id, started_at, ended_at, output)
		VALUES ($1, $2, $3, $4)`

	_, err := s.db.ExecContext(ctx, query, taskID, ex.StartedAt, ex.EndedAt, ex.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to append execution: %w", mapError(err))
	}

	task, err := s.FindTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return task, nil
}

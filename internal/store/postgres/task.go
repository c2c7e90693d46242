package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/ajithabhiram/Kaiburr-task2/internal/store"
)

const taskColumns = "id, name, owner, command, created_at"

// FindTaskByID returns the task with the given id, including its
// execution history in insertion order.
func (s *Store) FindTaskByID(ctx context.Context, id string) (*store.Task, error) {
	query := fmt.Sprintf("SELECT %s FROM tasks WHERE id = $1", taskColumns)

	var t store.Task
	err := s.db.QueryRowContext(ctx, query, id).
		Scan(&t.ID, &t.Name, &t.Owner, &t.Command, &t.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}

	executions, err := s.loadExecutions(ctx, []string{t.ID})
	if err != nil {
		return nil, err
	}
	t.Executions = executions[t.ID]

	return &t, nil
}

// FindAllTasks returns every stored task ordered by creation time.
func (s *Store) FindAllTasks(ctx context.Context) ([]store.Task, error) {
	query := fmt.Sprintf("SELECT %s FROM tasks ORDER BY created_at, id", taskColumns)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, err
	}
	if err := s.attachExecutions(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// FindTasksByNameContains returns tasks whose name contains the given
// fragment, matched case-insensitively.
func (s *Store) FindTasksByNameContains(ctx context.Context, fragment string) ([]store.Task, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM tasks WHERE name ILIKE '%%' || $1 || '%%' ORDER BY created_at, id",
		taskColumns,
	)

	rows, err := s.db.QueryContext(ctx, query, escapeLike(fragment))
	if err != nil {
		return nil, fmt.Errorf("failed to search tasks: %w", err)
	}
	defer rows.Close()

	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, err
	}
	if err := s.attachExecutions(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// SaveTask inserts the task or, when the id already exists, overwrites
// its name, owner and command. Execution history is never written here;
// it only grows through AppendExecution.
func (s *Store) SaveTask(ctx context.Context, t *store.Task) error {
	query := `
		INSERT INTO tasks (id, name, owner, command, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, owner = EXCLUDED.owner, command = EXCLUDED.command`

	_, err := s.db.ExecContext(ctx, query, t.ID, t.Name, t.Owner, t.Command, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save task: %w", mapError(err))
	}
	return nil
}

// CountTasks returns the number of stored task definitions.
func (s *Store) CountTasks(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return n, nil
}

// DeleteTask removes the task and, via cascade, its execution history.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", mapError(err))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanTasks(rows *sql.Rows) ([]store.Task, error) {
	var tasks []store.Task
	for rows.Next() {
		var t store.Task
		if err := rows.Scan(&t.ID, &t.Name, &t.Owner, &t.Command, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}
	return tasks, nil
}

// loadExecutions fetches the execution rows for the given task ids,
// grouped by task and ordered the way they were appended.
func (s *Store) loadExecutions(ctx context.Context, taskIDs []string) (map[string][]store.TaskExecution, error) {
	if len(taskIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT task_id, started_at, ended_at, output
		FROM task_executions
		WHERE task_id = ANY($1)
		ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(taskIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	defer rows.Close()

	executions := make(map[string][]store.TaskExecution)
	for rows.Next() {
		var taskID string
		var ex store.TaskExecution
		if err := rows.Scan(&taskID, &ex.StartedAt, &ex.EndedAt, &ex.Output); err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}
		executions[taskID] = append(executions[taskID], ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate executions: %w", err)
	}
	return executions, nil
}

func (s *Store) attachExecutions(ctx context.Context, tasks []store.Task) error {
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}

	executions, err := s.loadExecutions(ctx, ids)
	if err != nil {
		return err
	}
	for i := range tasks {
		tasks[i].Executions = executions[tasks[i].ID]
	}
	return nil
}

// escapeLike neutralizes LIKE wildcards so the fragment matches literally.
func escapeLike(fragment string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(fragment)
}

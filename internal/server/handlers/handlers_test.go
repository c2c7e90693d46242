package handlers

import (
	"context"

	"github.com/ajithabhiram/Kaiburr-task2/internal/executor"
	"github.com/ajithabhiram/Kaiburr-task2/internal/store"
)

// Mock Store
type mockStore struct {
	// Task Hooks
	findTaskResp   *store.Task
	findTaskErr    error
	findAllResp    []store.Task
	findAllErr     error
	searchResp     []store.Task
	searchErr      error
	saveTaskErr    error
	deleteTaskErr  error
	appendExecResp *store.Task
	appendExecErr  error
	pingErr        error

	// Spies (to verify arguments passed by handlers)
	capturedSavedTask *store.Task
	capturedSearch    string
	capturedDeleteID  string
}

func (m *mockStore) FindTaskByID(ctx context.Context, id string) (*store.Task, error) {
	return m.findTaskResp, m.findTaskErr
}

func (m *mockStore) FindAllTasks(ctx context.Context) ([]store.Task, error) {
	return m.findAllResp, m.findAllErr
}

func (m *mockStore) FindTasksByNameContains(ctx context.Context, fragment string) ([]store.Task, error) {
	m.capturedSearch = fragment
	return m.searchResp, m.searchErr
}

func (m *mockStore) SaveTask(ctx context.Context, task *store.Task) error {
	m.capturedSavedTask = task
	return m.saveTaskErr
}

func (m *mockStore) DeleteTask(ctx context.Context, id string) error {
	m.capturedDeleteID = id
	return m.deleteTaskErr
}

func (m *mockStore) AppendExecution(ctx context.Context, id string, ex store.TaskExecution) (*store.Task, error) {
	return m.appendExecResp, m.appendExecErr
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.pingErr
}

// Mock Executor
type mockExecutor struct {
	result *executor.Result
	err    error

	capturedTaskID string
}

func (m *mockExecutor) ExecuteTask(ctx context.Context, taskID string) (*executor.Result, error) {
	m.capturedTaskID = taskID
	return m.result, m.err
}

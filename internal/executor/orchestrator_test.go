package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ajithabhiram/Kaiburr-task2/internal/sandbox"
	"github.com/ajithabhiram/Kaiburr-task2/internal/store"
)

// mockTaskStore implements store.TaskStore with a single task and scripted
// append failures.
type mockTaskStore struct {
	mu          sync.Mutex
	task        *store.Task
	findErr     error
	appendErrs  []error
	appendCalls int
	appended    []store.TaskExecution
	onAppend    func()
}

func (m *mockTaskStore) FindTaskByID(ctx context.Context, id string) (*store.Task, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.task == nil || m.task.ID != id {
		return nil, store.ErrNotFound
	}
	t := *m.task
	return &t, nil
}

func (m *mockTaskStore) FindAllTasks(ctx context.Context) ([]store.Task, error) {
	return nil, nil
}

func (m *mockTaskStore) FindTasksByNameContains(ctx context.Context, fragment string) ([]store.Task, error) {
	return nil, nil
}

func (m *mockTaskStore) SaveTask(ctx context.Context, t *store.Task) error { return nil }
func (m *mockTaskStore) DeleteTask(ctx context.Context, id string) error   { return nil }

func (m *mockTaskStore) AppendExecution(ctx context.Context, id string, ex store.TaskExecution) (*store.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.appendCalls
	m.appendCalls++
	if i < len(m.appendErrs) && m.appendErrs[i] != nil {
		return nil, m.appendErrs[i]
	}
	if m.task == nil || m.task.ID != id {
		return nil, store.ErrNotFound
	}
	if m.onAppend != nil {
		m.onAppend()
	}

	m.appended = append(m.appended, ex)
	t := *m.task
	t.Executions = append(append([]store.TaskExecution{}, t.Executions...), m.appended...)
	return &t, nil
}

func (m *mockTaskStore) appends() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendCalls
}

// fakeDriver reports a fixed phase and output and counts lifecycle calls.
type fakeDriver struct {
	name       string
	healthyErr error
	createErr  error
	phase      sandbox.Phase
	output     string
	deleteErr  error

	mu          sync.Mutex
	createCalls int
	deleteCalls int
}

func (f *fakeDriver) Name() string                      { return f.name }
func (f *fakeDriver) Healthy(ctx context.Context) error { return f.healthyErr }

func (f *fakeDriver) Create(ctx context.Context, command string) (*sandbox.Handle, error) {
	f.mu.Lock()
	f.createCalls++
	f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &sandbox.Handle{ID: f.name + "-sbx", Driver: f.name, CreatedAt: time.Now()}, nil
}

func (f *fakeDriver) Status(ctx context.Context, h *sandbox.Handle) (sandbox.Phase, error) {
	return f.phase, nil
}

func (f *fakeDriver) FetchOutput(ctx context.Context, h *sandbox.Handle) string {
	return f.output
}

func (f *fakeDriver) Delete(ctx context.Context, h *sandbox.Handle) error {
	f.mu.Lock()
	f.deleteCalls++
	f.mu.Unlock()
	return f.deleteErr
}

func (f *fakeDriver) creates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls
}

func (f *fakeDriver) deletes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleteCalls
}

func newTestTask() *store.Task {
	return &store.Task{
		ID:        "task-1",
		Name:      "Print Hello",
		Owner:     "John Smith",
		Command:   "echo Hello World!",
		CreatedAt: time.Now(),
	}
}

func testWatcher() *sandbox.Watcher {
	return &sandbox.Watcher{Timeout: 5 * time.Second, PollInterval: time.Millisecond}
}

func TestExecuteTask_RecordsSuccessfulExecution(t *testing.T) {
	ms := &mockTaskStore{task: newTestTask()}
	drv := &fakeDriver{name: "kubernetes", phase: sandbox.PhaseSucceeded, output: "Hello World!\n"}
	o := New(ms, drv, nil, testWatcher(), nil)

	res, err := o.ExecuteTask(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("ExecuteTask failed: %v", err)
	}

	if res.FellBack {
		t.Error("expected no fallback for a healthy cluster")
	}
	if res.Driver != "kubernetes" {
		t.Errorf("got driver %q, want kubernetes", res.Driver)
	}
	if res.Execution.Output != "Hello World!\n" {
		t.Errorf("got output %q, want %q", res.Execution.Output, "Hello World!\n")
	}
	if res.Execution.EndedAt.Before(res.Execution.StartedAt) {
		t.Error("execution endedAt precedes startedAt")
	}
	if got := len(res.Task.Executions); got != 1 {
		t.Errorf("task should carry 1 execution, got %d", got)
	}
	if drv.deletes() != 1 {
		t.Errorf("expected exactly one sandbox delete, got %d", drv.deletes())
	}
	if ms.appends() != 1 {
		t.Errorf("expected exactly one append, got %d", ms.appends())
	}
}

func TestExecuteTask_TaskNotFound(t *testing.T) {
	ms := &mockTaskStore{}
	drv := &fakeDriver{name: "kubernetes", phase: sandbox.PhaseSucceeded}
	o := New(ms, drv, nil, testWatcher(), nil)

	_, err := o.ExecuteTask(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("got %v, want store.ErrNotFound", err)
	}
	if drv.creates() != 0 {
		t.Errorf("no sandbox may be created for a missing task, got %d creates", drv.creates())
	}
}

func TestExecuteTask_RejectsUnsafeStoredCommand(t *testing.T) {
	task := newTestTask()
	task.Command = "echo hi; rm -rf /"
	ms := &mockTaskStore{task: task}
	drv := &fakeDriver{name: "kubernetes", phase: sandbox.PhaseSucceeded}
	o := New(ms, drv, nil, testWatcher(), nil)

	_, err := o.ExecuteTask(context.Background(), "task-1")
	if !errors.Is(err, ErrInvalidCommand) {
		t.Fatalf("got %v, want ErrInvalidCommand", err)
	}
	if drv.creates() != 0 {
		t.Errorf("no sandbox may be created for an unsafe command, got %d creates", drv.creates())
	}
	if ms.appends() != 0 {
		t.Errorf("no execution may be recorded, got %d appends", ms.appends())
	}
}

func TestExecuteTask_FallsBackWhenClusterUnreachable(t *testing.T) {
	ms := &mockTaskStore{task: newTestTask()}
	cluster := &fakeDriver{name: "kubernetes", healthyErr: errors.New("connection refused")}
	fallback := &fakeDriver{name: "process", phase: sandbox.PhaseSucceeded, output: "Hello World!\n"}
	o := New(ms, cluster, fallback, testWatcher(), nil)

	res, err := o.ExecuteTask(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("ExecuteTask failed: %v", err)
	}

	if !res.FellBack {
		t.Error("expected FellBack to be set")
	}
	if res.Driver != "process" {
		t.Errorf("got driver %q, want process", res.Driver)
	}
	if cluster.creates() != 0 {
		t.Errorf("unreachable cluster must not be asked for a sandbox, got %d creates", cluster.creates())
	}
	if fallback.deletes() != 1 {
		t.Errorf("expected one delete on the fallback driver, got %d", fallback.deletes())
	}
}

func TestExecuteTask_FallsBackWhenProvisioningFails(t *testing.T) {
	ms := &mockTaskStore{task: newTestTask()}
	cluster := &fakeDriver{
		name:      "kubernetes",
		createErr: fmt.Errorf("%w: quota exceeded", sandbox.ErrProvisionFailure),
	}
	fallback := &fakeDriver{name: "process", phase: sandbox.PhaseSucceeded, output: "Hello World!\n"}
	o := New(ms, cluster, fallback, testWatcher(), nil)

	res, err := o.ExecuteTask(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("ExecuteTask failed: %v", err)
	}

	if !res.FellBack {
		t.Error("expected FellBack to be set")
	}
	if cluster.deletes() != 0 {
		t.Errorf("no handle was created on the cluster, yet it saw %d deletes", cluster.deletes())
	}
	if fallback.deletes() != 1 {
		t.Errorf("expected one delete on the fallback driver, got %d", fallback.deletes())
	}
}

func TestExecuteTask_NoDriverAvailable(t *testing.T) {
	ms := &mockTaskStore{task: newTestTask()}
	cluster := &fakeDriver{name: "kubernetes", healthyErr: errors.New("connection refused")}
	o := New(ms, cluster, nil, testWatcher(), nil)

	_, err := o.ExecuteTask(context.Background(), "task-1")
	if !errors.Is(err, ErrExecutionFailed) {
		t.Fatalf("got %v, want ErrExecutionFailed", err)
	}
	if ms.appends() != 0 {
		t.Errorf("nothing ran, yet %d executions were recorded", ms.appends())
	}
}

func TestExecuteTask_BothProvisionAttemptsFail(t *testing.T) {
	ms := &mockTaskStore{task: newTestTask()}
	cluster := &fakeDriver{
		name:      "kubernetes",
		createErr: fmt.Errorf("%w: quota exceeded", sandbox.ErrProvisionFailure),
	}
	fallback := &fakeDriver{
		name:      "process",
		createErr: fmt.Errorf("%w: fork failed", sandbox.ErrProvisionFailure),
	}
	o := New(ms, cluster, fallback, testWatcher(), nil)

	_, err := o.ExecuteTask(context.Background(), "task-1")
	if !errors.Is(err, ErrExecutionFailed) {
		t.Fatalf("got %v, want ErrExecutionFailed", err)
	}
	if fallback.creates() != 1 {
		t.Errorf("fallback gets exactly one provisioning attempt, got %d", fallback.creates())
	}
}

func TestExecuteTask_TimeoutRecordsFailedExecution(t *testing.T) {
	ms := &mockTaskStore{task: newTestTask()}
	drv := &fakeDriver{name: "kubernetes", phase: sandbox.PhaseRunning, output: "partial output"}
	w := &sandbox.Watcher{Timeout: 150 * time.Millisecond, PollInterval: 5 * time.Millisecond}
	o := New(ms, drv, nil, w, nil)

	res, err := o.ExecuteTask(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("a timeout is a recorded outcome, not an error: %v", err)
	}

	if !strings.Contains(res.Execution.Output, "partial output") {
		t.Errorf("partial output was lost: %q", res.Execution.Output)
	}
	if !strings.Contains(res.Execution.Output, "execution timed out after") {
		t.Errorf("missing timeout marker in output: %q", res.Execution.Output)
	}
	if drv.deletes() != 1 {
		t.Errorf("expected exactly one sandbox delete after timeout, got %d", drv.deletes())
	}
	if ms.appends() != 1 {
		t.Errorf("expected the timed-out execution to be recorded, got %d appends", ms.appends())
	}
}

func TestExecuteTask_VanishedRecordsEmptyOutput(t *testing.T) {
	ms := &mockTaskStore{task: newTestTask()}
	drv := &fakeDriver{name: "kubernetes", phase: sandbox.PhaseVanished, output: "stale garbage"}
	o := New(ms, drv, nil, testWatcher(), nil)

	res, err := o.ExecuteTask(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("a vanished sandbox is a recorded outcome, not an error: %v", err)
	}
	if res.Execution.Output != "" {
		t.Errorf("vanished sandbox must record empty output, got %q", res.Execution.Output)
	}
	if drv.deletes() != 1 {
		t.Errorf("expected exactly one sandbox delete, got %d", drv.deletes())
	}
}

func TestExecuteTask_CleanupFailureIsAbsorbed(t *testing.T) {
	ms := &mockTaskStore{task: newTestTask()}
	drv := &fakeDriver{
		name:      "kubernetes",
		phase:     sandbox.PhaseSucceeded,
		output:    "Hello World!\n",
		deleteErr: errors.New("pod stuck terminating"),
	}
	o := New(ms, drv, nil, testWatcher(), nil)

	res, err := o.ExecuteTask(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("cleanup failure must not fail the execution: %v", err)
	}
	if res.Execution.Output != "Hello World!\n" {
		t.Errorf("got output %q", res.Execution.Output)
	}
}

func TestExecuteTask_ConcurrentRunsOfOneTaskBothRecorded(t *testing.T) {
	ms := &mockTaskStore{task: newTestTask()}
	drv := &fakeDriver{name: "kubernetes", phase: sandbox.PhaseSucceeded, output: "ok\n"}
	o := New(ms, drv, nil, testWatcher(), nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = o.ExecuteTask(context.Background(), "task-1")
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("execution %d failed: %v", i, err)
		}
	}
	if ms.appends() != 2 {
		t.Errorf("expected both executions recorded, got %d appends", ms.appends())
	}
	if drv.deletes() != 2 {
		t.Errorf("expected one delete per sandbox, got %d", drv.deletes())
	}
}

func TestExecuteTask_DeletesSandboxBeforeRecording(t *testing.T) {
	drv := &fakeDriver{name: "kubernetes", phase: sandbox.PhaseSucceeded, output: "ok\n"}
	var deletesAtAppend int
	ms := &mockTaskStore{task: newTestTask()}
	ms.onAppend = func() {
		deletesAtAppend = drv.deletes()
	}
	o := New(ms, drv, nil, testWatcher(), nil)

	if _, err := o.ExecuteTask(context.Background(), "task-1"); err != nil {
		t.Fatalf("ExecuteTask failed: %v", err)
	}
	if deletesAtAppend != 1 {
		t.Errorf("sandbox must be gone before the record is written, saw %d deletes", deletesAtAppend)
	}
}

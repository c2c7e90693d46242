package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ajithabhiram/Kaiburr-task2/pkg/api"
)

// TaskClient handles API calls to the taskrunner server.
type TaskClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewTaskClient creates a new client with the given base URL.
func NewTaskClient(baseURL string) *TaskClient {
	return &TaskClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			// Running a task blocks until the sandbox terminates, so the
			// client timeout sits above the server's execution deadline.
			Timeout: 120 * time.Second,
		},
	}
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

func (c *TaskClient) do(method, endpoint string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequest(method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Add("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	return respBody, nil
}

// CreateTask sends PUT /tasks to create or replace a task definition.
func (c *TaskClient) CreateTask(req api.TaskRequest) (*api.TaskResponse, error) {
	respBody, err := c.do(http.MethodPut, fmt.Sprintf("%s/tasks", c.BaseURL), req)
	if err != nil {
		return nil, err
	}

	var result api.TaskResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &result, nil
}

// GetTask sends GET /tasks/{id} to retrieve one task with its executions.
func (c *TaskClient) GetTask(taskID string) (*api.TaskResponse, error) {
	respBody, err := c.do(http.MethodGet, fmt.Sprintf("%s/tasks/%s", c.BaseURL, url.PathEscape(taskID)), nil)
	if err != nil {
		return nil, err
	}

	var result api.TaskResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &result, nil
}

// ListTasks sends GET /tasks to retrieve every task.
func (c *TaskClient) ListTasks() ([]api.TaskResponse, error) {
	respBody, err := c.do(http.MethodGet, fmt.Sprintf("%s/tasks", c.BaseURL), nil)
	if err != nil {
		return nil, err
	}

	var result []api.TaskResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return result, nil
}

// SearchTasks sends GET /tasks/search to find tasks by name fragment.
func (c *TaskClient) SearchTasks(fragment string) ([]api.TaskResponse, error) {
	endpoint := fmt.Sprintf("%s/tasks/search?name=%s", c.BaseURL, url.QueryEscape(fragment))
	respBody, err := c.do(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var result []api.TaskResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return result, nil
}

// DeleteTask sends DELETE /tasks/{id}.
func (c *TaskClient) DeleteTask(taskID string) error {
	_, err := c.do(http.MethodDelete, fmt.Sprintf("%s/tasks/%s", c.BaseURL, url.PathEscape(taskID)), nil)
	return err
}

// RunTask sends PUT /tasks/{id}/executions and waits for the recorded
// execution.
func (c *TaskClient) RunTask(taskID string) (*api.TaskExecutionResponse, error) {
	endpoint := fmt.Sprintf("%s/tasks/%s/executions", c.BaseURL, url.PathEscape(taskID))
	respBody, err := c.do(http.MethodPut, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var result api.TaskExecutionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &result, nil
}

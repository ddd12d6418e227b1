package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"time"
)

// ---------------------------------------------------------------------------
// Workflow service client
// Talks to the remote node-graph workflow execution service that runs the
// generative storyboard and video workflows. Follows a deferred request
// pattern: submit workflow run → poll by task id → read output artifacts.
// ---------------------------------------------------------------------------

const (
	defaultPollInterval = 10 * time.Second
)

// Task statuses reported by the workflow service.
const (
	TaskStatusQueued  = "QUEUED"
	TaskStatusRunning = "RUNNING"
	TaskStatusSuccess = "SUCCESS"
	TaskStatusFailed  = "FAILED"
)

// NodeInput overrides one field of one node in a workflow graph.
type NodeInput struct {
	NodeID     string `json:"nodeId"`
	FieldName  string `json:"fieldName"`
	FieldValue string `json:"fieldValue"`
}

// TaskOutput is one artifact produced by a completed task.
type TaskOutput struct {
	FileURL    string `json:"fileUrl"`
	OutputType string `json:"outputType"`
}

// TaskStatus is the service's view of a running task.
type TaskStatus struct {
	TaskID       string       `json:"taskId"`
	Status       string       `json:"status"`
	Outputs      []TaskOutput `json:"outputs,omitempty"`
	ErrorMessage string       `json:"errorMessage,omitempty"`
}

// apiEnvelope wraps every workflow service response. A non-zero Code is a
// service-reported failure even when HTTP says 200.
type apiEnvelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// WorkflowClient is the narrow submit/poll/upload client for the workflow
// service. Credentials and endpoint are explicit constructor arguments so
// tests can point it at a fake server.
type WorkflowClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	// PollInterval is the fixed delay between status queries. Defaults to
	// 10s; tests shorten it.
	PollInterval time.Duration
}

// NewWorkflowClient creates a workflow service client.
func NewWorkflowClient(baseURL, apiKey string) *WorkflowClient {
	return &WorkflowClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second, // Per-call timeout, not the full poll cycle
		},
		PollInterval: defaultPollInterval,
	}
}

// Submit starts a workflow run and returns the service-assigned task id.
// Submission failures are not retried here — the stage fails immediately.
func (c *WorkflowClient) Submit(ctx context.Context, workflowID string, inputs []NodeInput) (string, error) {
	reqBody := struct {
		WorkflowID   string      `json:"workflowId"`
		NodeInfoList []NodeInput `json:"nodeInfoList"`
	}{
		WorkflowID:   workflowID,
		NodeInfoList: inputs,
	}

	data, err := c.postJSON(ctx, "/v1/workflows/run", reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to submit workflow %s: %w", workflowID, err)
	}

	var result struct {
		TaskID string `json:"taskId"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("failed to parse submit response: %w (body: %s)", err, truncateBody(data))
	}

	if result.TaskID == "" {
		return "", fmt.Errorf("no taskId in submit response: %s", truncateBody(data))
	}

	log.Printf("[Workflow] Submitted workflow %s, task_id=%s (%d node inputs)", workflowID, result.TaskID, len(inputs))
	return result.TaskID, nil
}

// QueryTask fetches the current status of a task.
func (c *WorkflowClient) QueryTask(ctx context.Context, taskID string) (*TaskStatus, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/v1/tasks/"+taskID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("workflow service returned status %d: %s", resp.StatusCode, truncateBody(body))
	}

	var env apiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to parse task response: %w (body: %s)", err, truncateBody(body))
	}
	if env.Code != 0 {
		return nil, fmt.Errorf("workflow service error code %d: %s", env.Code, env.Msg)
	}

	var status TaskStatus
	if err := json.Unmarshal(env.Data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse task status: %w (body: %s)", err, truncateBody(body))
	}
	if status.TaskID == "" {
		status.TaskID = taskID
	}

	return &status, nil
}

// PollUntilDone repeats a status query at a fixed interval until the task
// reaches a terminal state or the wall-clock budget is exhausted. Queries
// for a single task are strictly sequential; concurrency, if any, lives in
// the caller.
func (c *WorkflowClient) PollUntilDone(ctx context.Context, taskID string, budget time.Duration) ([]TaskOutput, error) {
	deadline := time.Now().Add(budget)
	pollCount := 0

	for {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("task %s timed out after %v (polled %d times)", taskID, budget, pollCount)
		}

		pollCount++

		status, err := c.QueryTask(ctx, taskID)
		if err != nil {
			return nil, fmt.Errorf("failed to poll task %s (attempt %d): %w", taskID, pollCount, err)
		}

		switch status.Status {
		case TaskStatusSuccess:
			log.Printf("[Workflow] Task %s succeeded after %d polls (%d outputs)", taskID, pollCount, len(status.Outputs))
			return status.Outputs, nil

		case TaskStatusFailed:
			errMsg := status.ErrorMessage
			if errMsg == "" {
				errMsg = "unknown error"
			}
			return nil, fmt.Errorf("task %s failed: %s", taskID, errMsg)

		default:
			// QUEUED / RUNNING — wait out the fixed interval before the next query
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("polling task %s cancelled: %w", taskID, ctx.Err())
			case <-time.After(c.PollInterval):
			}
		}
	}
}

// UploadFile pushes raw bytes to the workflow service's own storage and
// returns the service-assigned file reference used in node inputs.
func (c *WorkflowClient) UploadFile(ctx context.Context, data []byte, filename string) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create multipart file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to write multipart file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/files", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}

	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read upload response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("file upload returned status %d: %s", resp.StatusCode, truncateBody(body))
	}

	var env apiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", fmt.Errorf("failed to parse upload response: %w (body: %s)", err, truncateBody(body))
	}
	if env.Code != 0 {
		return "", fmt.Errorf("workflow service error code %d: %s", env.Code, env.Msg)
	}

	var result struct {
		FileName string `json:"fileName"`
	}
	if err := json.Unmarshal(env.Data, &result); err != nil {
		return "", fmt.Errorf("failed to parse upload result: %w (body: %s)", err, truncateBody(body))
	}
	if result.FileName == "" {
		return "", fmt.Errorf("no fileName in upload response: %s", truncateBody(body))
	}

	return result.FileName, nil
}

// postJSON sends a JSON body and unwraps the service envelope.
func (c *WorkflowClient) postJSON(ctx context.Context, path string, reqBody interface{}) (json.RawMessage, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("workflow service returned status %d: %s", resp.StatusCode, truncateBody(body))
	}

	var env apiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w (body: %s)", err, truncateBody(body))
	}
	if env.Code != 0 {
		return nil, fmt.Errorf("workflow service error code %d: %s", env.Code, env.Msg)
	}

	return env.Data, nil
}

func truncateBody(b []byte) string {
	const maxLen = 300
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}

package assistant

import (
	"context"
	"log"
	"net/http"
)

// RunStatus is the lifecycle status reported by the service for a run
type RunStatus string

// Run statuses reported by the Assistants API
const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCancelling     RunStatus = "cancelling"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusFailed         RunStatus = "failed"
	RunStatusExpired        RunStatus = "expired"
	RunStatusIncomplete     RunStatus = "incomplete"
)

// ErrorCodeRateLimitExceeded is the last_error code of a run that failed on rate limits
const ErrorCodeRateLimitExceeded = "rate_limit_exceeded"

// Run represents an OpenAI Run
type Run struct {
	ID             string          `json:"id"`
	Status         RunStatus       `json:"status"`
	AssistantID    string          `json:"assistant_id"`
	ThreadID       string          `json:"thread_id"`
	RequiredAction *RequiredAction `json:"required_action,omitempty"`
	LastError      *RunError       `json:"last_error,omitempty"`
}

// RequiredAction holds the tool calls a run waits on
type RequiredAction struct {
	Type              string             `json:"type"`
	SubmitToolOutputs *SubmitToolOutputs `json:"submit_tool_outputs,omitempty"`
}

// SubmitToolOutputs lists the pending tool calls
type SubmitToolOutputs struct {
	ToolCalls []ToolCall `json:"tool_calls"`
}

// ToolCall is a single function call requested by a run
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall names the function and carries its JSON arguments
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// RunError is the last error reported for a run
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ToolOutput answers one tool call
type ToolOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}

// PendingToolCalls returns the tool calls of a requires_action run, if any
func (r *Run) PendingToolCalls() []ToolCall {
	if r.RequiredAction == nil || r.RequiredAction.SubmitToolOutputs == nil {
		return nil
	}
	return r.RequiredAction.SubmitToolOutputs.ToolCalls
}

// IsRateLimited reports whether the run failed because of a rate limit
func (r *Run) IsRateLimited() bool {
	return r.Status == RunStatusFailed && r.LastError != nil && r.LastError.Code == ErrorCodeRateLimitExceeded
}

// CreateRunRequest represents a request to create a run
type CreateRunRequest struct {
	AssistantID string `json:"assistant_id"`
}

// CreateRun creates a run to generate a response from an assistant
func (c *Client) CreateRun(ctx context.Context, threadID, assistantID string) (*Run, error) {
	log.Printf("[Assistant] CreateRun started thread_id=%s assistant_id=%s", threadID, assistantID)

	var run Run
	reqBody := CreateRunRequest{AssistantID: assistantID}
	if err := c.doJSON(ctx, http.MethodPost, "/threads/"+threadID+"/runs", reqBody, &run); err != nil {
		log.Printf("[Assistant] CreateRun failed thread_id=%s assistant_id=%s err=%v", threadID, assistantID, err)
		return nil, err
	}

	log.Printf("[Assistant] CreateRun completed run_id=%s status=%s", run.ID, run.Status)
	return &run, nil
}

// GetRun retrieves the status of a run
func (c *Client) GetRun(ctx context.Context, threadID, runID string) (*Run, error) {
	var run Run
	if err := c.doJSON(ctx, http.MethodGet, "/threads/"+threadID+"/runs/"+runID, nil, &run); err != nil {
		log.Printf("[Assistant] GetRun failed thread_id=%s run_id=%s err=%v", threadID, runID, err)
		return nil, err
	}

	log.Printf("[Assistant] GetRun completed run_id=%s status=%s", run.ID, run.Status)
	return &run, nil
}

// SubmitToolOutputsRequest carries the outputs for a requires_action run
type SubmitToolOutputsRequest struct {
	ToolOutputs []ToolOutput `json:"tool_outputs"`
}

// SubmitToolOutputs answers all pending tool calls of a run in one batch
func (c *Client) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) (*Run, error) {
	log.Printf("[Assistant] SubmitToolOutputs started thread_id=%s run_id=%s outputs=%d", threadID, runID, len(outputs))

	var run Run
	path := "/threads/" + threadID + "/runs/" + runID + "/submit_tool_outputs"
	if err := c.doJSON(ctx, http.MethodPost, path, SubmitToolOutputsRequest{ToolOutputs: outputs}, &run); err != nil {
		log.Printf("[Assistant] SubmitToolOutputs failed thread_id=%s run_id=%s err=%v", threadID, runID, err)
		return nil, err
	}

	log.Printf("[Assistant] SubmitToolOutputs completed run_id=%s status=%s", run.ID, run.Status)
	return &run, nil
}

// CancelRun cancels a running run
func (c *Client) CancelRun(ctx context.Context, threadID, runID string) error {
	log.Printf("[Assistant] CancelRun started thread_id=%s run_id=%s", threadID, runID)

	path := "/threads/" + threadID + "/runs/" + runID + "/cancel"
	if err := c.doJSON(ctx, http.MethodPost, path, nil, nil); err != nil {
		log.Printf("[Assistant] CancelRun failed thread_id=%s run_id=%s err=%v", threadID, runID, err)
		return err
	}

	log.Printf("[Assistant] CancelRun completed thread_id=%s run_id=%s", threadID, runID)
	return nil
}

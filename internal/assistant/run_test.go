package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRun_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/threads/thread_123/runs", r.URL.Path)

		var req CreateRunRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "asst_123", req.AssistantID)

		json.NewEncoder(w).Encode(Run{ID: "run_123", Status: RunStatusQueued, AssistantID: "asst_123", ThreadID: "thread_123"})
	})

	run, err := client.CreateRun(context.Background(), "thread_123", "asst_123")
	require.NoError(t, err)

	assert.Equal(t, "run_123", run.ID)
	assert.Equal(t, RunStatusQueued, run.Status)
}

func TestGetRun_DecodesRequiredAction(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/threads/thread_123/runs/run_123", r.URL.Path)

		w.Write([]byte(`{
			"id": "run_123",
			"status": "requires_action",
			"required_action": {
				"type": "submit_tool_outputs",
				"submit_tool_outputs": {
					"tool_calls": [
						{"id": "call_1", "type": "function", "function": {"name": "get_diagram", "arguments": "{}"}},
						{"id": "call_2", "type": "function", "function": {"name": "create_nodes", "arguments": "{\"nodes\":[]}"}}
					]
				}
			}
		}`))
	})

	run, err := client.GetRun(context.Background(), "thread_123", "run_123")
	require.NoError(t, err)

	assert.Equal(t, RunStatusRequiresAction, run.Status)
	calls := run.PendingToolCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "call_1", calls[0].ID)
	assert.Equal(t, "get_diagram", calls[0].Function.Name)
	assert.Equal(t, `{"nodes":[]}`, calls[1].Function.Arguments)
}

func TestGetRun_DecodesRateLimitError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "run_123", "status": "failed",
			"last_error": {"code": "rate_limit_exceeded", "message": "Rate limit reached"}}`))
	})

	run, err := client.GetRun(context.Background(), "thread_123", "run_123")
	require.NoError(t, err)

	assert.True(t, run.IsRateLimited())
	assert.Empty(t, run.PendingToolCalls())
}

func TestRun_IsRateLimited(t *testing.T) {
	tests := []struct {
		name string
		run  Run
		want bool
	}{
		{"failed with rate limit code", Run{Status: RunStatusFailed, LastError: &RunError{Code: ErrorCodeRateLimitExceeded}}, true},
		{"failed with server error", Run{Status: RunStatusFailed, LastError: &RunError{Code: "server_error"}}, false},
		{"failed without detail", Run{Status: RunStatusFailed}, false},
		{"in progress with stale code", Run{Status: RunStatusInProgress, LastError: &RunError{Code: ErrorCodeRateLimitExceeded}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.run.IsRateLimited())
		})
	}
}

func TestSubmitToolOutputs_SendsBatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/threads/thread_123/runs/run_123/submit_tool_outputs", r.URL.Path)

		var req SubmitToolOutputsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.ToolOutputs, 2)
		assert.Equal(t, "call_1", req.ToolOutputs[0].ToolCallID)
		assert.Equal(t, `{"status":"OK"}`, req.ToolOutputs[0].Output)
		assert.Equal(t, "call_2", req.ToolOutputs[1].ToolCallID)

		json.NewEncoder(w).Encode(Run{ID: "run_123", Status: RunStatusQueued})
	})

	run, err := client.SubmitToolOutputs(context.Background(), "thread_123", "run_123", []ToolOutput{
		{ToolCallID: "call_1", Output: `{"status":"OK"}`},
		{ToolCallID: "call_2", Output: `{"status":"Error"}`},
	})
	require.NoError(t, err)
	assert.Equal(t, RunStatusQueued, run.Status)
}

func TestCancelRun(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/threads/thread_123/runs/run_123/cancel", r.URL.Path)
		json.NewEncoder(w).Encode(Run{ID: "run_123", Status: RunStatusCancelling})
	})

	require.NoError(t, client.CancelRun(context.Background(), "thread_123", "run_123"))
}

func TestCancelRun_AlreadyFinished(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "Cannot cancel run with status 'completed'."}}`))
	})

	err := client.CancelRun(context.Background(), "thread_123", "run_123")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

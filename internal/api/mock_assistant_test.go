package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"diagram-assistant/internal/assistant"
	"diagram-assistant/internal/db"
	"diagram-assistant/internal/orchestrator"
	"diagram-assistant/internal/tools"
)

// MockAssistantServer simulates the Assistants API.
// A new run first asks for the scripted tool calls, then completes with
// responseText once their outputs are submitted. With hold set, runs stay
// in progress until cancelled.
type MockAssistantServer struct {
	server *httptest.Server
	mutex  sync.Mutex

	toolCalls    []assistant.ToolCall
	responseText string
	hold         bool

	threads     map[string][]assistant.Message // threadID -> messages, newest first
	runs        map[string]*assistant.Run
	submitted   [][]assistant.ToolOutput
	cancelCount int
	counter     int
	polled      chan struct{}
}

func newMockAssistantServer(t *testing.T) *MockAssistantServer {
	t.Helper()

	m := &MockAssistantServer{
		responseText: "This is a mock response from the assistant.",
		threads:      make(map[string][]assistant.Message),
		runs:         make(map[string]*assistant.Run),
		polled:       make(chan struct{}, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /assistants", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(assistant.Assistant{ID: "asst_mock"})
	})
	mux.HandleFunc("DELETE /assistants/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"deleted": true}`))
	})
	mux.HandleFunc("POST /threads", m.handleCreateThread)
	mux.HandleFunc("DELETE /threads/{thread}", m.handleDeleteThread)
	mux.HandleFunc("POST /threads/{thread}/messages", m.handleCreateMessage)
	mux.HandleFunc("GET /threads/{thread}/messages", m.handleListMessages)
	mux.HandleFunc("POST /threads/{thread}/runs", m.handleCreateRun)
	mux.HandleFunc("GET /threads/{thread}/runs/{run}", m.handleGetRun)
	mux.HandleFunc("POST /threads/{thread}/runs/{run}/submit_tool_outputs", m.handleSubmit)
	mux.HandleFunc("POST /threads/{thread}/runs/{run}/cancel", m.handleCancel)

	m.server = httptest.NewServer(mux)
	t.Cleanup(m.server.Close)
	return m
}

func (m *MockAssistantServer) nextID(prefix string) string {
	m.counter++
	return fmt.Sprintf("%s_mock_%d", prefix, m.counter)
}

func (m *MockAssistantServer) handleCreateThread(w http.ResponseWriter, r *http.Request) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	threadID := m.nextID("thread")
	m.threads[threadID] = nil
	json.NewEncoder(w).Encode(assistant.Thread{ID: threadID, CreatedAt: 1234567890})
}

func (m *MockAssistantServer) handleDeleteThread(w http.ResponseWriter, r *http.Request) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	delete(m.threads, r.PathValue("thread"))
	w.Write([]byte(`{"deleted": true}`))
}

func (m *MockAssistantServer) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var req assistant.CreateMessageRequest
	json.NewDecoder(r.Body).Decode(&req)

	threadID := r.PathValue("thread")
	msg := textMessage(m.nextID("msg"), req.Role, req.Content)
	m.threads[threadID] = append([]assistant.Message{msg}, m.threads[threadID]...)
	json.NewEncoder(w).Encode(msg)
}

func (m *MockAssistantServer) handleListMessages(w http.ResponseWriter, r *http.Request) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	json.NewEncoder(w).Encode(assistant.ListMessagesResponse{Data: m.threads[r.PathValue("thread")]})
}

func (m *MockAssistantServer) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	run := &assistant.Run{
		ID:          m.nextID("run"),
		Status:      assistant.RunStatusQueued,
		AssistantID: "asst_mock",
		ThreadID:    r.PathValue("thread"),
	}
	if len(m.toolCalls) > 0 {
		run.Status = assistant.RunStatusRequiresAction
		run.RequiredAction = &assistant.RequiredAction{
			Type:              "submit_tool_outputs",
			SubmitToolOutputs: &assistant.SubmitToolOutputs{ToolCalls: m.toolCalls},
		}
	} else if !m.hold {
		m.complete(run)
	} else {
		run.Status = assistant.RunStatusInProgress
	}
	m.runs[run.ID] = run

	json.NewEncoder(w).Encode(assistant.Run{ID: run.ID, Status: assistant.RunStatusQueued, ThreadID: run.ThreadID})
}

// complete finishes a run with the assistant reply; callers hold the mutex
func (m *MockAssistantServer) complete(run *assistant.Run) {
	run.Status = assistant.RunStatusCompleted
	run.RequiredAction = nil
	msg := textMessage(m.nextID("msg"), "assistant", m.responseText)
	m.threads[run.ThreadID] = append([]assistant.Message{msg}, m.threads[run.ThreadID]...)
}

func (m *MockAssistantServer) handleGetRun(w http.ResponseWriter, r *http.Request) {
	m.mutex.Lock()
	run, ok := m.runs[r.PathValue("run")]
	var snapshot assistant.Run
	if ok {
		snapshot = *run
	}
	m.mutex.Unlock()

	select {
	case m.polled <- struct{}{}:
	default:
	}

	if !ok {
		http.Error(w, `{"error": {"message": "No run found"}}`, http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(snapshot)
}

func (m *MockAssistantServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var req assistant.SubmitToolOutputsRequest
	json.NewDecoder(r.Body).Decode(&req)
	m.submitted = append(m.submitted, req.ToolOutputs)

	run := m.runs[r.PathValue("run")]
	m.complete(run)
	json.NewEncoder(w).Encode(assistant.Run{ID: run.ID, Status: assistant.RunStatusQueued})
}

func (m *MockAssistantServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.cancelCount++
	if run, ok := m.runs[r.PathValue("run")]; ok {
		run.Status = assistant.RunStatusCancelled
	}
	json.NewEncoder(w).Encode(assistant.Run{ID: r.PathValue("run"), Status: assistant.RunStatusCancelling})
}

func (m *MockAssistantServer) threadCount() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.threads)
}

func (m *MockAssistantServer) submissions() [][]assistant.ToolOutput {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.submitted
}

func (m *MockAssistantServer) cancels() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.cancelCount
}

func textMessage(id, role, text string) assistant.Message {
	return assistant.Message{
		ID:      id,
		Role:    role,
		Content: []assistant.MessageContent{{Type: "text", Text: &assistant.TextObject{Value: text}}},
	}
}

// setupRouter wires a router to the mock service and an in-memory diagram
func setupRouter(t *testing.T, mock *MockAssistantServer) (*Router, *orchestrator.Manager, *db.DB) {
	t.Helper()

	database, err := db.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.Migrate())

	executor, err := tools.NewExecutor(database)
	require.NoError(t, err)

	client := assistant.NewClient("test-key", assistant.WithBaseURL(mock.server.URL))
	manager := orchestrator.NewManager(client, executor, orchestrator.Options{
		Tools:        orchestrator.Declarations(executor.Definitions()),
		PollInterval: 5 * time.Millisecond,
		Timeout:      5 * time.Second,
	})

	router := NewRouter(manager, database, "Done")
	t.Cleanup(router.WaitInflight)
	return router, manager, database
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"diagram-assistant/internal/orchestrator"
)

// SessionManager opens, looks up and ends assistant sessions
type SessionManager interface {
	Create() string
	Get(id string) (*orchestrator.Orchestrator, error)
	Cancel(ctx context.Context, id string) error
	Terminate(ctx context.Context, id string) error
}

// SessionHandler handles session lifecycle and editor actions
type SessionHandler struct {
	sessions      SessionManager
	broadcaster   *EventBroadcaster
	fallbackReply string
	inflight      sync.WaitGroup
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(sessions SessionManager, broadcaster *EventBroadcaster, fallbackReply string) *SessionHandler {
	return &SessionHandler{
		sessions:      sessions,
		broadcaster:   broadcaster,
		fallbackReply: fallbackReply,
	}
}

// SessionResponse represents a session in API responses
type SessionResponse struct {
	ID string `json:"id"`
}

// ActionRequest is an editor action sent to a session
type ActionRequest struct {
	Kind      string `json:"kind"`
	RequestID string `json:"requestId,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ActionAccepted acknowledges an assistant request whose reply arrives over SSE
type ActionAccepted struct {
	RequestID string `json:"requestId"`
}

// Create handles POST /api/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	id := h.sessions.Create()
	log.Printf("[API] Create session completed session_id=%s", id)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(SessionResponse{ID: id})
}

// Delete handles DELETE /api/sessions/{id}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	log.Printf("[API] Delete session started session_id=%s", id)

	err := h.sessions.Terminate(r.Context(), id)
	if errors.Is(err, orchestrator.ErrSessionNotFound) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		// The session is gone locally even when remote cleanup failed
		log.Printf("[API] Delete session cleanup failed session_id=%s err=%v", id, err)
	}
	h.broadcaster.CloseSession(id)

	log.Printf("[API] Delete session completed session_id=%s", id)
	w.WriteHeader(http.StatusNoContent)
}

// Action handles POST /api/sessions/{id}/actions
func (h *SessionHandler) Action(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[API] Action failed: invalid request body session_id=%s err=%v", id, err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	o, err := h.sessions.Get(id)
	if err != nil {
		log.Printf("[API] Action failed: session not found session_id=%s", id)
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	log.Printf("[API] Action received session_id=%s kind=%s", id, req.Kind)

	switch req.Kind {
	case KindAssistantRequest:
		requestID := req.RequestID
		if requestID == "" {
			requestID = uuid.NewString()
		}
		h.dispatchRequest(id, requestID, req.Message, o)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(ActionAccepted{RequestID: requestID})

	case KindAssistantCancel:
		if err := h.sessions.Cancel(r.Context(), id); err != nil {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		log.Printf("[API] Action failed: unknown kind session_id=%s kind=%s", id, req.Kind)
		http.Error(w, "Unknown action kind", http.StatusBadRequest)
	}
}

// dispatchRequest runs the assistant request in the background and
// broadcasts its reply to the session's event stream
func (h *SessionHandler) dispatchRequest(sessionID, requestID, message string, o *orchestrator.Orchestrator) {
	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()

		reply, ok := o.SendUserRequest(context.Background(), message)
		if !ok {
			reply = h.fallbackReply
		}
		log.Printf("[API] Assistant request finished session_id=%s request_id=%s answered=%v", sessionID, requestID, ok)
		h.broadcaster.BroadcastResponse(sessionID, requestID, reply)
	}()
}

// Wait blocks until every dispatched request has replied
func (h *SessionHandler) Wait() {
	h.inflight.Wait()
}

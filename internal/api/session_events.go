package api

import (
	"log"
	"net/http"
)

// SessionEventsHandler streams session events over SSE
type SessionEventsHandler struct {
	broadcaster *EventBroadcaster
	sessions    SessionManager
}

// NewSessionEventsHandler creates a new SessionEventsHandler
func NewSessionEventsHandler(broadcaster *EventBroadcaster, sessions SessionManager) *SessionEventsHandler {
	return &SessionEventsHandler{
		broadcaster: broadcaster,
		sessions:    sessions,
	}
}

// HandleEvents handles GET /api/sessions/{id}/events
func (h *SessionEventsHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if _, err := h.sessions.Get(sessionID); err != nil {
		log.Printf("[SSE] Unknown session session_id=%s", sessionID)
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	log.Printf("[SSE] New connection request session_id=%s", sessionID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		log.Printf("[SSE] Streaming not supported")
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	eventCh := h.broadcaster.Subscribe(sessionID)
	defer h.broadcaster.Unsubscribe(sessionID, eventCh)

	if _, err := w.Write([]byte("event: connected\ndata: {}\n\n")); err != nil {
		log.Printf("[SSE] Failed to send connected event err=%v", err)
		return
	}
	flusher.Flush()

	log.Printf("[SSE] Client connected session_id=%s", sessionID)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Printf("[SSE] Client disconnected session_id=%s", sessionID)
			return
		case event, ok := <-eventCh:
			if !ok {
				log.Printf("[SSE] Event channel closed session_id=%s", sessionID)
				return
			}
			data, err := FormatSSE(event)
			if err != nil {
				log.Printf("[SSE] Failed to format event err=%v", err)
				continue
			}
			if _, err := w.Write(data); err != nil {
				log.Printf("[SSE] Failed to write event err=%v", err)
				return
			}
			flusher.Flush()
		}
	}
}

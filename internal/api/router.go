package api

import (
	"log"
	"net/http"
	"strings"
	"time"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush implements http.Flusher interface for SSE support
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Router holds the HTTP multiplexer and dependencies
type Router struct {
	mux            *http.ServeMux
	sessionHandler *SessionHandler
	eventsHandler  *SessionEventsHandler
	diagramHandler *DiagramHandler
	broadcaster    *EventBroadcaster
}

// NewRouter creates a new router with all routes configured
func NewRouter(sessions SessionManager, diagram DiagramReader, fallbackReply string) *Router {
	broadcaster := NewEventBroadcaster()

	r := &Router{
		mux:            http.NewServeMux(),
		sessionHandler: NewSessionHandler(sessions, broadcaster, fallbackReply),
		eventsHandler:  NewSessionEventsHandler(broadcaster, sessions),
		diagramHandler: NewDiagramHandler(diagram),
		broadcaster:    broadcaster,
	}
	r.setupRoutes()
	return r
}

// setupRoutes configures all HTTP routes
func (r *Router) setupRoutes() {
	r.mux.HandleFunc("GET /health", HealthHandler)

	r.mux.HandleFunc("POST /api/sessions", r.sessionHandler.Create)
	r.mux.HandleFunc("DELETE /api/sessions/{id}", r.sessionHandler.Delete)
	r.mux.HandleFunc("POST /api/sessions/{id}/actions", r.sessionHandler.Action)
	r.mux.HandleFunc("GET /api/sessions/{id}/events", r.eventsHandler.HandleEvents)

	r.mux.HandleFunc("GET /api/diagram", r.diagramHandler.Get)
}

// ServeHTTP implements the http.Handler interface
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()

	// Add CORS headers for development
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if req.Method == http.MethodOptions {
		log.Printf("[HTTP] CORS preflight method=OPTIONS path=%s", req.URL.Path)
		w.WriteHeader(http.StatusOK)
		return
	}

	// Skip logging for health checks and SSE endpoints
	shouldLog := strings.HasPrefix(req.URL.Path, "/api/") && !strings.HasSuffix(req.URL.Path, "/events")

	if shouldLog {
		log.Printf("[HTTP] Request started method=%s path=%s", req.Method, req.URL.Path)
	}

	wrapped := newResponseWriter(w)
	r.mux.ServeHTTP(wrapped, req)

	if shouldLog {
		log.Printf("[HTTP] Request completed method=%s path=%s status=%d duration=%v",
			req.Method, req.URL.Path, wrapped.statusCode, time.Since(start))
	}
}

// Broadcaster returns the event broadcaster
func (r *Router) Broadcaster() *EventBroadcaster {
	return r.broadcaster
}

// WaitInflight blocks until every dispatched assistant request has replied
func (r *Router) WaitInflight() {
	r.sessionHandler.Wait()
}

package orchestrator

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for unknown session ids
var ErrSessionNotFound = errors.New("session not found")

// Manager keeps one Orchestrator per session id
type Manager struct {
	service  Service
	tools    ToolExecutor
	opts     Options
	sessions map[string]*Orchestrator
	mu       sync.RWMutex
}

// NewManager creates a new Manager
func NewManager(service Service, executor ToolExecutor, opts Options) *Manager {
	return &Manager{
		service:  service,
		tools:    executor,
		opts:     opts,
		sessions: make(map[string]*Orchestrator),
	}
}

// Create opens a new session and returns its id.
// The remote thread is created lazily by the first request.
func (m *Manager) Create() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	m.sessions[id] = New(m.service, m.tools, m.opts)
	log.Printf("[Manager] Session created session_id=%s", id)
	return id
}

// Get returns the orchestrator of a session
func (m *Manager) Get(id string) (*Orchestrator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, exists := m.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return o, nil
}

// Cancel cancels the active request of a session
func (m *Manager) Cancel(ctx context.Context, id string) error {
	o, err := m.Get(id)
	if err != nil {
		log.Printf("[Manager] Session not found session_id=%s", id)
		return err
	}
	o.Cancel(ctx)
	return nil
}

// Terminate ends a session and releases its remote resources
func (m *Manager) Terminate(ctx context.Context, id string) error {
	m.mu.Lock()
	o, exists := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !exists {
		log.Printf("[Manager] Session not found session_id=%s", id)
		return ErrSessionNotFound
	}

	if err := o.Terminate(ctx); err != nil {
		log.Printf("[Manager] Session terminated with errors session_id=%s err=%v", id, err)
		return err
	}
	log.Printf("[Manager] Session terminated session_id=%s", id)
	return nil
}

// Shutdown terminates every session
func (m *Manager) Shutdown(ctx context.Context) error {
	log.Printf("[Manager] Shutting down...")

	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Orchestrator)
	m.mu.Unlock()

	var errs []error
	for id, o := range sessions {
		if err := o.Terminate(ctx); err != nil {
			log.Printf("[Manager] Failed to terminate session session_id=%s err=%v", id, err)
			errs = append(errs, err)
		}
	}

	log.Printf("[Manager] Shutdown complete terminated_count=%d", len(sessions))
	return errors.Join(errs...)
}

// SessionCount returns the number of open sessions
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

package orchestrator

import (
	"context"
	"sync"
	"time"
)

// pollTimer is the single polling cadence owned by a session.
// Start replaces any running ticker; Stop may be called any number of times.
type pollTimer struct {
	mu     sync.Mutex
	ticker *time.Ticker
}

// Start begins ticking every interval, stopping the previous ticker first
func (t *pollTimer) Start(interval time.Duration) <-chan time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ticker != nil {
		t.ticker.Stop()
	}
	t.ticker = time.NewTicker(interval)
	return t.ticker.C
}

// Stop halts the ticker if one is running
func (t *pollTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ticker != nil {
		t.ticker.Stop()
		t.ticker = nil
	}
}

// Active reports whether a ticker is running
func (t *pollTimer) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ticker != nil
}

// Session holds the remote handles of one conversation
type Session struct {
	mu          sync.Mutex
	assistantID string
	threadID    string
	runID       string
	initialized bool
	busy        bool
	cancelPoll  context.CancelFunc

	timer pollTimer
}

// ThreadID returns the remote thread id, empty before initialization
func (s *Session) ThreadID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threadID
}

// CurrentRun returns the id of the run being polled, if any
func (s *Session) CurrentRun() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID, s.runID != ""
}

// begin claims the session for one request.
// It fails when another request still holds it.
func (s *Session) begin(cancel context.CancelFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy {
		return false
	}
	s.busy = true
	s.cancelPoll = cancel
	return true
}

// setRun records the run being polled. It reports false when the request
// was cancelled before the run id was known.
func (s *Session) setRun(runID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runID = runID
	return s.cancelPoll != nil
}

// end releases the session and clears the current run
func (s *Session) end() {
	s.timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	s.runID = ""
	s.cancelPoll = nil
}

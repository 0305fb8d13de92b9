package api

import (
	"encoding/json"
	"log"
	"sync"
)

// Event is a Server-Sent Event
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Action kinds exchanged with the editor
const (
	KindAssistantRequest  = "ai-assistant-request"
	KindAssistantResponse = "ai-assistant-response"
	KindAssistantCancel   = "ai-assistant-cancel"
)

// ResponseAction carries an assistant reply correlated to its request
type ResponseAction struct {
	Kind       string `json:"kind"`
	ResponseID string `json:"responseId"`
	Message    string `json:"message"`
}

// EventBroadcaster manages SSE clients per session and fans events out to them
type EventBroadcaster struct {
	mu      sync.RWMutex
	clients map[string]map[chan Event]struct{} // sessionID -> clients
}

// NewEventBroadcaster creates a new EventBroadcaster
func NewEventBroadcaster() *EventBroadcaster {
	return &EventBroadcaster{
		clients: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe adds a client receiving the events of a session
func (b *EventBroadcaster) Subscribe(sessionID string) chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, 10)

	if b.clients[sessionID] == nil {
		b.clients[sessionID] = make(map[chan Event]struct{})
	}
	b.clients[sessionID][ch] = struct{}{}

	log.Printf("[SSE] Client subscribed session_id=%s total_clients=%d",
		sessionID, len(b.clients[sessionID]))

	return ch
}

// Unsubscribe removes a client; the channel is closed unless CloseSession already did
func (b *EventBroadcaster) Unsubscribe(sessionID string, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	clients, ok := b.clients[sessionID]
	if !ok {
		return
	}
	if _, subscribed := clients[ch]; !subscribed {
		return
	}

	delete(clients, ch)
	close(ch)
	if len(clients) == 0 {
		delete(b.clients, sessionID)
	}

	log.Printf("[SSE] Client unsubscribed session_id=%s", sessionID)
}

// CloseSession disconnects every client of a session
func (b *EventBroadcaster) CloseSession(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	clients := b.clients[sessionID]
	for ch := range clients {
		close(ch)
	}
	delete(b.clients, sessionID)

	log.Printf("[SSE] Session closed session_id=%s disconnected=%d", sessionID, len(clients))
}

// Broadcast sends an event to every client of a session
func (b *EventBroadcaster) Broadcast(sessionID string, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	clients := b.clients[sessionID]
	if len(clients) == 0 {
		log.Printf("[SSE] No clients for event type=%s session_id=%s", event.Type, sessionID)
		return
	}

	log.Printf("[SSE] Broadcasting event type=%s session_id=%s clients=%d",
		event.Type, sessionID, len(clients))

	for ch := range clients {
		select {
		case ch <- event:
		default:
			log.Printf("[SSE] Client channel full, skipping event")
		}
	}
}

// BroadcastResponse sends an assistant reply for the request responseID
func (b *EventBroadcaster) BroadcastResponse(sessionID, responseID, message string) {
	b.Broadcast(sessionID, Event{
		Type: KindAssistantResponse,
		Data: ResponseAction{
			Kind:       KindAssistantResponse,
			ResponseID: responseID,
			Message:    message,
		},
	})
}

// ClientCount returns the number of clients subscribed to a session
func (b *EventBroadcaster) ClientCount(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients[sessionID])
}

// TotalClientCount returns the number of clients across all sessions
func (b *EventBroadcaster) TotalClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := 0
	for _, clients := range b.clients {
		total += len(clients)
	}
	return total
}

// FormatSSE formats an event in the SSE wire format
func FormatSSE(event Event) ([]byte, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return []byte("event: " + event.Type + "\ndata: " + string(data) + "\n\n"), nil
}

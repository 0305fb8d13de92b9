package api

import (
	"strings"
	"testing"
	"time"
)

func TestNewEventBroadcaster(t *testing.T) {
	b := NewEventBroadcaster()
	if b == nil {
		t.Fatal("NewEventBroadcaster returned nil")
	}
	if b.clients == nil {
		t.Fatal("clients map is nil")
	}
}

func TestEventBroadcaster_MultipleSubscribers(t *testing.T) {
	b := NewEventBroadcaster()

	ch1 := b.Subscribe("s1")
	ch2 := b.Subscribe("s1")
	ch3 := b.Subscribe("s2")

	if b.ClientCount("s1") != 2 {
		t.Errorf("Expected 2 clients for s1, got %d", b.ClientCount("s1"))
	}
	if b.ClientCount("s2") != 1 {
		t.Errorf("Expected 1 client for s2, got %d", b.ClientCount("s2"))
	}
	if b.TotalClientCount() != 3 {
		t.Errorf("Expected 3 total clients, got %d", b.TotalClientCount())
	}

	b.Unsubscribe("s1", ch1)
	b.Unsubscribe("s1", ch2)
	b.Unsubscribe("s2", ch3)

	if b.TotalClientCount() != 0 {
		t.Errorf("Expected 0 clients after unsubscribe, got %d", b.TotalClientCount())
	}
}

func TestEventBroadcaster_BroadcastResponse(t *testing.T) {
	b := NewEventBroadcaster()
	ch := b.Subscribe("s1")
	defer b.Unsubscribe("s1", ch)

	b.BroadcastResponse("s1", "req-1", "I added the task.")

	select {
	case event := <-ch:
		if event.Type != KindAssistantResponse {
			t.Errorf("Expected event type %q, got %q", KindAssistantResponse, event.Type)
		}
		action, ok := event.Data.(ResponseAction)
		if !ok {
			t.Fatalf("Event data is %T, expected ResponseAction", event.Data)
		}
		if action.ResponseID != "req-1" || action.Message != "I added the task." {
			t.Errorf("Unexpected response %+v", action)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for event")
	}
}

func TestEventBroadcaster_BroadcastToWrongSession(t *testing.T) {
	b := NewEventBroadcaster()
	ch := b.Subscribe("s1")
	defer b.Unsubscribe("s1", ch)

	b.Broadcast("s2", Event{Type: "test", Data: "should not receive"})

	select {
	case <-ch:
		t.Fatal("Should not receive event for different session")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEventBroadcaster_CloseSession(t *testing.T) {
	b := NewEventBroadcaster()
	ch := b.Subscribe("s1")

	b.CloseSession("s1")

	if _, ok := <-ch; ok {
		t.Error("Expected channel to be closed")
	}
	if b.ClientCount("s1") != 0 {
		t.Errorf("Expected 0 clients after close, got %d", b.ClientCount("s1"))
	}

	// Unsubscribing after close must not close the channel twice
	b.Unsubscribe("s1", ch)
}

func TestEventBroadcaster_FullChannelSkipsEvent(t *testing.T) {
	b := NewEventBroadcaster()
	ch := b.Subscribe("s1")
	defer b.Unsubscribe("s1", ch)

	for i := 0; i < cap(ch)+5; i++ {
		b.Broadcast("s1", Event{Type: "test", Data: i})
	}

	if len(ch) != cap(ch) {
		t.Errorf("Expected channel to hold %d events, got %d", cap(ch), len(ch))
	}
}

func TestFormatSSE(t *testing.T) {
	data, err := FormatSSE(Event{
		Type: KindAssistantResponse,
		Data: ResponseAction{Kind: KindAssistantResponse, ResponseID: "r1", Message: "Done"},
	})
	if err != nil {
		t.Fatalf("FormatSSE returned error: %v", err)
	}

	got := string(data)
	if !strings.HasPrefix(got, "event: ai-assistant-response\ndata: ") {
		t.Errorf("Unexpected SSE prefix: %q", got)
	}
	if !strings.Contains(got, `"responseId":"r1"`) {
		t.Errorf("Expected responseId in payload: %q", got)
	}
	if !strings.HasSuffix(got, "\n\n") {
		t.Errorf("Expected SSE terminator: %q", got)
	}
}

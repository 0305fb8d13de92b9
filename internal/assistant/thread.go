package assistant

import (
	"context"
	"log"
	"net/http"
)

// Thread represents an OpenAI Thread
type Thread struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"created_at"`
}

// CreateThread creates a new thread
func (c *Client) CreateThread(ctx context.Context) (*Thread, error) {
	log.Printf("[Assistant] CreateThread started")

	var thread Thread
	if err := c.doJSON(ctx, http.MethodPost, "/threads", struct{}{}, &thread); err != nil {
		log.Printf("[Assistant] CreateThread failed err=%v", err)
		return nil, err
	}

	log.Printf("[Assistant] CreateThread completed thread_id=%s", thread.ID)
	return &thread, nil
}

// DeleteThread deletes a thread
func (c *Client) DeleteThread(ctx context.Context, id string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/threads/"+id, nil, nil); err != nil {
		log.Printf("[Assistant] DeleteThread failed thread_id=%s err=%v", id, err)
		return err
	}
	log.Printf("[Assistant] DeleteThread completed thread_id=%s", id)
	return nil
}

// Message represents an OpenAI Thread Message
type Message struct {
	ID        string           `json:"id"`
	Role      string           `json:"role"`
	Content   []MessageContent `json:"content"`
	RunID     string           `json:"run_id,omitempty"`
	CreatedAt int64            `json:"created_at"`
}

// MessageContent represents the content of a message
type MessageContent struct {
	Type string      `json:"type"`
	Text *TextObject `json:"text,omitempty"`
}

// TextObject represents text content
type TextObject struct {
	Value string `json:"value"`
}

// CreateMessageRequest represents a request to create a message
type CreateMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CreateMessage adds a user message to a thread
func (c *Client) CreateMessage(ctx context.Context, threadID, content string) (*Message, error) {
	// Truncate content for logging
	contentPreview := content
	if len(contentPreview) > 50 {
		contentPreview = contentPreview[:50] + "..."
	}
	log.Printf("[Assistant] CreateMessage started thread_id=%s content_preview=%q", threadID, contentPreview)

	reqBody := CreateMessageRequest{
		Role:    "user",
		Content: content,
	}

	var message Message
	if err := c.doJSON(ctx, http.MethodPost, "/threads/"+threadID+"/messages", reqBody, &message); err != nil {
		log.Printf("[Assistant] CreateMessage failed thread_id=%s err=%v", threadID, err)
		return nil, err
	}

	log.Printf("[Assistant] CreateMessage completed thread_id=%s message_id=%s content_length=%d", threadID, message.ID, len(content))
	return &message, nil
}

// ListMessagesResponse represents the response from listing messages
type ListMessagesResponse struct {
	Data []Message `json:"data"`
}

// ListMessages retrieves messages from a thread, newest first
func (c *Client) ListMessages(ctx context.Context, threadID string) ([]Message, error) {
	log.Printf("[Assistant] ListMessages started thread_id=%s", threadID)

	var listResp ListMessagesResponse
	if err := c.doJSON(ctx, http.MethodGet, "/threads/"+threadID+"/messages", nil, &listResp); err != nil {
		log.Printf("[Assistant] ListMessages failed thread_id=%s err=%v", threadID, err)
		return nil, err
	}

	log.Printf("[Assistant] ListMessages completed thread_id=%s message_count=%d", threadID, len(listResp.Data))
	return listResp.Data, nil
}

// FirstAssistantReply returns the text of the first assistant-authored text part
// in the thread listing. ok is false when the thread has none.
func (c *Client) FirstAssistantReply(ctx context.Context, threadID string) (reply string, ok bool, err error) {
	messages, err := c.ListMessages(ctx, threadID)
	if err != nil {
		return "", false, err
	}

	reply, ok = FirstAssistantText(messages)
	if !ok {
		log.Printf("[Assistant] FirstAssistantReply: no assistant message found thread_id=%s", threadID)
	}
	return reply, ok, nil
}

// FirstAssistantText finds the first assistant text part in messages
func FirstAssistantText(messages []Message) (string, bool) {
	for _, msg := range messages {
		if msg.Role != "assistant" {
			continue
		}
		for _, content := range msg.Content {
			if content.Type == "text" && content.Text != nil {
				return content.Text.Value, true
			}
		}
	}
	return "", false
}

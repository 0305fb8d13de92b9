package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4"
	defaultTimeout = 30 * time.Second
)

// Client provides access to OpenAI Assistants API
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	model      string
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithModel sets a custom model
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithBaseURL points the client at a different API root
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithRateLimit caps outbound requests to rps per second with the given burst.
// Every call waits for a token before it is sent.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewClient creates a new OpenAI Assistants API client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		model: defaultModel,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Assistant represents an OpenAI Assistant
type Assistant struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Instructions string `json:"instructions"`
	Model        string `json:"model"`
}

// Tool is a function tool the assistant may call
type Tool struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition declares a callable function and its JSON schema
type FunctionDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// FunctionTool builds a function tool declaration
func FunctionTool(name, description string, parameters json.RawMessage) Tool {
	return Tool{
		Type: "function",
		Function: FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}

// CreateAssistantRequest represents a request to create an assistant
type CreateAssistantRequest struct {
	Name         string `json:"name,omitempty"`
	Instructions string `json:"instructions"`
	Model        string `json:"model"`
	Tools        []Tool `json:"tools,omitempty"`
}

// CreateAssistant creates a new assistant definition with its tools
func (c *Client) CreateAssistant(ctx context.Context, name, instructions string, tools []Tool) (*Assistant, error) {
	log.Printf("[Assistant] CreateAssistant started name=%q model=%s tools=%d", name, c.model, len(tools))

	reqBody := CreateAssistantRequest{
		Name:         name,
		Instructions: instructions,
		Model:        c.model,
		Tools:        tools,
	}

	var assistant Assistant
	if err := c.doJSON(ctx, http.MethodPost, "/assistants", reqBody, &assistant); err != nil {
		log.Printf("[Assistant] CreateAssistant failed name=%q err=%v", name, err)
		return nil, err
	}

	log.Printf("[Assistant] CreateAssistant completed assistant_id=%s name=%q", assistant.ID, assistant.Name)
	return &assistant, nil
}

// DeleteAssistant deletes an assistant
func (c *Client) DeleteAssistant(ctx context.Context, id string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/assistants/"+id, nil, nil); err != nil {
		log.Printf("[Assistant] DeleteAssistant failed assistant_id=%s err=%v", id, err)
		return err
	}
	log.Printf("[Assistant] DeleteAssistant completed assistant_id=%s", id)
	return nil
}

// setHeaders sets the required headers for API requests
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("OpenAI-Beta", "assistants=v2")
}

// doJSON sends a request with an optional JSON body and decodes the JSON response into out
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.handleError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// APIError represents an error from the OpenAI API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("OpenAI API error (status %d): %s", e.StatusCode, e.Message)
}

// handleError processes error responses from the API
func (c *Client) handleError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	bodyStr := string(body)

	// Truncate for logging if too long
	logBody := bodyStr
	if len(logBody) > 500 {
		logBody = logBody[:500] + "..."
	}
	log.Printf("[Assistant] API Error status=%d body=%s", resp.StatusCode, logBody)

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    bodyStr,
	}
}

// Package orchestrator drives user requests through runs of the remote
// assistant: it owns the session, polls each run to completion and answers
// the run's tool calls with the diagram tools.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"diagram-assistant/internal/assistant"
	"diagram-assistant/internal/tools"
)

// Orchestrator errors
var (
	ErrTimeout           = errors.New("run timed out")
	ErrCancelled         = errors.New("request cancelled")
	ErrRequestInProgress = errors.New("another request is in progress")
)

const cancelTimeout = 10 * time.Second

// Service is the remote assistant API used by the orchestrator
type Service interface {
	CreateAssistant(ctx context.Context, name, instructions string, tools []assistant.Tool) (*assistant.Assistant, error)
	DeleteAssistant(ctx context.Context, id string) error
	CreateThread(ctx context.Context) (*assistant.Thread, error)
	DeleteThread(ctx context.Context, id string) error
	CreateMessage(ctx context.Context, threadID, content string) (*assistant.Message, error)
	CreateRun(ctx context.Context, threadID, assistantID string) (*assistant.Run, error)
	GetRun(ctx context.Context, threadID, runID string) (*assistant.Run, error)
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []assistant.ToolOutput) (*assistant.Run, error)
	CancelRun(ctx context.Context, threadID, runID string) error
	FirstAssistantReply(ctx context.Context, threadID string) (string, bool, error)
}

// ToolExecutor runs a named tool call
type ToolExecutor interface {
	Handle(ctx context.Context, name string, args json.RawMessage) (tools.Result, error)
}

// Options configures an Orchestrator
type Options struct {
	Name             string
	Instructions     string
	Tools            []assistant.Tool
	PollInterval     time.Duration
	Timeout          time.Duration
	RateLimitBackoff int
	FallbackReply    string
}

func (o Options) withDefaults() Options {
	if o.Name == "" {
		o.Name = "Workflow Diagram Assistant"
	}
	if o.Instructions == "" {
		o.Instructions = Instructions
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Second
	}
	if o.Timeout <= 0 {
		o.Timeout = 200 * time.Second
	}
	if o.RateLimitBackoff <= 0 {
		o.RateLimitBackoff = 3
	}
	if o.FallbackReply == "" {
		o.FallbackReply = "Done"
	}
	return o
}

// Orchestrator serves the requests of one session
type Orchestrator struct {
	service Service
	tools   ToolExecutor
	opts    Options
	session *Session

	initMu sync.Mutex
}

// New creates an Orchestrator with an uninitialized session
func New(service Service, executor ToolExecutor, opts Options) *Orchestrator {
	return &Orchestrator{
		service: service,
		tools:   executor,
		opts:    opts.withDefaults(),
		session: &Session{},
	}
}

// Session returns the session state
func (o *Orchestrator) Session() *Session {
	return o.session
}

// Initialize creates the assistant definition and the thread.
// It is a no-op once both exist.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	o.initMu.Lock()
	defer o.initMu.Unlock()

	s := o.session
	s.mu.Lock()
	initialized, assistantID := s.initialized, s.assistantID
	s.mu.Unlock()
	if initialized {
		return nil
	}

	if assistantID == "" {
		log.Printf("[Orchestrator] CreateAssistant started name=%s tools=%d", o.opts.Name, len(o.opts.Tools))
		asst, err := o.service.CreateAssistant(ctx, o.opts.Name, o.opts.Instructions, o.opts.Tools)
		if err != nil {
			return fmt.Errorf("create assistant: %w", err)
		}
		s.mu.Lock()
		s.assistantID = asst.ID
		s.mu.Unlock()
	}

	thread, err := o.service.CreateThread(ctx)
	if err != nil {
		return fmt.Errorf("create thread: %w", err)
	}

	s.mu.Lock()
	s.threadID = thread.ID
	s.initialized = true
	assistantID = s.assistantID
	s.mu.Unlock()

	log.Printf("[Orchestrator] Session initialized assistant_id=%s thread_id=%s", assistantID, thread.ID)
	return nil
}

// SendUserRequest sends message to the assistant and returns its reply.
// Failures are returned as reply text; the reply is absent only when the
// request was cancelled.
func (o *Orchestrator) SendUserRequest(ctx context.Context, message string) (string, bool) {
	if strings.TrimSpace(message) == "" {
		return o.failureText(errors.New("the message is empty")), true
	}

	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !o.session.begin(cancel) {
		log.Printf("[Orchestrator] Request rejected, another request is active")
		return o.failureText(ErrRequestInProgress), true
	}
	defer o.session.end()

	reply, err := o.process(pollCtx, message)
	switch {
	case err == nil:
		return reply, true
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		log.Printf("[Orchestrator] Request cancelled")
		return "", false
	default:
		log.Printf("[Orchestrator] Request failed err=%v", err)
		return o.failureText(err), true
	}
}

func (o *Orchestrator) process(ctx context.Context, message string) (string, error) {
	if err := o.Initialize(ctx); err != nil {
		return "", fmt.Errorf("initialize session: %w", err)
	}

	o.session.mu.Lock()
	threadID, assistantID := o.session.threadID, o.session.assistantID
	o.session.mu.Unlock()

	if _, err := o.service.CreateMessage(ctx, threadID, message); err != nil {
		return "", fmt.Errorf("add message: %w", err)
	}

	run, err := o.service.CreateRun(ctx, threadID, assistantID)
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	if !o.session.setRun(run.ID) {
		o.cancelUpstream(ctx, threadID, run.ID)
		return "", ErrCancelled
	}
	log.Printf("[Orchestrator] Run started thread_id=%s run_id=%s", threadID, run.ID)

	if err := o.waitForRun(ctx, threadID, run.ID); err != nil {
		return "", err
	}

	reply, ok, err := o.service.FirstAssistantReply(ctx, threadID)
	if err != nil {
		return "", fmt.Errorf("read reply: %w", err)
	}
	if !ok {
		log.Printf("[Orchestrator] Run produced no reply run_id=%s", run.ID)
		return o.opts.FallbackReply, nil
	}
	return reply, nil
}

func (o *Orchestrator) failureText(err error) string {
	var runErr *RunFailedError
	switch {
	case errors.Is(err, ErrTimeout):
		return fmt.Sprintf("The assistant did not finish within %v, so the request was cancelled.", o.opts.Timeout)
	case errors.Is(err, ErrRequestInProgress):
		return "I am still working on your previous request. Please wait until it has finished."
	case errors.As(err, &runErr):
		return fmt.Sprintf("I could not complete your request, the %s.", runErr.Error())
	default:
		return fmt.Sprintf("I have failed to complete your request: %v", err)
	}
}

// Cancel stops the active request and asks the service to cancel its run.
// Without an active request it does nothing.
func (o *Orchestrator) Cancel(ctx context.Context) {
	s := o.session
	s.mu.Lock()
	cancel, threadID, runID := s.cancelPoll, s.threadID, s.runID
	s.cancelPoll = nil
	s.mu.Unlock()

	if cancel == nil {
		log.Printf("[Orchestrator] Cancel ignored, no active request")
		return
	}

	s.timer.Stop()
	cancel()

	if runID != "" {
		log.Printf("[Orchestrator] Cancelling run thread_id=%s run_id=%s", threadID, runID)
		o.cancelUpstream(ctx, threadID, runID)
	}
}

// Terminate cancels any active request and deletes the remote thread and
// assistant definition. The session can be initialized again afterwards.
func (o *Orchestrator) Terminate(ctx context.Context) error {
	o.Cancel(ctx)

	o.initMu.Lock()
	defer o.initMu.Unlock()

	s := o.session
	s.mu.Lock()
	threadID, assistantID := s.threadID, s.assistantID
	s.threadID, s.assistantID, s.initialized = "", "", false
	s.mu.Unlock()

	var errs []error
	if threadID != "" {
		if err := o.service.DeleteThread(ctx, threadID); err != nil {
			log.Printf("[Orchestrator] DeleteThread failed thread_id=%s err=%v", threadID, err)
			errs = append(errs, fmt.Errorf("delete thread: %w", err))
		}
	}
	if assistantID != "" {
		if err := o.service.DeleteAssistant(ctx, assistantID); err != nil {
			log.Printf("[Orchestrator] DeleteAssistant failed assistant_id=%s err=%v", assistantID, err)
			errs = append(errs, fmt.Errorf("delete assistant: %w", err))
		}
	}

	log.Printf("[Orchestrator] Session terminated thread_id=%s assistant_id=%s", threadID, assistantID)
	return errors.Join(errs...)
}

// Declarations converts tool definitions to assistant function tools
func Declarations(defs []tools.Definition) []assistant.Tool {
	declared := make([]assistant.Tool, len(defs))
	for i, def := range defs {
		declared[i] = assistant.FunctionTool(string(def.Name), def.Description, def.Parameters)
	}
	return declared
}

package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"diagram-assistant/internal/assistant"
	"diagram-assistant/internal/tools"
)

// runState is the local reading of a remote run status
type runState int

const (
	// stateSettling covers queued, in_progress and cancelling: keep polling
	stateSettling runState = iota
	// stateRequiresAction means the run waits for tool outputs
	stateRequiresAction
	// stateRateLimited is a failed run whose error is a rate limit: back off and keep polling
	stateRateLimited
	// stateSucceeded covers completed and cancelled
	stateSucceeded
	// stateFailed covers failed, expired, incomplete and anything unrecognized
	stateFailed
)

func (s runState) String() string {
	switch s {
	case stateSettling:
		return "settling"
	case stateRequiresAction:
		return "requires_action"
	case stateRateLimited:
		return "rate_limited"
	case stateSucceeded:
		return "succeeded"
	default:
		return "failed"
	}
}

func classify(run *assistant.Run) runState {
	switch run.Status {
	case assistant.RunStatusQueued, assistant.RunStatusInProgress, assistant.RunStatusCancelling:
		return stateSettling
	case assistant.RunStatusRequiresAction:
		return stateRequiresAction
	case assistant.RunStatusCompleted, assistant.RunStatusCancelled:
		return stateSucceeded
	case assistant.RunStatusFailed:
		if run.IsRateLimited() {
			return stateRateLimited
		}
		return stateFailed
	default:
		return stateFailed
	}
}

// RunFailedError reports a run that ended in a non-successful status
type RunFailedError struct {
	Status assistant.RunStatus
	Detail *assistant.RunError
}

func (e *RunFailedError) Error() string {
	if e.Detail != nil && e.Detail.Message != "" {
		return fmt.Sprintf("run ended with status %s: %s", e.Status, e.Detail.Message)
	}
	return fmt.Sprintf("run ended with status %s", e.Status)
}

// waitForRun polls the run until it settles, answering tool calls on the way.
// The session timer is stopped on every return path.
func (o *Orchestrator) waitForRun(ctx context.Context, threadID, runID string) error {
	timer := &o.session.timer
	interval := o.opts.PollInterval
	start := time.Now()

	tick := timer.Start(interval)
	defer timer.Stop()

	log.Printf("[Poller] Polling started run_id=%s interval=%v timeout=%v", runID, interval, o.opts.Timeout)

	for {
		if ctx.Err() != nil {
			log.Printf("[Poller] Polling cancelled run_id=%s", runID)
			return ErrCancelled
		}

		select {
		case <-ctx.Done():
			log.Printf("[Poller] Polling cancelled run_id=%s", runID)
			return ErrCancelled
		case <-tick:
		}

		if elapsed := time.Since(start); elapsed >= o.opts.Timeout {
			timer.Stop()
			log.Printf("[Poller] Run timed out run_id=%s elapsed=%v", runID, elapsed)
			o.cancelUpstream(ctx, threadID, runID)
			return ErrTimeout
		}

		run, err := o.service.GetRun(ctx, threadID, runID)
		if err != nil {
			if ctx.Err() != nil {
				return ErrCancelled
			}
			log.Printf("[Poller] GetRun failed run_id=%s err=%v", runID, err)
			continue
		}

		state := classify(run)
		switch state {
		case stateSettling:
			log.Printf("[Poller] Run pending run_id=%s status=%s", runID, run.Status)

		case stateRequiresAction:
			timer.Stop()
			o.answerToolCalls(ctx, threadID, runID, run)
			tick = timer.Start(interval)

		case stateRateLimited:
			timer.Stop()
			backoff := time.Duration(o.opts.RateLimitBackoff) * interval
			log.Printf("[Poller] Rate limited run_id=%s backoff=%v", runID, backoff)
			if !sleep(ctx, backoff) {
				return ErrCancelled
			}
			tick = timer.Start(interval)

		case stateSucceeded:
			log.Printf("[Poller] Run finished run_id=%s status=%s", runID, run.Status)
			return nil

		default:
			log.Printf("[Poller] Run failed run_id=%s status=%s state=%s", runID, run.Status, state)
			return &RunFailedError{Status: run.Status, Detail: run.LastError}
		}
	}
}

// answerToolCalls executes a batch of tool calls and submits all outputs together
func (o *Orchestrator) answerToolCalls(ctx context.Context, threadID, runID string, run *assistant.Run) {
	calls := run.PendingToolCalls()
	if len(calls) == 0 {
		log.Printf("[Poller] Run requires action without tool calls run_id=%s", runID)
		return
	}

	outputs := make([]assistant.ToolOutput, 0, len(calls))
	for _, call := range calls {
		result := o.executeToolCall(ctx, call)
		outputs = append(outputs, assistant.ToolOutput{ToolCallID: call.ID, Output: result.String()})
	}

	if _, err := o.service.SubmitToolOutputs(ctx, threadID, runID, outputs); err != nil {
		log.Printf("[Poller] SubmitToolOutputs failed run_id=%s count=%d err=%v", runID, len(outputs), err)
		return
	}
	log.Printf("[Poller] Tool outputs submitted run_id=%s count=%d", runID, len(outputs))
}

func (o *Orchestrator) executeToolCall(ctx context.Context, call assistant.ToolCall) (result tools.Result) {
	name := call.Function.Name

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Poller] Tool call panicked call_id=%s name=%s panic=%v", call.ID, name, r)
			result = tools.ErrorResult("%s failed: %v", name, r)
		}
	}()

	args := json.RawMessage(call.Function.Arguments)
	if len(args) > 0 && !json.Valid(args) {
		log.Printf("[Poller] Tool call arguments are not JSON call_id=%s name=%s", call.ID, name)
		return tools.ErrorResult("arguments of %s are not valid JSON", name)
	}

	result, err := o.tools.Handle(ctx, name, args)
	if err != nil {
		log.Printf("[Poller] Tool call failed call_id=%s name=%s err=%v", call.ID, name, err)
		return tools.ErrorResult("%s failed: %v", name, err)
	}
	return result
}

// cancelUpstream asks the service to cancel the run, ignoring the caller's cancellation
func (o *Orchestrator) cancelUpstream(ctx context.Context, threadID, runID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelTimeout)
	defer cancel()

	if err := o.service.CancelRun(ctx, threadID, runID); err != nil {
		log.Printf("[Poller] CancelRun failed run_id=%s err=%v", runID, err)
		return
	}
	log.Printf("[Poller] CancelRun requested run_id=%s", runID)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

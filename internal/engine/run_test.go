package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"testing"
	"time"
)

// scriptedLLM replays a fixed sequence of responses; extra calls keep
// returning the last one.
type scriptedLLM struct {
	responses []LLMResponse
	calls     int
	err       error
}

func (s *scriptedLLM) Chat(_ context.Context, _ string, _ []ChatMessage, _ []ToolSchema, _ ChatOptions) (LLMResponse, error) {
	if s.err != nil {
		return LLMResponse{}, s.err
	}
	idx := s.calls
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	s.calls++
	return s.responses[idx], nil
}

func (s *scriptedLLM) Stream(ctx context.Context, model string, msgs []ChatMessage, schemas []ToolSchema, opts ChatOptions) (<-chan StreamEvent, <-chan error) {
	events := make(chan StreamEvent, 8)
	errs := make(chan error, 1)
	go func() {
		defer close(events)
		defer close(errs)
		resp, err := s.Chat(ctx, model, msgs, schemas, opts)
		if err != nil {
			errs <- err
			return
		}
		if resp.Assistant.Content != "" {
			events <- StreamEvent{Type: "text_delta", Text: resp.Assistant.Content}
		}
		for _, tc := range resp.ToolCalls {
			events <- StreamEvent{Type: "tool_call", ToolCall: tc}
		}
		events <- StreamEvent{Type: "usage", Usage: resp.Usage}
	}()
	return events, errs
}

func answer(text string) LLMResponse {
	return LLMResponse{
		Assistant:    ChatMessage{Role: RoleAssistant, Content: text},
		FinishReason: "stop",
	}
}

func callTool(id, name string, args map[string]any) LLMResponse {
	return LLMResponse{
		Assistant:    ChatMessage{Role: RoleAssistant},
		ToolCalls:    []ToolCall{{ID: id, Name: name, Args: args}},
		FinishReason: "tool_calls",
	}
}

func noRetries() *RetryConfig {
	return &RetryConfig{}
}

func newTestState(maxSteps, maxErrors int) *State {
	return &State{
		Task:      NewTask("test task"),
		History:   []ChatMessage{{Role: RoleUser, Content: "test task"}},
		Model:     "test-model",
		MaxSteps:  maxSteps,
		MaxErrors: maxErrors,
	}
}

func TestRunFinalAnswerImmediately(t *testing.T) {
	llm := &scriptedLLM{responses: []LLMResponse{answer("all done")}}
	st := newTestState(10, 5)

	err := Run(context.Background(), llm, NewRegistry(), st, Hooks{}, ChatOptions{RetryConfig: noRetries()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.Task.Status != TaskSucceeded {
		t.Errorf("status = %s, want succeeded", st.Task.Status)
	}
	if st.Step != 1 {
		t.Errorf("steps = %d, want 1", st.Step)
	}
	if st.FinalAnswer != "all done" {
		t.Errorf("final answer = %q", st.FinalAnswer)
	}
}

func TestRunToolThenAnswer(t *testing.T) {
	// The canonical two-step task: one tool call, then a final answer.
	var wrote string
	reg := NewRegistry()
	reg.MustRegister(Tool{
		Name:        "write_file",
		Description: "write a file",
		SchemaJSON:  `{"type":"object","properties":{"path":{"type":"string"},"content":{"type":"string"}},"required":["path","content"]}`,
		Destructive: true,
		Fn: func(_ context.Context, args map[string]any) (string, error) {
			wrote = args["content"].(string)
			return `{"status":"ok"}`, nil
		},
	})

	llm := &scriptedLLM{responses: []LLMResponse{
		callTool("c1", "write_file", map[string]any{"path": "hello.txt", "content": "hello"}),
		answer("created hello.txt"),
	}}
	st := newTestState(10, 5)

	if err := Run(context.Background(), llm, reg, st, Hooks{}, ChatOptions{RetryConfig: noRetries()}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.Task.Status != TaskSucceeded {
		t.Fatalf("status = %s, want succeeded", st.Task.Status)
	}
	if st.Step != 2 {
		t.Errorf("steps = %d, want exactly 2", st.Step)
	}
	if wrote != "hello" {
		t.Errorf("tool did not run: wrote = %q", wrote)
	}
	if st.ErrorCount != 0 {
		t.Errorf("error count = %d, want 0", st.ErrorCount)
	}
	// step records are gapless 1..k with one result per call
	if len(st.Steps) != 2 {
		t.Fatalf("records = %d, want 2", len(st.Steps))
	}
	for i, rec := range st.Steps {
		if rec.Seq != i+1 {
			t.Errorf("record %d Seq = %d, want %d", i, rec.Seq, i+1)
		}
		if len(rec.Calls) != len(rec.Results) {
			t.Errorf("record %d: %d calls but %d results", i, len(rec.Calls), len(rec.Results))
		}
	}
}

func TestRunStepLimit(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(Tool{
		Name:        "spin",
		Description: "does nothing",
		SchemaJSON:  `{"type":"object"}`,
		Fn:          func(_ context.Context, _ map[string]any) (string, error) { return "ok", nil },
		Retryable:   true,
	})

	llm := &scriptedLLM{responses: []LLMResponse{
		callTool("c", "spin", map[string]any{}),
	}}
	st := newTestState(3, 0)

	if err := Run(context.Background(), llm, reg, st, Hooks{}, ChatOptions{RetryConfig: noRetries()}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.Task.Status != TaskAborted {
		t.Fatalf("status = %s, want aborted", st.Task.Status)
	}
	if st.Task.Reason != AbortStepLimit {
		t.Errorf("reason = %q, want %q", st.Task.Reason, AbortStepLimit)
	}
	if st.Step != 3 {
		t.Errorf("steps = %d, want exactly MaxSteps=3", st.Step)
	}
}

func TestRunErrorLimit(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(failingTool("broken"))

	llm := &scriptedLLM{responses: []LLMResponse{
		callTool("c", "broken", map[string]any{}),
	}}
	st := newTestState(100, 3)

	if err := Run(context.Background(), llm, reg, st, Hooks{}, ChatOptions{RetryConfig: noRetries()}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.Task.Status != TaskAborted {
		t.Fatalf("status = %s, want aborted", st.Task.Status)
	}
	if st.Task.Reason != AbortErrorLimit {
		t.Errorf("reason = %q, want %q", st.Task.Reason, AbortErrorLimit)
	}
	// one failure per step: exactly MaxErrors steps before aborting
	if st.Step != 3 {
		t.Errorf("steps = %d, want exactly 3", st.Step)
	}
	if st.ErrorCount != 3 {
		t.Errorf("error count = %d, want 3", st.ErrorCount)
	}
}

func TestRunFinalAnswerBeatsBudgets(t *testing.T) {
	// A final answer on the very step that exhausts the budget still wins.
	llm := &scriptedLLM{responses: []LLMResponse{answer("done")}}
	st := newTestState(1, 1)

	if err := Run(context.Background(), llm, NewRegistry(), st, Hooks{}, ChatOptions{RetryConfig: noRetries()}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.Task.Status != TaskSucceeded {
		t.Errorf("status = %s, want succeeded", st.Task.Status)
	}
}

func TestRunUnknownToolIsRecoverable(t *testing.T) {
	llm := &scriptedLLM{responses: []LLMResponse{
		callTool("c1", "does_not_exist", map[string]any{}),
		answer("gave up on that tool"),
	}}
	st := newTestState(10, 5)

	if err := Run(context.Background(), llm, NewRegistry(), st, Hooks{}, ChatOptions{RetryConfig: noRetries()}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.Task.Status != TaskSucceeded {
		t.Fatalf("status = %s, want succeeded (unknown tool must not crash the loop)", st.Task.Status)
	}
	if st.ErrorCount != 1 {
		t.Errorf("error count = %d, want 1", st.ErrorCount)
	}
	// the failure must be visible to the model as a tool message
	found := false
	for _, m := range st.History {
		if m.Role == RoleTool && m.Name == "c1" {
			found = true
		}
	}
	if !found {
		t.Error("no tool message recorded for the failed call")
	}
}

func TestRunBackendFailure(t *testing.T) {
	llm := &scriptedLLM{err: errors.New("401 unauthorized")}
	st := newTestState(10, 5)

	err := Run(context.Background(), llm, NewRegistry(), st, Hooks{}, ChatOptions{RetryConfig: noRetries()})
	if err == nil {
		t.Fatal("expected error for unreachable backend")
	}
	var backendErr *BackendError
	if !errors.As(err, &backendErr) {
		t.Errorf("expected BackendError in chain, got %v", err)
	}
	if st.Task.Status != TaskFailed {
		t.Errorf("status = %s, want failed", st.Task.Status)
	}
}

func TestRunCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	llm := &scriptedLLM{responses: []LLMResponse{answer("never reached")}}
	st := newTestState(10, 5)

	err := Run(ctx, llm, NewRegistry(), st, Hooks{}, ChatOptions{RetryConfig: noRetries()})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if st.Task.Status != TaskFailed {
		t.Errorf("status = %s, want failed", st.Task.Status)
	}
}

func TestRunRespondToolFinishes(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(Tool{
		Name:        "respond",
		Description: "signal completion",
		SchemaJSON:  `{"type":"object","properties":{"summary":{"type":"string"}},"required":["summary"]}`,
		Retryable:   true,
		Fn: func(_ context.Context, args map[string]any) (string, error) {
			return fmt.Sprintf(`{"status":"complete","summary":%q}`, args["summary"]), nil
		},
	})

	llm := &scriptedLLM{responses: []LLMResponse{
		callTool("c1", "respond", map[string]any{"summary": "all wrapped up"}),
	}}
	st := newTestState(10, 5)

	if err := Run(context.Background(), llm, reg, st, Hooks{}, ChatOptions{RetryConfig: noRetries()}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.Task.Status != TaskSucceeded {
		t.Fatalf("status = %s, want succeeded", st.Task.Status)
	}
	if st.Step != 1 {
		t.Errorf("steps = %d, want 1", st.Step)
	}
}

func TestRunApprovalDenied(t *testing.T) {
	reg := NewRegistry()
	ran := false
	reg.MustRegister(Tool{
		Name:        "delete_file",
		Description: "delete a file",
		SchemaJSON:  `{"type":"object","properties":{"path":{"type":"string"}},"required":["path"]}`,
		Destructive: true,
		Fn: func(_ context.Context, _ map[string]any) (string, error) {
			ran = true
			return "deleted", nil
		},
	})

	llm := &scriptedLLM{responses: []LLMResponse{
		callTool("c1", "delete_file", map[string]any{"path": "precious.txt"}),
		answer("ok, leaving it alone"),
	}}
	st := newTestState(10, 5)
	st.Gate = &ApprovalGate{Mode: ApprovalOnDestructive, Approver: AutoApprover{Decision: false}}

	if err := Run(context.Background(), llm, reg, st, Hooks{}, ChatOptions{RetryConfig: noRetries()}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ran {
		t.Error("denied destructive tool still executed")
	}
	if st.ErrorCount != 1 {
		t.Errorf("error count = %d, want 1 (denial is a failed result)", st.ErrorCount)
	}
	if st.Task.Status != TaskSucceeded {
		t.Errorf("status = %s, want succeeded", st.Task.Status)
	}
}

func TestRunStreamToolThenAnswer(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(echoTool())

	llm := &scriptedLLM{responses: []LLMResponse{
		callTool("c1", "echo", map[string]any{"text": "ping"}),
		answer("pong"),
	}}
	st := newTestState(10, 5)

	if err := RunStream(context.Background(), llm, reg, st, Hooks{}, ChatOptions{RetryConfig: noRetries()}); err != nil {
		t.Fatalf("RunStream: %v", err)
	}
	if st.Task.Status != TaskSucceeded {
		t.Fatalf("status = %s, want succeeded", st.Task.Status)
	}
	if st.Step != 2 {
		t.Errorf("steps = %d, want 2", st.Step)
	}
	if st.FinalAnswer != "pong" {
		t.Errorf("final answer = %q, want pong", st.FinalAnswer)
	}
}

// flakyStreamLLM fails the first n stream attempts with err, then
// delegates to the wrapped client.
type flakyStreamLLM struct {
	inner    *scriptedLLM
	failures int
	attempts int
	err      error
}

func (f *flakyStreamLLM) Chat(ctx context.Context, model string, msgs []ChatMessage, schemas []ToolSchema, opts ChatOptions) (LLMResponse, error) {
	return f.inner.Chat(ctx, model, msgs, schemas, opts)
}

func (f *flakyStreamLLM) Stream(ctx context.Context, model string, msgs []ChatMessage, schemas []ToolSchema, opts ChatOptions) (<-chan StreamEvent, <-chan error) {
	f.attempts++
	if f.attempts <= f.failures {
		events := make(chan StreamEvent)
		errs := make(chan error, 1)
		close(events)
		errs <- f.err
		close(errs)
		return events, errs
	}
	return f.inner.Stream(ctx, model, msgs, schemas, opts)
}

func fastRetries() *RetryConfig {
	policy := RetryPolicy{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
	return &RetryConfig{LLMPolicy: policy, ToolPolicy: policy}
}

func TestRunStreamRetriesTransientBackendError(t *testing.T) {
	// A 503 on one stream attempt is retried under the LLM policy, same
	// as the synchronous path; only exhaustion fails the task.
	reg := NewRegistry()
	reg.MustRegister(echoTool())

	inner := &scriptedLLM{responses: []LLMResponse{
		callTool("c1", "echo", map[string]any{"text": "ping"}),
		answer("pong"),
	}}
	llm := &flakyStreamLLM{inner: inner, failures: 1, err: errors.New("503 service unavailable")}
	st := newTestState(10, 5)

	if err := RunStream(context.Background(), llm, reg, st, Hooks{}, ChatOptions{RetryConfig: fastRetries()}); err != nil {
		t.Fatalf("transient backend error not retried: %v", err)
	}
	if st.Task.Status != TaskSucceeded {
		t.Fatalf("status = %s, want succeeded", st.Task.Status)
	}
	if st.FinalAnswer != "pong" {
		t.Errorf("final answer = %q, want pong", st.FinalAnswer)
	}
	if st.Retries != 1 {
		t.Errorf("retries = %d, want 1", st.Retries)
	}
}

func TestRunStreamNonRetryableBackendError(t *testing.T) {
	inner := &scriptedLLM{responses: []LLMResponse{answer("never reached")}}
	llm := &flakyStreamLLM{inner: inner, failures: 99, err: errors.New("401 unauthorized")}
	st := newTestState(10, 5)

	err := RunStream(context.Background(), llm, NewRegistry(), st, Hooks{}, ChatOptions{RetryConfig: fastRetries()})
	if err == nil {
		t.Fatal("expected error for auth failure")
	}
	var backendErr *BackendError
	if !errors.As(err, &backendErr) {
		t.Errorf("expected BackendError in chain, got %v", err)
	}
	if llm.attempts != 1 {
		t.Errorf("auth failure retried %d times, want a single attempt", llm.attempts)
	}
	if st.Task.Status != TaskFailed {
		t.Errorf("status = %s, want failed", st.Task.Status)
	}
}

func TestRunCountsRetriesOnce(t *testing.T) {
	// The engine owns the retry counter; hooks only observe. Stacking
	// hooks must not multiply the count.
	attempts := 0
	reg := NewRegistry()
	reg.MustRegister(Tool{
		Name:        "flaky",
		Description: "fails on the first attempt",
		SchemaJSON:  `{"type":"object"}`,
		Retryable:   true,
		Fn: func(_ context.Context, _ map[string]any) (string, error) {
			attempts++
			if attempts == 1 {
				return "", errors.New("temporary glitch")
			}
			return "ok", nil
		},
	})

	llm := &scriptedLLM{responses: []LLMResponse{
		callTool("c1", "flaky", map[string]any{}),
		answer("done"),
	}}
	st := newTestState(10, 5)
	quiet := log.New(io.Discard, "", 0)
	hooks := Hooks{LoggerHook{L: quiet}, LoggerHook{L: quiet}}

	if err := Run(context.Background(), llm, reg, st, hooks, ChatOptions{RetryConfig: fastRetries()}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.Retries != 1 {
		t.Errorf("retries = %d, want exactly 1 (one per attempt, not per hook)", st.Retries)
	}
	if st.ErrorCount != 0 {
		t.Errorf("error count = %d, want 0 (retried call succeeded)", st.ErrorCount)
	}
}

// serialApprover flags overlapping Approve calls.
type serialApprover struct {
	inFlight int32
	overlap  int32
	seen     int32
}

func (a *serialApprover) Approve(_ context.Context, _ ToolCall) (bool, error) {
	if atomic.AddInt32(&a.inFlight, 1) > 1 {
		atomic.StoreInt32(&a.overlap, 1)
	}
	time.Sleep(2 * time.Millisecond)
	atomic.AddInt32(&a.inFlight, -1)
	atomic.AddInt32(&a.seen, 1)
	return true, nil
}

func TestRunApprovalPromptsSerialized(t *testing.T) {
	// Interactive approvers read the terminal: two destructive calls in
	// one decision must prompt one after the other, never concurrently.
	reg := NewRegistry()
	reg.MustRegister(Tool{
		Name:        "zap",
		Description: "destructive no-op",
		SchemaJSON:  `{"type":"object"}`,
		Destructive: true,
		Fn:          func(_ context.Context, _ map[string]any) (string, error) { return "ok", nil },
	})

	llm := &scriptedLLM{responses: []LLMResponse{
		{
			Assistant: ChatMessage{Role: RoleAssistant},
			ToolCalls: []ToolCall{
				{ID: "c1", Name: "zap", Args: map[string]any{}},
				{ID: "c2", Name: "zap", Args: map[string]any{}},
			},
			FinishReason: "tool_calls",
		},
		answer("done"),
	}}
	approver := &serialApprover{}
	st := newTestState(10, 5)
	st.Gate = &ApprovalGate{Mode: ApprovalOnDestructive, Approver: approver}

	if err := Run(context.Background(), llm, reg, st, Hooks{}, ChatOptions{RetryConfig: noRetries()}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if atomic.LoadInt32(&approver.overlap) != 0 {
		t.Error("approval prompts overlapped")
	}
	if n := atomic.LoadInt32(&approver.seen); n != 2 {
		t.Errorf("approver consulted %d times, want 2", n)
	}
	if st.ErrorCount != 0 {
		t.Errorf("error count = %d, want 0", st.ErrorCount)
	}
	if st.Task.Status != TaskSucceeded {
		t.Errorf("status = %s, want succeeded", st.Task.Status)
	}
}

func TestStateReset(t *testing.T) {
	st := newTestState(10, 5)
	st.Step = 4
	st.ErrorCount = 2
	st.Done = true
	st.FinalAnswer = "old"
	st.Steps = []StepRecord{{Seq: 1}}

	task := NewTask("fresh")
	st.Reset(task)

	if st.Step != 0 || st.ErrorCount != 0 || st.Done || st.FinalAnswer != "" || len(st.Steps) != 0 || len(st.History) != 0 {
		t.Errorf("Reset left residue: %+v", st)
	}
	if st.MaxSteps != 10 || st.MaxErrors != 5 {
		t.Errorf("Reset clobbered budgets")
	}
	if st.Task != task {
		t.Errorf("Reset did not install the new task")
	}
}

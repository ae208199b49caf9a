package engine

import (
	"context"
	"time"
)

type Event struct {
	Kind string // "step_start", "delta", "tool_start", "tool_output", "tool_done", "approval", "done", "abort", "retry_attempt", "retry_exhausted"
	Data any
}

// EventHook bridges engine → UI channel.
type EventHook struct{ Ch chan<- Event }

func (h EventHook) OnStepStart(_ context.Context, st *State) {
	h.Ch <- Event{Kind: "step_start", Data: st.Step + 1}
}
func (h EventHook) OnBeforeLLM(_ context.Context, _ *State, m []ChatMessage, schemas []ToolSchema) {
	h.Ch <- Event{Kind: "before_llm", Data: map[string]any{"messages": len(m), "tools": len(schemas)}}
}
func (h EventHook) OnAfterLLM(_ context.Context, _ *State, r LLMResponse) {
	h.Ch <- Event{Kind: "after_llm", Data: r.FinishReason}
}
func (h EventHook) OnStreamDelta(_ context.Context, _ *State, d string) {
	h.Ch <- Event{Kind: "delta", Data: d}
}
func (h EventHook) OnToolCall(_ context.Context, _ *State, c ToolCall) {
	h.Ch <- Event{Kind: "tool_start", Data: c.Name}
}
func (h EventHook) OnToolResult(_ context.Context, _ *State, c ToolCall, res ToolResult) {
	h.Ch <- Event{Kind: "tool_done", Data: map[string]any{"tool": c.Name, "success": res.Success}}
}
func (h EventHook) OnToolOutput(_ context.Context, _ *State, toolName string, output string) {
	h.Ch <- Event{Kind: "tool_output", Data: map[string]string{"tool": toolName, "output": output}}
}
func (h EventHook) OnApproval(_ context.Context, _ *State, c ToolCall, approved bool) {
	h.Ch <- Event{Kind: "approval", Data: map[string]any{"tool": c.Name, "approved": approved}}
}
func (h EventHook) OnHistoryChanged(_ context.Context, st *State) {
	h.Ch <- Event{Kind: "history_changed", Data: len(st.History)}
}
func (h EventHook) OnDone(_ context.Context, st *State) {
	h.Ch <- Event{Kind: "done", Data: st.FinalAnswer}
}
func (h EventHook) OnAbort(_ context.Context, _ *State, reason string) {
	h.Ch <- Event{Kind: "abort", Data: reason}
}
func (h EventHook) OnRetryAttempt(_ context.Context, _ *State, attempt int, maxAttempts int, delay time.Duration, err error) {
	h.Ch <- Event{Kind: "retry_attempt", Data: map[string]any{
		"attempt":     attempt,
		"maxAttempts": maxAttempts,
		"delay":       delay,
		"error":       err.Error(),
	}}
}
func (h EventHook) OnRetryExhausted(_ context.Context, _ *State, err error) {
	h.Ch <- Event{Kind: "retry_exhausted", Data: err.Error()}
}

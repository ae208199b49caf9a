// engine/hook_logger.go
package engine

import (
	"context"
	"log"
	"time"
)

type LoggerHook struct{ L *log.Logger }

func (h LoggerHook) OnStepStart(_ context.Context, st *State) {
	h.L.Printf("step=%d errors=%d/%d", st.Step+1, st.ErrorCount, st.MaxErrors)
}
func (h LoggerHook) OnBeforeLLM(_ context.Context, st *State, msgs []ChatMessage, toolSchemas []ToolSchema) {
	h.L.Printf("step=%d: sending %d msgs, %d tools (cumulative tokens=%d)",
		st.Step+1, len(msgs), len(toolSchemas), st.Totals.Total)
}
func (h LoggerHook) OnAfterLLM(_ context.Context, st *State, r LLMResponse) {
	h.L.Printf("finish=%s tokens: prompt=%d completion=%d total=%d (cumulative=%d)",
		r.FinishReason, r.Usage.Prompt, r.Usage.Completion, r.Usage.Total, st.Totals.Total)
}
func (h LoggerHook) OnToolCall(_ context.Context, _ *State, c ToolCall) {
	h.L.Printf("tool → %s args=%v", c.Name, c.Args)
}
func (h LoggerHook) OnToolResult(_ context.Context, _ *State, c ToolCall, res ToolResult) {
	if !res.Success {
		h.L.Printf("tool %s failed: %s", c.Name, res.Error)
		return
	}
	preview := res.Content
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	h.L.Printf("tool %s ok (%v): %s", c.Name, res.Duration.Round(time.Millisecond), preview)
}
func (h LoggerHook) OnToolOutput(_ context.Context, _ *State, toolName string, output string) {
	preview := output
	if len(preview) > 200 {
		preview = preview[:200] + "..."
	}
	h.L.Printf("tool %s output: %s", toolName, preview)
}
func (h LoggerHook) OnApproval(_ context.Context, _ *State, c ToolCall, approved bool) {
	h.L.Printf("approval %s: approved=%t", c.Name, approved)
}
func (h LoggerHook) OnStreamDelta(_ context.Context, _ *State, _ string) {}
func (h LoggerHook) OnDone(_ context.Context, st *State) {
	h.L.Printf("done: steps=%d errors=%d tokens=%d", st.Step, st.ErrorCount, st.Totals.Total)
}
func (h LoggerHook) OnAbort(_ context.Context, st *State, reason string) {
	h.L.Printf("aborted (%s): steps=%d errors=%d", reason, st.Step, st.ErrorCount)
}
func (h LoggerHook) OnHistoryChanged(_ context.Context, _ *State) {}
func (h LoggerHook) OnRetryAttempt(_ context.Context, _ *State, attempt int, maxAttempts int, delay time.Duration, err error) {
	h.L.Printf("retry attempt=%d/%d delay=%v error=%v", attempt, maxAttempts, delay, err)
}
func (h LoggerHook) OnRetryExhausted(_ context.Context, _ *State, err error) {
	h.L.Printf("retries exhausted: %v", err)
}

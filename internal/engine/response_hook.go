package engine

import (
	"context"
	"fmt"
	"os"
	"time"
)

// ResponseHook prints assistant output to stdout.
// This is the display surface for REPL/interactive mode.
type ResponseHook struct {
	Writer *os.File // Defaults to os.Stdout
}

// NewResponseHook creates a new response hook that prints to stdout.
func NewResponseHook() *ResponseHook {
	return &ResponseHook{Writer: os.Stdout}
}

func (h *ResponseHook) OnStepStart(context.Context, *State)                              {}
func (h *ResponseHook) OnBeforeLLM(context.Context, *State, []ChatMessage, []ToolSchema) {}
func (h *ResponseHook) OnToolCall(context.Context, *State, ToolCall)                     {}
func (h *ResponseHook) OnToolResult(context.Context, *State, ToolCall, ToolResult)       {}
func (h *ResponseHook) OnToolOutput(context.Context, *State, string, string)             {}
func (h *ResponseHook) OnApproval(context.Context, *State, ToolCall, bool)               {}
func (h *ResponseHook) OnHistoryChanged(context.Context, *State)                         {}

// OnStreamDelta prints streaming text deltas incrementally to stdout.
func (h *ResponseHook) OnStreamDelta(_ context.Context, _ *State, delta string) {
	fmt.Fprint(h.Writer, delta)
}

// OnAfterLLM prints the assistant's response when it's a final answer (no tool calls).
func (h *ResponseHook) OnAfterLLM(_ context.Context, _ *State, resp LLMResponse) {
	if len(resp.ToolCalls) == 0 {
		content := resp.Assistant.Content
		if content != "" && content != " " {
			fmt.Fprintf(h.Writer, "assistant> %s\n", content)
		}
	}
}

// OnAbort prints why the loop gave up.
func (h *ResponseHook) OnAbort(_ context.Context, st *State, reason string) {
	fmt.Fprintf(h.Writer, "task aborted: %s (steps=%d errors=%d)\n", reason, st.Step, st.ErrorCount)
}

func (h *ResponseHook) OnDone(context.Context, *State)                                         {}
func (h *ResponseHook) OnRetryAttempt(context.Context, *State, int, int, time.Duration, error) {}
func (h *ResponseHook) OnRetryExhausted(context.Context, *State, error)                        {}

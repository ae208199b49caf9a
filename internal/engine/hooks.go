// engine/hooks.go
package engine

import (
	"context"
	"time"
)

type Hook interface {
	OnStepStart(ctx context.Context, st *State)
	OnBeforeLLM(ctx context.Context, st *State, messages []ChatMessage, toolSchemas []ToolSchema)
	OnAfterLLM(ctx context.Context, st *State, resp LLMResponse)
	OnToolCall(ctx context.Context, st *State, call ToolCall)
	OnToolResult(ctx context.Context, st *State, call ToolCall, res ToolResult)
	OnToolOutput(ctx context.Context, st *State, toolName string, output string)
	OnApproval(ctx context.Context, st *State, call ToolCall, approved bool)
	OnHistoryChanged(ctx context.Context, st *State)
	OnStreamDelta(ctx context.Context, st *State, delta string) // for streaming
	OnDone(ctx context.Context, st *State)
	OnAbort(ctx context.Context, st *State, reason string)
	// Retry hooks
	OnRetryAttempt(ctx context.Context, st *State, attempt int, maxAttempts int, delay time.Duration, err error)
	OnRetryExhausted(ctx context.Context, st *State, err error)
}

// NopHook lets you implement only the hooks you need.
type NopHook struct{}

func (NopHook) OnStepStart(context.Context, *State)                                    {}
func (NopHook) OnBeforeLLM(context.Context, *State, []ChatMessage, []ToolSchema)       {}
func (NopHook) OnAfterLLM(context.Context, *State, LLMResponse)                        {}
func (NopHook) OnToolCall(context.Context, *State, ToolCall)                           {}
func (NopHook) OnToolResult(context.Context, *State, ToolCall, ToolResult)             {}
func (NopHook) OnToolOutput(context.Context, *State, string, string)                   {}
func (NopHook) OnApproval(context.Context, *State, ToolCall, bool)                     {}
func (NopHook) OnHistoryChanged(context.Context, *State)                               {}
func (NopHook) OnStreamDelta(context.Context, *State, string)                          {}
func (NopHook) OnDone(context.Context, *State)                                         {}
func (NopHook) OnAbort(context.Context, *State, string)                                {}
func (NopHook) OnRetryAttempt(context.Context, *State, int, int, time.Duration, error) {}
func (NopHook) OnRetryExhausted(context.Context, *State, error)                        {}

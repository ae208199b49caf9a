package engine

import (
	"context"
	"fmt"
	"time"
)

// MessageRole represents the role of a chat message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// ChatMessage is the provider-agnostic message we pass around.
type ChatMessage struct {
	Role    MessageRole // Role of the message sender
	Content string      // Message content
	Name    string      // Optional: tool call ID for tool messages
	// ToolCalls stores the actual tool calls made by this assistant message.
	// Providers require tool_calls to be present in assistant messages when
	// converting back to their wire format.
	ToolCalls []ToolCall
}

// Validate checks if the ChatMessage is valid.
func (m ChatMessage) Validate() error {
	switch m.Role {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
	default:
		return fmt.Errorf("invalid message role: %s", m.Role)
	}
	if m.Role == RoleTool && m.Name == "" {
		return fmt.Errorf("tool messages must have a Name field")
	}
	return nil
}

// Usage holds token accounting returned by providers.
type Usage struct {
	Prompt     int
	Completion int
	Total      int
}

// ToolCall represents a function/tool the assistant requested.
type ToolCall struct {
	ID    string // Provider-specific tool call ID (e.g., OpenAI's call_xxx)
	Name  string
	Args  map[string]any
	Error string // Set by provider if the call arrived incomplete (e.g., stream ended prematurely)
}

// ToolResult is the immutable record of one tool call's outcome.
// Failed results are data fed back to the model, not control flow.
type ToolResult struct {
	CallID       string
	Name         string
	Success      bool
	Content      string
	Error        string
	FilesTouched []string
	Duration     time.Duration
}

// Message renders the result as the content of a role=tool message.
func (r ToolResult) Message() string {
	if r.Success {
		return r.Content
	}
	return "ERROR: " + r.Error
}

// LLMResponse is a normalized result of one chat call.
type LLMResponse struct {
	Assistant    ChatMessage
	ToolCalls    []ToolCall // zero or more tool calls requested by the model
	Usage        Usage
	FinishReason string // "stop" | "length" | "tool_calls" | "content_filter" | "tool_error"
}

// LLMClient abstracts the chosen SDK (OpenAI, Anthropic, etc.)
type LLMClient interface {
	Chat(ctx context.Context, model string, messages []ChatMessage, toolSchemas []ToolSchema, opts ChatOptions) (LLMResponse, error)
	Stream(ctx context.Context, model string, messages []ChatMessage, toolSchemas []ToolSchema, opts ChatOptions) (<-chan StreamEvent, <-chan error)
}

// ChatOptions keeps knobs forwarded to the SDK.
type ChatOptions struct {
	Temperature     float32
	MaxOutputTokens int
	RetryConfig     *RetryConfig // Optional retry configuration (nil = use defaults)
	Stream          bool         // Enable streaming mode (default: false, opt-in)
}

// ToolSchema is the JSON schema the provider expects for function calling.
type ToolSchema struct {
	Name        string
	Description string
	JSONSchema  string // raw JSON string
	Retryable   bool
}

// StreamEvent represents a streaming event from the LLM.
type StreamEvent struct {
	Type       string   // "text_delta" | "tool_call" | "tool_result" | "usage"
	Text       string   // for text_delta
	ToolCall   ToolCall // for tool_call
	ToolCallID string   // for tool_result (ID of the tool call this result belongs to)
	Content    string   // for tool_result
	Usage      Usage    // for usage
}

// ToolStreamer allows tools to stream output back to the engine.
type ToolStreamer interface {
	Stream(output string)
}

// ExecutionResult is the standard format for execution tool results.
// All execution tools (run_cmd, run_tests, run_build) return JSON that
// unmarshals to this structure, so callers never couple to tool internals.
type ExecutionResult struct {
	Cmd             string `json:"cmd"`
	ExitCode        int    `json:"exit_code"`
	Stdout          string `json:"stdout"`
	Stderr          string `json:"stderr"`
	TimedOut        bool   `json:"timed_out,omitempty"`
	Status          string `json:"status,omitempty"` // "ok", "failed", "unavailable"
	Reason          string `json:"reason,omitempty"`
	Passed          *bool  `json:"passed,omitempty"`
	StdoutTruncated bool   `json:"stdout_truncated,omitempty"`
	StderrTruncated bool   `json:"stderr_truncated,omitempty"`
}

package providers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	anthropic "github.com/liushuangls/go-anthropic/v2"
	openai "github.com/meguminnnnnnnnn/go-openai"

	"otto/internal/engine"
)

// toOpenAIMessages converts engine history to the OpenAI wire shape. The
// system message is hoisted to the front. Tool messages that do not follow
// an assistant message with tool calls are dropped: the API rejects them.
func toOpenAIMessages(messages []engine.ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	var system string
	var pendingToolResults bool

	for _, msg := range messages {
		switch msg.Role {
		case engine.RoleSystem:
			system = msg.Content
			pendingToolResults = false
		case engine.RoleUser:
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: msg.Content,
			})
			pendingToolResults = false
		case engine.RoleAssistant:
			content := msg.Content
			if content == "" {
				// The SDK serializes "" as null, which the API rejects.
				content = " "
			}
			var calls []openai.ToolCall
			for _, tc := range msg.ToolCalls {
				args, _ := json.Marshal(tc.Args)
				calls = append(calls, openai.ToolCall{
					ID:   tc.ID,
					Type: "function",
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(args),
					},
				})
			}
			out = append(out, openai.ChatCompletionMessage{
				Role:      openai.ChatMessageRoleAssistant,
				Content:   content,
				ToolCalls: calls,
			})
			pendingToolResults = len(calls) > 0
		case engine.RoleTool:
			if !pendingToolResults {
				continue
			}
			content := msg.Content
			if content == "" {
				content = "{}"
			}
			// msg.Name carries the tool call ID, not the tool name.
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: msg.Name,
				Content:    content,
			})
		}
	}

	if system != "" {
		out = append([]openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		}}, out...)
	}
	return out
}

func toOpenAITools(schemas []engine.ToolSchema) ([]openai.Tool, error) {
	var tools []openai.Tool
	for _, ts := range schemas {
		var schemaObj map[string]any
		if err := json.Unmarshal([]byte(ts.JSONSchema), &schemaObj); err != nil {
			return nil, fmt.Errorf("invalid tool schema JSON for %s: %w", ts.Name, err)
		}
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        ts.Name,
				Description: ts.Description,
				Parameters:  schemaObj,
			},
		})
	}
	return tools, nil
}

// toAnthropicMessages converts engine history to the Anthropic shape.
// System messages go to a separate block, and tool results are sent as
// user messages carrying tool_result content.
func toAnthropicMessages(messages []engine.ChatMessage) ([]anthropic.MessageSystemPart, []anthropic.Message) {
	var system []anthropic.MessageSystemPart
	var out []anthropic.Message
	var pendingToolResults bool

	for _, msg := range messages {
		switch msg.Role {
		case engine.RoleSystem:
			system = append(system, anthropic.MessageSystemPart{
				Type: "text",
				Text: msg.Content,
			})
			pendingToolResults = false
		case engine.RoleUser:
			out = append(out, anthropic.Message{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(msg.Content)},
			})
			pendingToolResults = false
		case engine.RoleAssistant:
			var content []anthropic.MessageContent
			if strings.TrimSpace(msg.Content) != "" {
				content = append(content, anthropic.NewTextMessageContent(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				args, _ := json.Marshal(tc.Args)
				content = append(content, anthropic.NewToolUseMessageContent(tc.ID, tc.Name, json.RawMessage(args)))
			}
			out = append(out, anthropic.Message{
				Role:    anthropic.RoleAssistant,
				Content: content,
			})
			pendingToolResults = len(msg.ToolCalls) > 0
		case engine.RoleTool:
			if !pendingToolResults {
				continue
			}
			content := msg.Content
			if content == "" {
				content = "{}"
			}
			out = append(out, anthropic.Message{
				Role: anthropic.RoleUser,
				Content: []anthropic.MessageContent{
					anthropic.NewToolResultMessageContent(msg.Name, content, false),
				},
			})
		}
	}
	return system, out
}

func toAnthropicTools(schemas []engine.ToolSchema) ([]anthropic.ToolDefinition, error) {
	var tools []anthropic.ToolDefinition
	for _, ts := range schemas {
		var schemaObj map[string]any
		if err := json.Unmarshal([]byte(ts.JSONSchema), &schemaObj); err != nil {
			return nil, fmt.Errorf("invalid tool schema JSON for %s: %w", ts.Name, err)
		}
		tools = append(tools, anthropic.ToolDefinition{
			Name:        ts.Name,
			Description: ts.Description,
			InputSchema: schemaObj,
		})
	}
	return tools, nil
}

func parseToolArgs(raw []byte) map[string]any {
	args := make(map[string]any)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &args)
	}
	return args
}

// statusHints maps substrings of SDK error text to HTTP status codes, in
// check order. SDKs here do not expose a typed status, so we scan.
var statusHints = []struct {
	needle string
	code   int
}{
	{"429", http.StatusTooManyRequests},
	{"500", http.StatusInternalServerError},
	{"502", http.StatusBadGateway},
	{"503", http.StatusServiceUnavailable},
	{"504", http.StatusGatewayTimeout},
	{"401", http.StatusUnauthorized},
	{"402", http.StatusPaymentRequired},
	{"403", http.StatusForbidden},
	{"400", http.StatusBadRequest},
}

// extractErrorMetadata pulls an HTTP status and a Retry-After value out of
// an SDK error so the retry layer can classify it.
func extractErrorMetadata(err error) (int, string) {
	if err == nil {
		return 0, ""
	}
	errStr := err.Error()

	var httpStatus int
	for _, hint := range statusHints {
		if strings.Contains(errStr, hint.needle) {
			httpStatus = hint.code
			break
		}
	}

	var retryAfter string
	lower := strings.ToLower(errStr)
	for _, marker := range []string{"retry-after", "retry after"} {
		if idx := strings.Index(lower, marker); idx != -1 {
			rest := strings.TrimLeft(errStr[idx+len(marker):], ": ")
			if fields := strings.Fields(rest); len(fields) > 0 {
				retryAfter = fields[0]
			}
			break
		}
	}

	return httpStatus, retryAfter
}

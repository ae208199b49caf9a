package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"otto/internal/engine"
)

// OpenAIClient implements engine.LLMClient against the OpenAI chat API.
// With a custom base URL it also serves the OpenAI-compatible providers
// (DeepSeek, Groq, Ollama, and friends).
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a client. baseURL may be empty for api.openai.com.
func NewOpenAIClient(apiKey, modelName, baseURL string) (*OpenAIClient, error) {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  modelName,
	}, nil
}

func (c *OpenAIClient) buildRequest(messages []engine.ChatMessage, schemas []engine.ToolSchema, opts engine.ChatOptions, modelName string) (openai.ChatCompletionRequest, error) {
	tools, err := toOpenAITools(schemas)
	if err != nil {
		return openai.ChatCompletionRequest{}, err
	}

	req := openai.ChatCompletionRequest{
		Model:    modelName,
		Messages: toOpenAIMessages(messages),
	}
	if len(tools) > 0 {
		req.Tools = tools
		req.ToolChoice = "auto"
	}
	if opts.MaxOutputTokens > 0 {
		req.MaxTokens = opts.MaxOutputTokens
	}
	if opts.Temperature > 0 {
		req.Temperature = &opts.Temperature
	}
	return req, nil
}

// Chat implements engine.LLMClient.Chat.
func (c *OpenAIClient) Chat(ctx context.Context, modelName string, messages []engine.ChatMessage, toolSchemas []engine.ToolSchema, opts engine.ChatOptions) (engine.LLMResponse, error) {
	req, err := c.buildRequest(messages, toolSchemas, opts, modelName)
	if err != nil {
		return engine.LLMResponse{}, err
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		httpStatus, retryAfter := extractErrorMetadata(err)
		return engine.LLMResponse{}, engine.WrapLLMError(err, httpStatus, retryAfter)
	}
	if len(resp.Choices) == 0 {
		return engine.LLMResponse{}, fmt.Errorf("empty response from OpenAI")
	}

	choice := resp.Choices[0]
	assistant := engine.ChatMessage{
		Role:    engine.RoleAssistant,
		Content: choice.Message.Content,
	}

	var toolCalls []engine.ToolCall
	for _, tc := range choice.Message.ToolCalls {
		toolCalls = append(toolCalls, engine.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: parseToolArgs([]byte(tc.Function.Arguments)),
		})
	}
	assistant.ToolCalls = toolCalls

	finishReason := "stop"
	switch {
	case len(toolCalls) > 0:
		finishReason = "tool_calls"
	case choice.FinishReason == openai.FinishReasonLength:
		finishReason = "length"
	case choice.FinishReason == openai.FinishReasonContentFilter:
		finishReason = "content_filter"
	}

	return engine.LLMResponse{
		Assistant:    assistant,
		ToolCalls:    toolCalls,
		Usage: engine.Usage{
			Prompt:     resp.Usage.PromptTokens,
			Completion: resp.Usage.CompletionTokens,
			Total:      resp.Usage.TotalTokens,
		},
		FinishReason: finishReason,
	}, nil
}

// callBuilder accumulates one tool call from streamed deltas. Arguments
// arrive as partial JSON fragments and are only parseable at stream end.
type callBuilder struct {
	call  engine.ToolCall
	args  strings.Builder
	index int
}

// finalize parses the accumulated arguments. A call that cannot be parsed
// still gets emitted, with Error set, so the engine can feed the failure
// back to the model.
func (b *callBuilder) finalize() engine.ToolCall {
	tc := b.call
	raw := strings.TrimSpace(b.args.String())

	if raw == "" {
		tc.Args = make(map[string]any)
		tc.Error = "no arguments received, retry with complete arguments"
		return tc
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		if !strings.HasSuffix(raw, "}") && !strings.HasSuffix(raw, "]") {
			tc.Error = fmt.Sprintf("arguments truncated after %d bytes, the stream ended prematurely", len(raw))
		} else {
			tc.Error = fmt.Sprintf("invalid JSON in arguments: %v", err)
		}
		tc.Args = make(map[string]any)
		return tc
	}
	tc.Args = args
	return tc
}

// Stream implements engine.LLMClient.Stream. Completed tool calls and the
// final usage are emitted after the SDK reports EOF; a nil on the error
// channel signals normal completion.
func (c *OpenAIClient) Stream(ctx context.Context, modelName string, messages []engine.ChatMessage, toolSchemas []engine.ToolSchema, opts engine.ChatOptions) (<-chan engine.StreamEvent, <-chan error) {
	eventCh := make(chan engine.StreamEvent, 10)
	errCh := make(chan error, 1)

	go func() {
		defer close(eventCh)
		defer close(errCh)

		req, err := c.buildRequest(messages, toolSchemas, opts, modelName)
		if err != nil {
			errCh <- err
			return
		}
		req.Stream = true
		req.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

		stream, err := c.client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			httpStatus, retryAfter := extractErrorMetadata(err)
			errCh <- engine.WrapLLMError(err, httpStatus, retryAfter)
			return
		}
		defer stream.Close()

		builders := make(map[int]*callBuilder)
		nextIndex := 0
		var usage engine.Usage

		emit := func(ev engine.StreamEvent) bool {
			select {
			case eventCh <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			chunk, err := stream.Recv()
			if err != nil {
				if !errors.Is(err, io.EOF) && !strings.Contains(err.Error(), "EOF") {
					httpStatus, retryAfter := extractErrorMetadata(err)
					errCh <- engine.WrapLLMError(err, httpStatus, retryAfter)
					return
				}
				break
			}

			// The final chunk may carry usage and no choices.
			if chunk.Usage != nil && chunk.Usage.TotalTokens > 0 {
				usage = engine.Usage{
					Prompt:     chunk.Usage.PromptTokens,
					Completion: chunk.Usage.CompletionTokens,
					Total:      chunk.Usage.TotalTokens,
				}
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta

			if delta.Content != "" {
				if !emit(engine.StreamEvent{Type: "text_delta", Text: delta.Content}) {
					return
				}
			}

			for _, d := range delta.ToolCalls {
				idx := nextIndex
				if d.Index != nil {
					idx = *d.Index
				}
				b, ok := builders[idx]
				if !ok {
					b = &callBuilder{index: idx}
					builders[idx] = b
					nextIndex = idx + 1
				}
				if d.ID != "" {
					b.call.ID = d.ID
				}
				if d.Function.Name != "" {
					b.call.Name = d.Function.Name
				}
				b.args.WriteString(d.Function.Arguments)
			}
		}

		ordered := make([]*callBuilder, 0, len(builders))
		for _, b := range builders {
			if b.call.Name == "" {
				continue
			}
			ordered = append(ordered, b)
		}
		sort.Slice(ordered, func(i, j int) bool { return ordered[i].index < ordered[j].index })

		for _, b := range ordered {
			if !emit(engine.StreamEvent{Type: "tool_call", ToolCall: b.finalize()}) {
				return
			}
		}
		if usage.Total > 0 {
			if !emit(engine.StreamEvent{Type: "usage", Usage: usage}) {
				return
			}
		}
		errCh <- nil
	}()

	return eventCh, errCh
}

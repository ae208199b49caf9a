package engine

import (
	"context"
	"strings"
	"time"
)

// consumeStream drains one stream attempt into a complete decision. A
// backend error discards the partial decision so a retry starts from a
// clean buffer; the remaining events are drained to let the producer
// goroutine finish.
func consumeStream(ctx context.Context, llm LLMClient, model string, msgs []ChatMessage, toolSchemas []ToolSchema, opts ChatOptions, hooks Hooks, st *State) (LLMResponse, error) {
	deltaCh, errCh := llm.Stream(ctx, model, msgs, toolSchemas, opts)

	var assistantBuffer strings.Builder
	var respUsage Usage
	var toolCalls []ToolCall
	var streamErr error

	for deltaCh != nil || errCh != nil {
		select {
		case ev, ok := <-deltaCh:
			if !ok {
				deltaCh = nil
				continue
			}
			if streamErr != nil {
				continue // draining after failure
			}
			switch ev.Type {
			case "text_delta":
				assistantBuffer.WriteString(ev.Text)
				hooks.OnStreamDelta(ctx, st, ev.Text)
			case "tool_call":
				toolCalls = append(toolCalls, ev.ToolCall)
			case "usage":
				respUsage = ev.Usage
			}
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			// nil on errCh signals successful completion
			if err != nil && streamErr == nil {
				streamErr = err
			}
		}
	}

	if streamErr != nil {
		return LLMResponse{}, streamErr
	}
	return LLMResponse{
		Assistant: ChatMessage{Role: RoleAssistant, Content: assistantBuffer.String()},
		ToolCalls: toolCalls,
		Usage:     respUsage,
	}, nil
}

// stepOnceStream executes one loop iteration with streaming output. It
// accumulates the decision from stream events, retrying transient
// backend failures under the same policy as the synchronous path, then
// follows the same dispatch path as stepOnce.
func stepOnceStream(ctx context.Context, llm LLMClient, reg *Registry, st *State, hooks Hooks, opts ChatOptions) error {
	hooks.OnStepStart(ctx, st)

	msgs := append([]ChatMessage(nil), st.History...)
	retryConfig := getRetryConfig(opts)
	toolSchemas := reg.Schemas()

	hooks.OnBeforeLLM(ctx, st, msgs, toolSchemas)

	resp, err := RetryWithPolicy(
		ctx,
		retryConfig.LLMPolicy,
		func(ctx context.Context) (LLMResponse, error) {
			return consumeStream(ctx, llm, st.Model, msgs, toolSchemas, opts, hooks, st)
		},
		ClassifyLLMError,
		func(attempt int, delay time.Duration, retryErr error) {
			callRetryHooks(hooks, ctx, st, attempt, retryConfig.LLMPolicy.MaxRetries, delay, retryErr)
		},
	)
	if err != nil {
		handleRetryExhaustion(hooks, ctx, st, err)
		return WrapWithContext(&BackendError{Err: err}, st, "llm_call", "")
	}

	processLLMResponse(ctx, resp, st, hooks)

	rec := StepRecord{Seq: st.Step + 1}

	if len(resp.ToolCalls) == 0 {
		st.Done = true
		st.FinalAnswer = resp.Assistant.Content
		st.Record(rec)
		return nil
	}

	// Calls that arrived incomplete carry an Error and fail inside
	// executeOneCall; the model sees the failure and can retry.
	rec.Calls = resp.ToolCalls
	rec.Results = executeToolCalls(ctx, resp.ToolCalls, reg, retryConfig, hooks, st)
	st.Record(rec)

	finishIfResponded(st, rec.Calls, rec.Results)
	return nil
}

package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// getRetryConfig returns the retry configuration, using defaults if not provided.
func getRetryConfig(opts ChatOptions) *RetryConfig {
	if opts.RetryConfig != nil {
		return opts.RetryConfig
	}
	defaultConfig := DefaultRetryConfig()
	return &defaultConfig
}

// callRetryHooks counts the attempt and calls OnRetryAttempt on all
// hooks. Concurrent tool calls retry from their own goroutines, hence
// the atomic add.
func callRetryHooks(hooks Hooks, ctx context.Context, st *State, attempt, maxAttempts int, delay time.Duration, err error) {
	atomic.AddInt64(&st.Retries, 1)
	for _, hook := range hooks {
		hook.OnRetryAttempt(ctx, st, attempt, maxAttempts, delay, err)
	}
}

// handleRetryExhaustion calls OnRetryExhausted on all hooks if the error indicates retries were exhausted.
func handleRetryExhaustion(hooks Hooks, ctx context.Context, st *State, err error) {
	if IsRetryExhausted(err) {
		for _, hook := range hooks {
			hook.OnRetryExhausted(ctx, st, err)
		}
	}
}

// gateCalls runs the approval gate over the step's calls one at a time,
// before the concurrent dispatch. Interactive approvers prompt on the
// terminal, so the pass must stay serial. A denied or failed check
// yields a preset failed result; nil means the call may be dispatched.
func gateCalls(ctx context.Context, calls []ToolCall, reg *Registry, hooks Hooks, st *State) []*ToolResult {
	denied := make([]*ToolResult, len(calls))
	for i, call := range calls {
		// Incomplete calls never reach the gate; dispatch fails them.
		if call.Error != "" || ctx.Err() != nil {
			continue
		}
		ok, err := st.Gate.Check(ctx, reg, call)
		if err == nil && ok {
			continue
		}
		res := ToolResult{CallID: call.ID, Name: call.Name}
		if err != nil {
			res.Error = "approval failed: " + err.Error()
		} else {
			res.Error = "denied: user rejected " + call.Name
		}
		hooks.OnApproval(ctx, st, call, false)
		denied[i] = &res
	}
	return denied
}

// executeOneCall runs a single approved call through the registry with
// retries, folding every outcome into a ToolResult.
func executeOneCall(ctx context.Context, call ToolCall, reg *Registry, retryConfig *RetryConfig, hooks Hooks, st *State) ToolResult {
	res := ToolResult{CallID: call.ID, Name: call.Name}

	// Provider marked the call incomplete (e.g., truncated stream).
	if call.Error != "" {
		res.Error = (&MalformedDecisionError{Reason: call.Error}).Error()
		return res
	}

	if err := ctx.Err(); err != nil {
		res.Error = err.Error()
		return res
	}

	hooks.OnToolCall(ctx, st, call)

	start := time.Now()
	out, err := RetryToolCall(
		ctx,
		retryConfig.ToolPolicy,
		call,
		reg,
		func(attempt int, delay time.Duration, retryErr error) {
			callRetryHooks(hooks, ctx, st, attempt, retryConfig.ToolPolicy.MaxRetries, delay, retryErr)
		},
	)
	res.Duration = time.Since(start)
	if err != nil {
		handleRetryExhaustion(hooks, ctx, st, err)
		res.Error = err.Error()
		return res
	}
	res.Success = true
	res.Content = out
	res.FilesTouched = filesTouched(call)
	return res
}

// executeToolCalls executes the step's calls concurrently and appends one
// result message per call, in call order. Each failed result counts
// against the error budget.
func executeToolCalls(ctx context.Context, calls []ToolCall, reg *Registry, retryConfig *RetryConfig, hooks Hooks, st *State) []ToolResult {
	if len(calls) == 0 {
		return nil
	}

	denied := gateCalls(ctx, calls, reg, hooks, st)

	results := make([]ToolResult, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		if denied[i] != nil {
			results[i] = *denied[i]
			continue
		}
		wg.Add(1)
		go func(i int, c ToolCall) {
			defer wg.Done()
			results[i] = executeOneCall(ctx, c, reg, retryConfig, hooks, st)
		}(i, call)
	}
	wg.Wait()

	// Providers match role=tool messages to calls via the call ID.
	for i, res := range results {
		callID := calls[i].ID
		if callID == "" {
			callID = calls[i].Name
		}
		st.Append(ChatMessage{Role: RoleTool, Name: callID, Content: res.Message()})
		if !res.Success {
			st.ErrorCount++
		}
		hooks.OnToolResult(ctx, st, calls[i], res)
	}
	hooks.OnHistoryChanged(ctx, st)

	return results
}

// filesTouched extracts the mutated path from edit tool arguments.
func filesTouched(call ToolCall) []string {
	if !isEditTool(call.Name) {
		return nil
	}
	if p, ok := call.Args["path"].(string); ok && p != "" {
		return []string{p}
	}
	return nil
}

// isEditTool returns true if the tool modifies files.
func isEditTool(toolName string) bool {
	switch toolName {
	case "write_file", "search_replace", "delete_file":
		return true
	}
	return false
}

// callLLMWithRetry calls the LLM with retry logic and returns the response.
func callLLMWithRetry(ctx context.Context, llm LLMClient, model string, msgs []ChatMessage, schemas []ToolSchema, opts ChatOptions, retryConfig *RetryConfig, hooks Hooks, st *State) (LLMResponse, error) {
	resp, err := RetryLLMCall(
		ctx,
		retryConfig.LLMPolicy,
		llm,
		model,
		msgs,
		schemas,
		opts,
		func(attempt int, delay time.Duration, retryErr error) {
			callRetryHooks(hooks, ctx, st, attempt, retryConfig.LLMPolicy.MaxRetries, delay, retryErr)
		},
	)
	if err != nil {
		handleRetryExhaustion(hooks, ctx, st, err)
		return LLMResponse{}, err
	}
	return resp, nil
}

// processLLMResponse updates state from a decision: appends the assistant
// message (with its tool calls) and accumulates usage.
func processLLMResponse(ctx context.Context, resp LLMResponse, st *State, hooks Hooks) {
	hooks.OnAfterLLM(ctx, st, resp)

	st.Totals.Prompt += resp.Usage.Prompt
	st.Totals.Completion += resp.Usage.Completion
	st.Totals.Total += resp.Usage.Total

	assistantMsg := resp.Assistant
	assistantMsg.ToolCalls = resp.ToolCalls
	st.Append(assistantMsg)
	hooks.OnHistoryChanged(ctx, st)
}

// finishIfResponded marks the task done when the respond tool completed
// successfully. A failed respond call is an ordinary tool failure.
func finishIfResponded(st *State, calls []ToolCall, results []ToolResult) {
	for i, call := range calls {
		if call.Name == "respond" && results[i].Success {
			st.Done = true
			st.FinalAnswer = results[i].Content
			return
		}
	}
}

// stepOnce runs one iteration: ask the model for a decision, execute its
// tool calls, record the step. A decision with no tool calls is the final
// answer.
func stepOnce(ctx context.Context, llm LLMClient, reg *Registry, st *State, hooks Hooks, opts ChatOptions) error {
	hooks.OnStepStart(ctx, st)

	msgs := append([]ChatMessage(nil), st.History...)
	retryConfig := getRetryConfig(opts)
	toolSchemas := reg.Schemas()

	hooks.OnBeforeLLM(ctx, st, msgs, toolSchemas)

	resp, err := callLLMWithRetry(ctx, llm, st.Model, msgs, toolSchemas, opts, retryConfig, hooks, st)
	if err != nil {
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

	rec.Calls = resp.ToolCalls
	rec.Results = executeToolCalls(ctx, resp.ToolCalls, reg, retryConfig, hooks, st)
	st.Record(rec)

	finishIfResponded(st, rec.Calls, rec.Results)
	return nil
}

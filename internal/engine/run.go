package engine

import (
	"context"
	"fmt"
)

// Run executes the decision loop until the model answers, a budget is
// exhausted, or the backend fails. Terminal conditions are checked in
// priority order at the top of each iteration: final answer, then step
// limit, then error limit. The outcome lands on st.Task.Status; a non-nil
// error is returned only for backend failure or cancellation.
//
// Step counting: steps increment only on successful completion, so
// st.Steps carries Seq values 1..st.Step with no gaps.
func Run(ctx context.Context, llm LLMClient, reg *Registry, st *State, hooks Hooks, opts ChatOptions) error {
	return run(ctx, llm, reg, st, hooks, opts, stepOnce)
}

// RunStream is the streaming variant of Run. It uses stepOnceStream so
// assistant text reaches hooks incrementally; loop semantics are identical.
func RunStream(ctx context.Context, llm LLMClient, reg *Registry, st *State, hooks Hooks, opts ChatOptions) error {
	return run(ctx, llm, reg, st, hooks, opts, stepOnceStream)
}

type stepFunc func(ctx context.Context, llm LLMClient, reg *Registry, st *State, hooks Hooks, opts ChatOptions) error

func run(ctx context.Context, llm LLMClient, reg *Registry, st *State, hooks Hooks, opts ChatOptions, step stepFunc) error {
	if st.Task == nil {
		st.Task = NewTask("")
	}
	st.Task.Status = TaskRunning

	for {
		// Final answer wins over every budget, even on the limit step.
		if st.Done {
			st.Task.Status = TaskSucceeded
			hooks.OnDone(ctx, st)
			return nil
		}
		if st.Step >= st.MaxSteps {
			st.Task.Status = TaskAborted
			st.Task.Reason = AbortStepLimit
			hooks.OnAbort(ctx, st, AbortStepLimit)
			return nil
		}
		if st.MaxErrors > 0 && st.ErrorCount >= st.MaxErrors {
			st.Task.Status = TaskAborted
			st.Task.Reason = AbortErrorLimit
			hooks.OnAbort(ctx, st, AbortErrorLimit)
			return nil
		}

		select {
		case <-ctx.Done():
			st.Task.Status = TaskFailed
			st.Task.Reason = ctx.Err().Error()
			return fmt.Errorf("execution cancelled: %w", ctx.Err())
		default:
		}

		if err := step(ctx, llm, reg, st, hooks, opts); err != nil {
			// step handles retries internally; an error here means the
			// backend is out of reach or the context died.
			st.Task.Status = TaskFailed
			st.Task.Reason = err.Error()
			return err
		}
		st.Step++
	}
}

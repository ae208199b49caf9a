package engine

import (
	"context"
)

// Agent binds an LLM client, a tool registry and a configuration into a
// reusable task executor. One Agent drives one task at a time; Execute
// may be called repeatedly, each call starting from a fresh state.
type Agent struct {
	llm       LLMClient
	tools     *Registry
	config    AgentConfig
	hooks     Hooks
	planner   Planner
	approver  Approver
	lastState *State
}

// Result summarizes a finished task run.
type Result struct {
	Task        *Task
	FinalAnswer string
	Steps       int
	Errors      int
	Usage       Usage
}

// Execute runs one task to a terminal status. The returned error is
// non-nil only for backend failure or cancellation; budget exhaustion is
// reported through Result.Task.Status.
func (a *Agent) Execute(ctx context.Context, request string) (*Result, error) {
	task := NewTask(request)

	st := &State{
		Task:      task,
		History:   a.planner.Seed(task),
		Model:     a.config.Model,
		MaxSteps:  a.config.MaxSteps,
		MaxErrors: a.config.MaxErrors,
	}
	if a.approver != nil {
		st.Gate = &ApprovalGate{Mode: a.config.ApprovalMode, Approver: a.approver}
	}

	opts := a.planner.Options(ChatOptions{
		RetryConfig: a.config.RetryConfig,
		Stream:      a.config.Streaming,
	})

	var err error
	if a.config.Streaming {
		err = RunStream(ctx, a.llm, a.tools, st, a.hooks, opts)
	} else {
		err = Run(ctx, a.llm, a.tools, st, a.hooks, opts)
	}
	a.lastState = st

	res := &Result{
		Task:        task,
		FinalAnswer: st.FinalAnswer,
		Steps:       st.Step,
		Errors:      st.ErrorCount,
		Usage:       st.Totals,
	}
	return res, err
}

// LastState returns the most recent state after Execute completes.
// Callers should treat the returned state as read-only.
func (a *Agent) LastState() *State {
	return a.lastState
}

// Tools exposes the agent's registry for wiring-time inspection.
func (a *Agent) Tools() *Registry {
	return a.tools
}

// SetLLM replaces the agent's LLM client and model name at runtime.
// The next Execute call picks up the new backend.
func (a *Agent) SetLLM(client LLMClient, modelName string) {
	a.llm = client
	a.config.Model = modelName
}

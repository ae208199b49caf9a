package engine

// Planner assembles the request for one model decision. It is pure: the
// same task, history and tool catalogue always yield the same request.
// Holds configuration only; the controller serializes its use per task.
type Planner struct {
	SystemPrompt    string
	Temperature     float32
	MaxOutputTokens int
}

// Seed builds the opening history for a task: the system prompt followed
// by the user's request.
func (p Planner) Seed(task *Task) []ChatMessage {
	msgs := make([]ChatMessage, 0, 2)
	if p.SystemPrompt != "" {
		msgs = append(msgs, ChatMessage{Role: RoleSystem, Content: p.SystemPrompt})
	}
	msgs = append(msgs, ChatMessage{Role: RoleUser, Content: task.Request})
	return msgs
}

// Messages returns a defensive copy of the history for the next call.
// The model sees the complete transcript every step; nothing is
// compressed or dropped, so a run can be replayed from its records.
func (p Planner) Messages(st *State) []ChatMessage {
	return append([]ChatMessage(nil), st.History...)
}

// Options derives chat options, letting explicit opts override the
// planner's configuration.
func (p Planner) Options(opts ChatOptions) ChatOptions {
	if opts.Temperature == 0 {
		opts.Temperature = p.Temperature
	}
	if opts.MaxOutputTokens == 0 {
		opts.MaxOutputTokens = p.MaxOutputTokens
	}
	return opts
}

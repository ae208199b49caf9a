package engine

import (
	"fmt"
	"log"

	"otto/internal/prompts"
)

// AgentBuilder helps construct an Agent with a fluent API.
type AgentBuilder struct {
	config   AgentConfig
	llm      LLMClient
	tools    *Registry
	hooks    Hooks
	approver Approver
	prompt   *prompts.Prompt
}

// NewAgentBuilder creates a new agent builder with default configuration.
func NewAgentBuilder() *AgentBuilder {
	return &AgentBuilder{
		config: DefaultAgentConfig(),
	}
}

// WithModel sets the model name.
func (b *AgentBuilder) WithModel(model string) *AgentBuilder {
	b.config.Model = model
	return b
}

// WithLLM sets the LLM client.
func (b *AgentBuilder) WithLLM(llm LLMClient) *AgentBuilder {
	b.llm = llm
	return b
}

// WithMaxSteps sets the step budget.
func (b *AgentBuilder) WithMaxSteps(maxSteps int) *AgentBuilder {
	b.config.MaxSteps = maxSteps
	return b
}

// WithMaxErrors sets the error budget (0 = unlimited).
func (b *AgentBuilder) WithMaxErrors(maxErrors int) *AgentBuilder {
	b.config.MaxErrors = maxErrors
	return b
}

// WithMaxOutputTokens sets the maximum output tokens for LLM responses.
func (b *AgentBuilder) WithMaxOutputTokens(tokens int) *AgentBuilder {
	b.config.MaxOutputTokens = tokens
	return b
}

// WithRetryConfig sets the retry configuration.
func (b *AgentBuilder) WithRetryConfig(retryConfig *RetryConfig) *AgentBuilder {
	b.config.RetryConfig = retryConfig
	return b
}

// WithToolRegistry provides a fully constructed tool registry. Higher
// layers use this to augment the default tool set.
func (b *AgentBuilder) WithToolRegistry(reg *Registry, repoRoot string) *AgentBuilder {
	b.tools = reg
	b.config.RepoRoot = repoRoot
	return b
}

// WithApproval sets the approval mode and the approver that resolves
// suspended destructive calls.
func (b *AgentBuilder) WithApproval(mode ApprovalMode, approver Approver) *AgentBuilder {
	b.config.ApprovalMode = mode
	b.approver = approver
	return b
}

// WithPrompt sets the prompt ID and version.
func (b *AgentBuilder) WithPrompt(id string, version prompts.PromptVersion) (*AgentBuilder, error) {
	registry := prompts.DefaultRegistry()
	prompt, err := registry.Get(id, version)
	if err != nil {
		return nil, err
	}
	b.prompt = prompt
	b.config.PromptID = id
	b.config.PromptVersion = version
	return b, nil
}

// WithStreaming enables or disables streaming mode.
func (b *AgentBuilder) WithStreaming(streaming bool) *AgentBuilder {
	b.config.Streaming = streaming
	return b
}

// WithHooks sets custom hooks.
func (b *AgentBuilder) WithHooks(hooks Hooks) *AgentBuilder {
	b.hooks = hooks
	return b
}

// Build constructs the Agent instance.
func (b *AgentBuilder) Build() (*Agent, error) {
	if b.llm == nil {
		return nil, fmt.Errorf("LLM client not configured: use WithLLM")
	}
	if b.tools == nil {
		return nil, fmt.Errorf("tools not configured: use WithToolRegistry")
	}

	if b.prompt == nil {
		registry := prompts.DefaultRegistry()
		prompt, err := registry.GetLatest(b.config.PromptID)
		if err != nil {
			return nil, err
		}
		b.prompt = prompt
	}

	if b.hooks == nil {
		b.hooks = Hooks{
			LoggerHook{L: log.Default()},
		}
	}

	planner := Planner{
		SystemPrompt:    b.prompt.Content,
		Temperature:     b.config.Temperature,
		MaxOutputTokens: b.config.MaxOutputTokens,
	}

	return &Agent{
		llm:      b.llm,
		tools:    b.tools,
		config:   b.config,
		hooks:    b.hooks,
		planner:  planner,
		approver: b.approver,
	}, nil
}

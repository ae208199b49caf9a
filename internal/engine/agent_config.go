package engine

import (
	"otto/internal/prompts"
)

// AgentConfig holds configuration for an agent instance.
type AgentConfig struct {
	Model           string
	MaxSteps        int
	MaxErrors       int
	MaxOutputTokens int // Maximum tokens for LLM output (0 = use default)
	Temperature     float32
	RetryConfig     *RetryConfig
	PromptID        string
	PromptVersion   prompts.PromptVersion
	Streaming       bool
	RepoRoot        string
	ApprovalMode    ApprovalMode
}

// DefaultAgentConfig returns a default agent configuration.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		Model:           "gpt-4o-mini",
		MaxSteps:        DefaultMaxSteps,
		MaxErrors:       DefaultMaxErrors,
		MaxOutputTokens: 8192,
		PromptID:        "task",
		Streaming:       false,
		ApprovalMode:    ApprovalOnDestructive,
	}
}

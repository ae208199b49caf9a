package engine

import "time"

// Loop budget defaults. MaxErrors counts failed tool results, not retries.
const (
	DefaultMaxSteps  = 50
	DefaultMaxErrors = 5
)

// EngineConfig holds all engine configuration options.
type EngineConfig struct {
	RetryConfig *RetryConfig
	MaxSteps    int
	MaxErrors   int
}

// DefaultEngineConfig returns a default engine configuration.
func DefaultEngineConfig() EngineConfig {
	retryConfig := DefaultRetryConfig()
	return EngineConfig{
		RetryConfig: &retryConfig,
		MaxSteps:    DefaultMaxSteps,
		MaxErrors:   DefaultMaxErrors,
	}
}

// DefaultRetryConfig returns sensible default retry policies.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		LLMPolicy: RetryPolicy{
			MaxRetries:   3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
			Jitter:       true,
		},
		ToolPolicy: RetryPolicy{
			MaxRetries:   2,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
			Jitter:       true,
		},
	}
}

package providers

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"otto/internal/engine"
)

// compatProvider describes an OpenAI-compatible endpoint: where the key
// and base URL come from, and the defaults when the env is silent.
type compatProvider struct {
	keyEnv         string
	modelEnv       string
	baseURLEnv     string
	defaultModel   string
	defaultBaseURL string
	defaultKey     string // local servers accept any key
}

var compatProviders = map[string]compatProvider{
	"openai": {
		keyEnv:       "OPENAI_API_KEY",
		modelEnv:     "OPENAI_MODEL",
		baseURLEnv:   "OPENAI_BASE_URL",
		defaultModel: "gpt-4o-mini",
	},
	"deepseek": {
		keyEnv:         "DEEPSEEK_API_KEY",
		modelEnv:       "DEEPSEEK_MODEL",
		defaultModel:   "deepseek-chat",
		defaultBaseURL: "https://api.deepseek.com/v1",
	},
	"groq": {
		keyEnv:         "GROQ_API_KEY",
		modelEnv:       "GROQ_MODEL",
		defaultModel:   "llama-3.1-70b-versatile",
		defaultBaseURL: "https://api.groq.com/openai/v1",
	},
	"gemini": {
		keyEnv:         "GEMINI_API_KEY",
		modelEnv:       "GEMINI_MODEL",
		defaultModel:   "gemini-1.5-flash",
		defaultBaseURL: "https://generativelanguage.googleapis.com/v1beta/openai",
	},
	"ollama": {
		keyEnv:         "OLLAMA_API_KEY",
		modelEnv:       "OLLAMA_MODEL",
		baseURLEnv:     "OLLAMA_BASE_URL",
		defaultModel:   "llama3.1",
		defaultBaseURL: "http://localhost:11434/v1",
		defaultKey:     "ollama",
	},
	"lmstudio": {
		keyEnv:         "LMSTUDIO_API_KEY",
		modelEnv:       "LMSTUDIO_MODEL",
		baseURLEnv:     "LMSTUDIO_BASE_URL",
		defaultModel:   "local-model",
		defaultBaseURL: "http://localhost:1234/v1",
		defaultKey:     "lm-studio",
	},
}

// New builds an engine.LLMClient for the named provider. An empty model
// falls back to the provider's env variable, then to its default. The
// resolved model name is returned alongside the client.
func New(provider, model string) (engine.LLMClient, string, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))

	if provider == "anthropic" {
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, "", fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
		if model == "" {
			model = os.Getenv("ANTHROPIC_MODEL")
		}
		if model == "" {
			model = "claude-3-5-sonnet-20241022"
		}
		client, err := NewAnthropicClient(apiKey, model)
		if err != nil {
			return nil, "", fmt.Errorf("create anthropic client: %w", err)
		}
		return client, model, nil
	}

	cp, ok := compatProviders[provider]
	if !ok {
		return nil, "", fmt.Errorf("unknown provider %q (supported: %s)", provider, strings.Join(supportedProviders(), ", "))
	}

	apiKey := os.Getenv(cp.keyEnv)
	if apiKey == "" {
		apiKey = cp.defaultKey
	}
	if apiKey == "" {
		return nil, "", fmt.Errorf("%s not set", cp.keyEnv)
	}

	if model == "" {
		model = os.Getenv(cp.modelEnv)
	}
	if model == "" {
		model = cp.defaultModel
	}

	baseURL := cp.defaultBaseURL
	if cp.baseURLEnv != "" {
		if v := os.Getenv(cp.baseURLEnv); v != "" {
			baseURL = v
		}
	}

	client, err := NewOpenAIClient(apiKey, model, baseURL)
	if err != nil {
		return nil, "", fmt.Errorf("create %s client: %w", provider, err)
	}
	return client, model, nil
}

// NewFromEnv builds a client from OTTO_PROVIDER (or LLM_PROVIDER),
// defaulting to OpenAI.
func NewFromEnv() (engine.LLMClient, string, error) {
	provider := os.Getenv("OTTO_PROVIDER")
	if provider == "" {
		provider = os.Getenv("LLM_PROVIDER")
	}
	if provider == "" {
		provider = "openai"
	}
	return New(provider, "")
}

func supportedProviders() []string {
	names := []string{"anthropic"}
	for name := range compatProviders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

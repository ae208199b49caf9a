// Package prompts holds the versioned system prompts the agent runs
// with. Prompts register at init time and are resolved by ID, so a
// prompt revision can change without touching the engine.
package prompts

import (
	"fmt"
	"sync"
)

// PromptVersion identifies a prompt revision. Versions compare
// lexically, so the dotted form keeps ordering stable.
type PromptVersion string

// PromptV1 is the current revision of the built-in prompts.
const PromptV1 PromptVersion = "1.0.0"

// Prompt is one versioned system prompt.
type Prompt struct {
	ID          string
	Version     PromptVersion
	Content     string
	Description string
}

// PromptRegistry resolves prompts by ID and version.
type PromptRegistry struct {
	mu      sync.RWMutex
	prompts map[string]map[PromptVersion]*Prompt
}

var (
	defaultRegistry     *PromptRegistry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the process-wide registry the built-in
// prompts register into.
func DefaultRegistry() *PromptRegistry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewPromptRegistry()
	})
	return defaultRegistry
}

func NewPromptRegistry() *PromptRegistry {
	return &PromptRegistry{prompts: make(map[string]map[PromptVersion]*Prompt)}
}

// Register adds a prompt, replacing any previous entry with the same
// ID and version.
func (r *PromptRegistry) Register(p *Prompt) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.prompts[p.ID] == nil {
		r.prompts[p.ID] = make(map[PromptVersion]*Prompt)
	}
	r.prompts[p.ID][p.Version] = p
}

// Get retrieves one exact version of a prompt.
func (r *PromptRegistry) Get(id string, version PromptVersion) (*Prompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.prompts[id][version]
	if !ok {
		return nil, fmt.Errorf("prompt %s version %s not found", id, version)
	}
	return p, nil
}

// GetLatest retrieves the highest registered version of a prompt.
func (r *PromptRegistry) GetLatest(id string) (*Prompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *Prompt
	for _, p := range r.prompts[id] {
		if latest == nil || p.Version > latest.Version {
			latest = p
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("prompt not found: %s", id)
	}
	return latest, nil
}

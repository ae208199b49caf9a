package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

type ToolFunc func(ctx context.Context, args map[string]any) (string, error)

// ToolMetadata provides versioning and categorization for tools.
type ToolMetadata struct {
	Version    string   // e.g., "1.0.0"
	Category   string   // e.g., "filesystem", "execution", "search"
	Tags       []string // e.g., ["read-only", "idempotent"]
	Deprecated bool
	ReplacedBy string // Tool name that replaces this one
}

type Tool struct {
	Name        string
	Description string
	SchemaJSON  string
	Fn          ToolFunc
	Retryable   bool // Whether this tool can be retried (true for idempotent tools)
	Destructive bool // Whether this tool mutates files or runs commands (approval gate applies)
	Metadata    ToolMetadata
}

// ValidateArgs validates the provided arguments against the tool's JSON schema.
func (t Tool) ValidateArgs(args map[string]any) error {
	schemaLoader := gojsonschema.NewStringLoader(t.SchemaJSON)
	documentLoader := gojsonschema.NewGoLoader(args)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		var errorMsgs []string
		for _, verr := range result.Errors() {
			errorMsgs = append(errorMsgs, verr.String())
		}
		return &ToolValidationError{
			ToolName: t.Name,
			Errors:   errorMsgs,
		}
	}

	return nil
}

// IsDeprecated returns true if this tool is marked as deprecated.
func (t Tool) IsDeprecated() bool {
	return t.Metadata.Deprecated
}

// GetVersion returns the tool version, defaulting to "0.0.0" if unset.
func (t Tool) GetVersion() string {
	if t.Metadata.Version == "" {
		return "0.0.0"
	}
	return t.Metadata.Version
}

// GetCategory returns the tool category, defaulting to "general" if unset.
func (t Tool) GetCategory() string {
	if t.Metadata.Category == "" {
		return "general"
	}
	return t.Metadata.Category
}

// Registry holds the tools a task may dispatch to. It is an explicit
// instance handed to the loop; there is no package-level registry.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string // registration order, used for Names/Schemas
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. A second registration under the same name fails
// with DuplicateToolError.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool name must not be empty")
	}
	if t.Fn == nil {
		return fmt.Errorf("tool %s has no Fn", t.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return &DuplicateToolError{Name: t.Name}
	}
	r.tools[t.Name] = t
	r.order = append(r.order, t.Name)
	return nil
}

// MustRegister registers a set of tools and panics on conflict. Meant for
// wiring at startup where a duplicate is a programming error.
func (r *Registry) MustRegister(tools ...Tool) {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return Tool{}, &UnknownToolError{Name: name, Available: append([]string(nil), r.order...)}
	}
	return t, nil
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Schemas returns provider-facing schemas in registration order.
func (r *Registry) Schemas() []ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := make([]ToolSchema, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		s = append(s, ToolSchema{
			Name:        t.Name,
			Description: t.Description,
			JSONSchema:  t.SchemaJSON,
			Retryable:   t.Retryable,
		})
	}
	return s
}

// FilterByCategory returns a new registry containing only tools of the
// given category.
func (r *Registry) FilterByCategory(category string) *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	filtered := NewRegistry()
	for _, name := range r.order {
		t := r.tools[name]
		if t.GetCategory() == category {
			filtered.tools[name] = t
			filtered.order = append(filtered.order, name)
		}
	}
	return filtered
}

// Dispatch resolves, validates and executes one tool call. Every failure
// mode (unknown tool, invalid arguments, execution error, cancellation)
// is folded into a failed ToolResult; Dispatch never panics and never
// returns control-flow errors to the caller.
func (r *Registry) Dispatch(ctx context.Context, call ToolCall) ToolResult {
	start := time.Now()
	res := ToolResult{CallID: call.ID, Name: call.Name}

	t, err := r.Lookup(call.Name)
	if err != nil {
		res.Error = err.Error()
		res.Duration = time.Since(start)
		return res
	}

	if err := t.ValidateArgs(call.Args); err != nil {
		res.Error = err.Error()
		res.Duration = time.Since(start)
		return res
	}

	if err := ctx.Err(); err != nil {
		res.Error = err.Error()
		res.Duration = time.Since(start)
		return res
	}

	out, err := t.Fn(ctx, call.Args)
	res.Duration = time.Since(start)
	if err != nil {
		res.Error = (&ToolExecutionError{ToolName: call.Name, Err: err}).Error()
		return res
	}
	res.Success = true
	res.Content = out
	return res
}

// execute runs one call and returns the raw (content, error) pair. Retry
// wrappers use this; Dispatch folds the same path into a ToolResult.
func (r *Registry) execute(ctx context.Context, call ToolCall) (string, error) {
	t, err := r.Lookup(call.Name)
	if err != nil {
		return "", err
	}
	if err := t.ValidateArgs(call.Args); err != nil {
		return "", err
	}
	out, err := t.Fn(ctx, call.Args)
	if err != nil {
		return "", &ToolExecutionError{ToolName: call.Name, Err: err}
	}
	return out, nil
}

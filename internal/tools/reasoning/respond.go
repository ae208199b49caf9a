package reasoning

import (
	"context"
	"encoding/json"
	"fmt"

	"otto/internal/engine"
)

// RespondResult is the respond tool's output. The controller treats a
// successful respond call as the task's final answer.
type RespondResult struct {
	Status       string   `json:"status"`
	Summary      string   `json:"summary"`
	FilesChanged []string `json:"files_changed,omitempty"`
	NextSteps    []string `json:"next_steps,omitempty"`
}

func respondImpl(summary string, filesChanged, nextSteps []string) (string, error) {
	if summary == "" {
		return "", fmt.Errorf("summary cannot be empty")
	}

	out, err := json.Marshal(RespondResult{
		Status:       "complete",
		Summary:      summary,
		FilesChanged: filesChanged,
		NextSteps:    nextSteps,
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// NewRespondTool builds the respond tool.
func NewRespondTool() engine.Tool {
	return engine.Tool{
		Name: "respond",
		Description: "Signal task completion with a summary. Use this when you have finished the " +
			"user's request. Provide a concise summary of what was done, which files were " +
			"changed, and optional next steps. This marks the task as complete.",
		SchemaJSON: `{"type":"object","properties":{
			"summary":{"type":"string","description":"Concise summary of what was accomplished (2-4 sentences)"},
			"files_changed":{"type":"array","items":{"type":"string"},"description":"Files that were created or modified"},
			"next_steps":{"type":"array","items":{"type":"string"},"description":"Optional: 1-3 suggested next steps for the user"}
		},"required":["summary"]}`,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			summary, ok := args["summary"].(string)
			if !ok {
				return "", fmt.Errorf("summary must be a string")
			}
			return respondImpl(summary, stringSlice(args["files_changed"]), stringSlice(args["next_steps"]))
		},
		Retryable: true,
		Metadata: engine.ToolMetadata{
			Version:  "1.0.0",
			Category: "meta",
			Tags:     []string{"completion", "idempotent"},
		},
	}
}

func stringSlice(value any) []string {
	raw, ok := value.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Package reasoning provides the meta tools: think records the agent's
// reasoning, respond signals task completion with a final answer.
package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"otto/internal/engine"
)

// thinkImpl logs the reasoning so the user can follow the agent's
// decisions; the tool result itself is just an acknowledgment.
func thinkImpl(reasoning string) (string, error) {
	log.Printf("agent reasoning: %s", reasoning)

	out, err := json.Marshal(map[string]any{"status": "noted"})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// NewThinkTool builds the think tool.
func NewThinkTool() engine.Tool {
	return engine.Tool{
		Name: "think",
		Description: `Record your reasoning and thought process. Use this to make your thinking transparent.

When to use:
- After understanding the task, explain your high-level approach
- Before making changes, explain what you're about to do and why
- When you discover something important, note it
- When choosing between options, explain your decision

Be specific: include file names and function names when relevant.`,
		SchemaJSON: `{"type":"object","properties":{
			"reasoning":{"type":"string","description":"Your reasoning, thought process, or plan"},
			"reason":{"type":"string","description":"Alias for 'reasoning' (deprecated)"}
		},"required":[]}`,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			// Accept both keys; models interchange them.
			reasoning, _ := args["reasoning"].(string)
			if reasoning == "" {
				reasoning, _ = args["reason"].(string)
			}
			if reasoning == "" {
				return "", fmt.Errorf("reasoning must be a non-empty string")
			}
			return thinkImpl(reasoning)
		},
		Retryable: true,
		Metadata: engine.ToolMetadata{
			Version:  "1.0.0",
			Category: "meta",
			Tags:     []string{"reasoning", "idempotent"},
		},
	}
}

// Package search provides the read-only code discovery tools: regex
// grep over ripgrep and full-text codebase_search over the bleve index.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"otto/internal/engine"
	"otto/internal/tools/execution"
)

const (
	grepTimeout    = 10 * time.Second
	grepMaxResults = 100
)

// rgMessage is one line of ripgrep's --json stream. Only "match"
// messages matter; begin/end/summary lines are skipped.
type rgMessage struct {
	Type string `json:"type"`
	Data struct {
		Path struct {
			Text string `json:"text"`
		} `json:"path"`
		Lines struct {
			Text string `json:"text"`
		} `json:"lines"`
		LineNumber int `json:"line_number"`
	} `json:"data"`
}

type grepMatch struct {
	Path    string `json:"path"`
	Line    int    `json:"line"`
	Content string `json:"content"`
}

// grepImpl shells out to ripgrep and normalizes its JSON stream. Exit
// code 1 means no matches, which is a valid empty result.
func grepImpl(ctx context.Context, runner execution.Runner, repoRoot, pattern, path, globs string, caseInsensitive bool) (string, error) {
	args := []string{"--json"}
	if caseInsensitive {
		args = append(args, "-i")
	}
	for _, g := range strings.Split(globs, ",") {
		if g = strings.TrimSpace(g); g != "" {
			args = append(args, "-g", g)
		}
	}
	args = append(args, "-e", pattern)
	if path != "" {
		args = append(args, path)
	} else {
		args = append(args, ".")
	}

	res, err := runner.RunCmd(ctx, repoRoot, "rg", args, grepTimeout)
	if err != nil {
		if res.Code == 1 {
			out, _ := json.Marshal(map[string]any{
				"pattern": pattern,
				"results": []grepMatch{},
				"count":   0,
			})
			return string(out), nil
		}
		return "", fmt.Errorf("grep failed: %v, stderr: %s", err, res.Stderr)
	}

	results := make([]grepMatch, 0)
	for _, line := range strings.Split(res.Stdout, "\n") {
		if line == "" {
			continue
		}
		var msg rgMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil || msg.Type != "match" {
			continue
		}
		results = append(results, grepMatch{
			Path:    msg.Data.Path.Text,
			Line:    msg.Data.LineNumber,
			Content: strings.TrimSpace(msg.Data.Lines.Text),
		})
	}

	truncated := false
	if len(results) > grepMaxResults {
		results = results[:grepMaxResults]
		truncated = true
	}

	out, err := json.Marshal(map[string]any{
		"pattern":   pattern,
		"results":   results,
		"count":     len(results),
		"truncated": truncated,
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// NewGrepTool builds the grep tool over the given runner.
func NewGrepTool(repoRoot string, runner execution.Runner) engine.Tool {
	return engine.Tool{
		Name: "grep",
		Description: "Fast regex-based code search using ripgrep. Use this to find exact code " +
			"patterns, function definitions or references. Supports case-insensitive search " +
			"and glob filters.",
		SchemaJSON: `{"type":"object","properties":{
			"pattern":{"type":"string","description":"Regex pattern to search for"},
			"path":{"type":"string","description":"Optional: file or directory to search in"},
			"globs":{"type":"string","description":"Optional: comma-separated file patterns"},
			"case_insensitive":{"type":"boolean","description":"Optional: case-insensitive search"}
		},"required":["pattern"]}`,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			pattern, ok := args["pattern"].(string)
			if !ok {
				return "", fmt.Errorf("pattern must be a string")
			}
			path := ""
			if p, ok := args["path"].(string); ok {
				path = p
			}
			globs := ""
			if g, ok := args["globs"].(string); ok {
				globs = g
			}
			caseInsensitive := false
			if ci, ok := args["case_insensitive"].(bool); ok {
				caseInsensitive = ci
			}
			return grepImpl(ctx, runner, repoRoot, pattern, path, globs, caseInsensitive)
		},
		Retryable: true,
		Metadata: engine.ToolMetadata{
			Version:  "2.0.0",
			Category: "search",
			Tags:     []string{"read-only", "idempotent"},
		},
	}
}

package search

import (
	"context"
	"encoding/json"
	"fmt"

	"otto/internal/engine"
	"otto/internal/searcher"
)

const defaultSearchLimit = 10

// codebaseSearchImpl queries the full-text index. Unlike grep it matches
// by relevance, so it works from a natural-language description of the
// code being sought.
func codebaseSearchImpl(query string, limit int, s *searcher.Searcher) (string, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	matches, err := s.Search(query, limit)
	if err != nil {
		return "", err
	}

	type searchResult struct {
		Path      string   `json:"path"`
		Lang      string   `json:"lang,omitempty"`
		Score     float64  `json:"score"`
		Fragments []string `json:"fragments,omitempty"`
		Hint      string   `json:"hint"`
	}
	results := make([]searchResult, len(matches))
	for i, m := range matches {
		results[i] = searchResult{
			Path:      m.Path,
			Lang:      m.Lang,
			Score:     m.Score,
			Fragments: m.Fragments,
			Hint:      fmt.Sprintf("read_file({\"path\": %q}) for the full context", m.Path),
		}
	}

	out, err := json.Marshal(map[string]any{
		"query":   query,
		"results": results,
		"count":   len(results),
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// NewCodebaseSearchTool builds the codebase_search tool over an opened
// searcher.
func NewCodebaseSearchTool(s *searcher.Searcher) engine.Tool {
	return engine.Tool{
		Name: "codebase_search",
		Description: "Full-text search across the indexed codebase. Use this when you know what " +
			"the code does but not where it lives; matches are ranked by relevance and come " +
			"with highlighted fragments. For exact patterns use grep instead.",
		SchemaJSON: `{"type":"object","properties":{
			"query":{"type":"string","description":"Free-text query describing the code you are looking for"},
			"limit":{"type":"integer","description":"Maximum number of results (default: 10)"}
		},"required":["query"]}`,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			query, ok := args["query"].(string)
			if !ok {
				return "", fmt.Errorf("query must be a string")
			}
			limit := 0
			if l, ok := args["limit"].(float64); ok {
				limit = int(l)
			}
			return codebaseSearchImpl(query, limit, s)
		},
		Retryable: true,
		Metadata: engine.ToolMetadata{
			Version:  "1.0.0",
			Category: "search",
			Tags:     []string{"read-only", "idempotent", "full-text"},
		},
	}
}

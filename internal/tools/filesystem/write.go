package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"otto/internal/diff"
	"otto/internal/engine"
)

const previewMaxLines = 60

// writeFileImpl routes the write through the diff engine: the change is
// computed as a patch, applied transactionally, and reported back with a
// unified preview so the model sees exactly what landed.
func writeFileImpl(ctx context.Context, mutator *diff.Engine, path, content string) (string, error) {
	p, err := mutator.Compute(path, content)
	if err != nil {
		return "", err
	}

	if p.Empty() {
		out, _ := json.Marshal(map[string]any{
			"path":   path,
			"status": "unchanged",
		})
		return string(out), nil
	}

	if err := mutator.Apply(ctx, p); err != nil {
		var confirm *diff.ConfirmationRequiredError
		if errors.As(err, &confirm) {
			out, _ := json.Marshal(map[string]any{
				"path":   path,
				"status": "failed",
				"error": fmt.Sprintf("patch changes %d lines, above the %d-line confirmation threshold. "+
					"Split the write into smaller changes.", confirm.ChangedLines, confirm.Limit),
			})
			return string(out), nil
		}
		return "", err
	}

	status := "updated"
	if p.Creates {
		status = "created"
	}
	out, err := json.Marshal(map[string]any{
		"path":    path,
		"status":  status,
		"summary": p.Summary(),
		"diff":    truncatePreview(p.Unified(), previewMaxLines),
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// truncatePreview caps a unified diff at maxLines for the tool result.
func truncatePreview(preview string, maxLines int) string {
	lines := strings.Split(preview, "\n")
	if len(lines) <= maxLines {
		return preview
	}
	return strings.Join(lines[:maxLines], "\n") +
		fmt.Sprintf("\n... %d more lines ...\n", len(lines)-maxLines)
}

// NewWriteFileTool builds the write_file tool over a shared mutation engine.
func NewWriteFileTool(mutator *diff.Engine) engine.Tool {
	return engine.Tool{
		Name: "write_file",
		Description: "Writes complete file content. Creates the file if it does not exist, " +
			"overwrites it otherwise. The change is applied transactionally and the result " +
			"includes a unified diff of what changed. For small edits prefer search_replace.",
		SchemaJSON: `{"type":"object","properties":{
			"path":{"type":"string","description":"Path relative to the repository root"},
			"content":{"type":"string","description":"Full new content of the file"}
		},"required":["path","content"]}`,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			path, ok := args["path"].(string)
			if !ok {
				return "", fmt.Errorf("path must be a string")
			}
			content, ok := args["content"].(string)
			if !ok {
				return "", fmt.Errorf("content must be a string")
			}
			if err := diff.CheckPath(path); err != nil {
				return "", err
			}
			return writeFileImpl(ctx, mutator, path, content)
		},
		Retryable:   true, // re-applying the same content is a no-op
		Destructive: true,
		Metadata: engine.ToolMetadata{
			Version:  "2.0.0",
			Category: "filesystem",
			Tags:     []string{"write", "side-effect"},
		},
	}
}

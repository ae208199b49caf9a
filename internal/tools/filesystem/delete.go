package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"otto/internal/diff"
	"otto/internal/engine"
)

// deleteFileImpl removes one file. Deleting an already-missing file is a
// success so retries converge; directories are refused.
func deleteFileImpl(fsys FileSystem, repoRoot, relPath string) (string, error) {
	abs, err := resolveUnder(repoRoot, relPath)
	if err != nil {
		return "", err
	}

	info, err := fsys.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			out, _ := json.Marshal(map[string]any{
				"path":    relPath,
				"status":  "deleted",
				"message": "file did not exist",
			})
			return string(out), nil
		}
		return "", fmt.Errorf("stat %s: %w", relPath, err)
	}

	if info.IsDir() {
		return "", fmt.Errorf("cannot delete directory %s, delete_file only removes files", relPath)
	}

	if err := fsys.Remove(abs); err != nil {
		return "", fmt.Errorf("delete %s: %w", relPath, err)
	}

	out, err := json.Marshal(map[string]any{
		"path":   relPath,
		"status": "deleted",
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// NewDeleteFileTool builds the delete_file tool rooted at repoRoot.
func NewDeleteFileTool(repoRoot string) engine.Tool {
	fsys := NewOSFileSystem()
	return engine.Tool{
		Name: "delete_file",
		Description: "Deletes a file from the repository. Deleting a missing file succeeds. " +
			"Cannot delete directories.",
		SchemaJSON: `{"type":"object","properties":{
			"path":{"type":"string","description":"Path to the file, relative to the repository root"}
		},"required":["path"]}`,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			path, ok := args["path"].(string)
			if !ok {
				return "", fmt.Errorf("path must be a string")
			}
			if path == "" {
				return "", fmt.Errorf("path cannot be empty")
			}
			if err := diff.CheckPath(path); err != nil {
				return "", err
			}
			return deleteFileImpl(fsys, repoRoot, path)
		},
		Retryable:   true, // missing file is reported as success
		Destructive: true,
		Metadata: engine.ToolMetadata{
			Version:  "1.0.0",
			Category: "filesystem",
			Tags:     []string{"delete", "side-effect"},
		},
	}
}

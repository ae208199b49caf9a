// Package editing provides the search_replace tool, the primary way the
// agent edits files. Replacements are validated against the file's real
// content and applied through the diff engine.
package editing

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"otto/internal/diff"
	"otto/internal/engine"
)

// old_string larger than this is refused outright.
const maxEditLines = 500

// searchReplaceImpl replaces old with new in one file. Validation
// failures come back as failed JSON results with actionable hints, so
// the model can self-correct instead of burning retries blind.
func searchReplaceImpl(ctx context.Context, mutator *diff.Engine, path, oldString, newString string, replaceAll bool) (string, error) {
	if !isTextFile(path) {
		return failResult(path, "file type not allowed, search_replace only works on text files")
	}

	abs := filepath.Join(mutator.Root(), filepath.FromSlash(path))
	raw, err := os.ReadFile(abs)
	if err != nil {
		return failResult(path, fmt.Sprintf("read failed: %v", err))
	}
	content := string(raw)

	if isGen, marker := isGeneratedFile(content); isGen {
		return failResult(path, fmt.Sprintf("file appears to be generated (found %q), edit the generator instead", marker))
	}

	if lines := strings.Count(oldString, "\n"); lines > maxEditLines {
		return failResult(path, fmt.Sprintf("old_string is %d lines (max %d), break the edit into smaller changes", lines, maxEditLines))
	}

	if oldString == newString {
		return failResult(path, "old_string and new_string are identical, nothing to change")
	}

	count := strings.Count(content, oldString)
	if count == 0 {
		return failResult(path, notFoundHint(content, oldString))
	}
	if count > 1 && !replaceAll {
		return failResult(path, multiMatchHint(content, oldString, count))
	}

	var proposed string
	replacements := 1
	if replaceAll {
		proposed = strings.ReplaceAll(content, oldString, newString)
		replacements = count
	} else {
		proposed = strings.Replace(content, oldString, newString, 1)
	}

	p := diff.ComputeFromContent(path, content, proposed, false)
	if err := mutator.Apply(ctx, p); err != nil {
		return "", err
	}

	out, err := json.Marshal(map[string]any{
		"path":         path,
		"status":       "success",
		"replacements": replacements,
		"summary":      p.Summary(),
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func failResult(path, msg string) (string, error) {
	out, _ := json.Marshal(map[string]any{
		"path":   path,
		"status": "failed",
		"error":  msg,
	})
	return string(out), nil
}

// notFoundHint diagnoses the common causes of a zero-match edit.
func notFoundHint(content, oldString string) string {
	hint := ""
	normalizedContent := strings.Join(strings.Fields(content), " ")
	normalizedOld := strings.Join(strings.Fields(oldString), " ")
	if normalizedOld != "" && strings.Contains(normalizedContent, normalizedOld) {
		hint = "\n  - the text exists but with different whitespace/indentation"
	}
	return fmt.Sprintf("old_string not found in file. Common causes:\n"+
		"  - indentation mismatch (file uses %s)\n"+
		"  - old_string needs more surrounding context%s\n"+
		"Read the file again and copy the exact text.", detectIndentation(content), hint)
}

// multiMatchHint points at candidate lines when old_string is ambiguous.
func multiMatchHint(content, oldString string, count int) string {
	firstLine := strings.TrimSpace(strings.SplitN(oldString, "\n", 2)[0])
	var lineNums []int
	for i, line := range strings.Split(content, "\n") {
		if firstLine != "" && strings.Contains(line, firstLine) {
			lineNums = append(lineNums, i+1)
			if len(lineNums) == 5 {
				break
			}
		}
	}
	at := ""
	if len(lineNums) > 0 {
		at = fmt.Sprintf(" (near lines %v)", lineNums)
	}
	return fmt.Sprintf("old_string appears %d times in the file%s. Either include more context "+
		"to make it unique, or pass replace_all=true to replace all %d occurrences.", count, at, count)
}

var textExtensions = map[string]bool{
	".go": true, ".py": true, ".js": true, ".ts": true, ".jsx": true, ".tsx": true,
	".java": true, ".c": true, ".cpp": true, ".h": true, ".hpp": true,
	".rs": true, ".rb": true, ".php": true, ".html": true, ".css": true, ".scss": true,
	".md": true, ".txt": true, ".json": true, ".yaml": true, ".yml": true, ".toml": true,
	".sh": true, ".bash": true, ".zsh": true, ".sql": true, ".xml": true, ".mod": true,
}

func isTextFile(path string) bool {
	return textExtensions[filepath.Ext(path)]
}

// isGeneratedFile checks the first 500 bytes for generated-code markers.
func isGeneratedFile(content string) (bool, string) {
	preview := content
	if len(preview) > 500 {
		preview = preview[:500]
	}
	for _, marker := range []string{
		"Code generated", "DO NOT EDIT", "Auto-generated",
		"automatically generated", "This file is generated",
	} {
		if strings.Contains(preview, marker) {
			return true, marker
		}
	}
	return false, ""
}

func detectIndentation(content string) string {
	switch {
	case strings.Contains(content, "\t"):
		return "tabs"
	case strings.Contains(content, "    "):
		return "4 spaces"
	case strings.Contains(content, "  "):
		return "2 spaces"
	}
	return "unknown indentation"
}

// NewSearchReplaceTool builds the search_replace tool over a shared
// mutation engine.
func NewSearchReplaceTool(mutator *diff.Engine) engine.Tool {
	return engine.Tool{
		Name: "search_replace",
		Description: "Performs exact string search and replace in a file. This is the primary " +
			"editing tool. Always read the file first and copy the exact text including " +
			"indentation. The old string must match exactly once unless replace_all is set.",
		SchemaJSON: `{"type":"object","properties":{
			"path":{"type":"string","description":"File path relative to the repository root"},
			"old_string":{"type":"string","description":"Exact text to find"},
			"new_string":{"type":"string","description":"Replacement text"},
			"replace_all":{"type":"boolean","description":"If true, replace every occurrence"}
		},"required":["path","old_string","new_string"]}`,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			path, ok := args["path"].(string)
			if !ok {
				return "", fmt.Errorf("path must be a string")
			}
			oldString, ok := args["old_string"].(string)
			if !ok {
				return "", fmt.Errorf("old_string must be a string")
			}
			newString, ok := args["new_string"].(string)
			if !ok {
				return "", fmt.Errorf("new_string must be a string")
			}
			replaceAll := false
			if ra, ok := args["replace_all"].(bool); ok {
				replaceAll = ra
			}
			if err := diff.CheckPath(path); err != nil {
				return "", err
			}
			return searchReplaceImpl(ctx, mutator, path, oldString, newString, replaceAll)
		},
		Retryable:   false,
		Destructive: true,
		Metadata: engine.ToolMetadata{
			Version:  "2.0.0",
			Category: "editing",
			Tags:     []string{"write", "side-effect"},
		},
	}
}

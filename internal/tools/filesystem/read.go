package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"otto/internal/engine"
)

const (
	fullReadLimit    = 200 // below this, return the whole file
	warnedReadLimit  = 400 // below this, return the whole file with a warning
	outlineHeadLines = 30
)

// readFileImpl returns file content in tiers: small files come back whole,
// medium files whole with a warning, large files as a structural outline.
// A start/end range bypasses the tiers and returns exactly those lines.
func readFileImpl(fsys FileSystem, repoRoot, path string, start, end int) (string, error) {
	abs, err := resolveUnder(repoRoot, path)
	if err != nil {
		return "", err
	}

	raw, err := fsys.ReadFile(abs)
	if err != nil {
		return "", err
	}
	content := string(raw)
	lineCount := strings.Count(content, "\n") + 1

	if start > 0 || end > 0 {
		return marshalRead(path, sliceLines(content, start, end), lineCount, "range")
	}

	if lineCount < fullReadLimit {
		return marshalRead(path, content, lineCount, "full")
	}

	if lineCount < warnedReadLimit {
		warning := fmt.Sprintf("NOTE: this file has %d lines. For focused edits, re-read with "+
			"start/end to fetch only the section you need, e.g. "+
			"read_file({\"path\": %q, \"start\": 50, \"end\": 150}).\n\n", lineCount, path)
		return marshalRead(path, warning+content, lineCount, "full")
	}

	return marshalRead(path, generateOutline(content, path, lineCount), lineCount, "outline")
}

func marshalRead(path, content string, lineCount int, contentType string) (string, error) {
	out, err := json.Marshal(map[string]any{
		"path":         path,
		"content":      content,
		"line_count":   lineCount,
		"content_type": contentType,
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// sliceLines returns lines [start, end] 1-indexed inclusive, clamped to
// the file. A swapped range is corrected rather than rejected.
func sliceLines(content string, start, end int) string {
	lines := strings.Split(content, "\n")
	if start < 1 {
		start = 1
	}
	if end < 1 || end > len(lines) {
		end = len(lines)
	}
	if end < start {
		start, end = end, start
	}
	if start > len(lines) {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}

// generateOutline produces a line-numbered structural summary for files
// too large to return whole.
func generateOutline(content, path string, lineCount int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "OUTLINE MODE: this file has %d lines, too large to return whole.\n", lineCount)
	b.WriteString("This is NOT the full content. Find your target below, then call\n")
	fmt.Fprintf(&b, "read_file({\"path\": %q, \"start\": N, \"end\": M}) for the exact section.\n\n", path)

	switch filepath.Ext(path) {
	case ".go":
		b.WriteString(outlineByPrefix(content, "GO FILE STRUCTURE",
			"package ", "import", "type ", "func ", "const ", "var "))
	case ".py":
		b.WriteString(outlineByPrefix(content, "PYTHON FILE STRUCTURE",
			"import ", "from ", "class ", "def ", "@"))
	case ".ts", ".tsx", ".js", ".jsx":
		b.WriteString(outlineByPrefix(content, "JS/TS FILE STRUCTURE",
			"import ", "export ", "class ", "function ", "interface ", "type "))
	default:
		b.WriteString(genericOutline(content, lineCount))
	}
	return b.String()
}

func outlineByPrefix(content, header string, prefixes ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== %s ===\n\n", header)
	for i, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#") {
			continue
		}
		for _, p := range prefixes {
			if strings.HasPrefix(trimmed, p) {
				fmt.Fprintf(&b, "Line %4d: %s\n", i+1, trimmed)
				break
			}
		}
	}
	return b.String()
}

func genericOutline(content string, lineCount int) string {
	lines := strings.Split(content, "\n")
	var b strings.Builder
	b.WriteString("=== FIRST LINES ===\n")
	for i := 0; i < outlineHeadLines && i < len(lines); i++ {
		fmt.Fprintf(&b, "Line %4d: %s\n", i+1, lines[i])
	}
	if lineCount > 2*outlineHeadLines {
		fmt.Fprintf(&b, "\n... %d lines omitted ...\n\n=== LAST LINES ===\n", lineCount-2*outlineHeadLines)
		for i := len(lines) - outlineHeadLines; i < len(lines); i++ {
			fmt.Fprintf(&b, "Line %4d: %s\n", i+1, lines[i])
		}
	}
	return b.String()
}

// resolveUnder joins path onto root and rejects escapes.
func resolveUnder(repoRoot, path string) (string, error) {
	abs := filepath.Clean(filepath.Join(repoRoot, path))
	root := filepath.Clean(repoRoot)
	if abs != root && !strings.HasPrefix(abs, root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside repository root", path)
	}
	return abs, nil
}

// NewReadFileTool builds the read_file tool rooted at repoRoot.
func NewReadFileTool(repoRoot string) engine.Tool {
	fsys := NewOSFileSystem()
	return engine.Tool{
		Name: "read_file",
		Description: "Reads a file from the repository. Small files are returned whole; large files " +
			"come back as an outline with line numbers. Pass start/end to read a specific line range.",
		SchemaJSON: `{"type":"object","properties":{
			"path":{"type":"string","description":"Path relative to the repository root"},
			"start":{"type":"integer","description":"Optional: first line to read (1-indexed, inclusive)"},
			"end":{"type":"integer","description":"Optional: last line to read (inclusive)"}
		},"required":["path"]}`,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			path, ok := args["path"].(string)
			if !ok {
				return "", fmt.Errorf("path must be a string")
			}
			start, end := 0, 0
			if s, ok := args["start"].(float64); ok {
				start = int(s)
			}
			if e, ok := args["end"].(float64); ok {
				end = int(e)
			}
			return readFileImpl(fsys, repoRoot, path, start, end)
		},
		Retryable: true,
		Metadata: engine.ToolMetadata{
			Version:  "2.0.0",
			Category: "filesystem",
			Tags:     []string{"read-only", "idempotent"},
		},
	}
}

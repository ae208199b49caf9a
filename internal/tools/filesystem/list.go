package filesystem

import (
	"context"
	"encoding/json"
	"io/fs"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"

	"otto/internal/engine"
)

const defaultListLimit = 1000

// listFilesImpl lists repository entries, honoring gitignore-style
// patterns, an optional depth cap and a result limit.
func listFilesImpl(fsys FileSystem, repoRoot, path string, recursive bool, maxDepth, limit int, ignorePatterns []string) (string, error) {
	dirPath, err := resolveUnder(repoRoot, path)
	if err != nil {
		return "", err
	}

	var matcher *gitignore.GitIgnore
	if len(ignorePatterns) > 0 {
		matcher = gitignore.CompileIgnoreLines(ignorePatterns...)
	}

	ignored := func(relPath string) bool {
		for _, seg := range strings.Split(filepath.ToSlash(relPath), "/") {
			if seg == ".git" {
				return true
			}
		}
		return matcher != nil && matcher.MatchesPath(relPath)
	}

	files := make([]string, 0)
	truncated := false

	if recursive {
		err := fsys.WalkDir(dirPath, func(walkPath string, d fs.DirEntry, err error) error {
			if err != nil || walkPath == dirPath {
				return nil
			}
			relFromRoot, err := filepath.Rel(repoRoot, walkPath)
			if err != nil {
				return nil
			}
			if ignored(relFromRoot) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if maxDepth >= 0 {
				if relFromStart, err := filepath.Rel(dirPath, walkPath); err == nil {
					if strings.Count(relFromStart, string(filepath.Separator)) > maxDepth {
						if d.IsDir() {
							return filepath.SkipDir
						}
						return nil
					}
				}
			}
			files = append(files, filepath.ToSlash(relFromRoot))
			if len(files) >= limit {
				truncated = true
				return filepath.SkipAll
			}
			return nil
		})
		if err != nil {
			return "", err
		}
	} else {
		entries, err := fsys.ReadDir(dirPath)
		if err != nil {
			return "", err
		}
		for _, entry := range entries {
			name := entry.Name()
			// Dotfiles stay hidden unless the caller supplied patterns.
			if len(ignorePatterns) == 0 && strings.HasPrefix(name, ".") {
				continue
			}
			relPath := name
			if path != "" {
				relPath = filepath.ToSlash(filepath.Join(path, name))
			}
			if ignored(relPath) {
				continue
			}
			files = append(files, relPath)
			if len(files) >= limit {
				truncated = true
				break
			}
		}
	}

	out, err := json.Marshal(map[string]any{
		"path":      path,
		"files":     files,
		"recursive": recursive,
		"truncated": truncated,
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// NewListFilesTool builds the list_files tool rooted at repoRoot.
func NewListFilesTool(repoRoot string) engine.Tool {
	fsys := NewOSFileSystem()
	return engine.Tool{
		Name: "list_files",
		Description: "Lists files in the repository. Use this to discover which files exist " +
			"before reading them. Supports recursive listing, depth limits and ignore patterns.",
		SchemaJSON: `{"type":"object","properties":{
			"path":{"type":"string","description":"Optional: subdirectory relative to the repository root"},
			"recursive":{"type":"boolean","description":"If true, list files recursively. Default: false"},
			"max_depth":{"type":"integer","description":"Maximum depth for recursive listing. Default: -1 (unlimited)"},
			"limit":{"type":"integer","description":"Maximum number of entries to return. Default: 1000"},
			"ignore_patterns":{"type":"array","items":{"type":"string"},"description":"gitignore-style patterns to skip. Default: ['.git', 'node_modules']"}
		},"required":[]}`,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			path := ""
			if p, ok := args["path"].(string); ok {
				path = p
			}
			recursive := false
			if r, ok := args["recursive"].(bool); ok {
				recursive = r
			}
			maxDepth := -1
			if d, ok := args["max_depth"].(float64); ok {
				maxDepth = int(d)
			}
			limit := defaultListLimit
			if l, ok := args["limit"].(float64); ok && int(l) > 0 {
				limit = int(l)
			}
			var patterns []string
			if raw, ok := args["ignore_patterns"].([]any); ok {
				for _, p := range raw {
					if s, ok := p.(string); ok {
						patterns = append(patterns, s)
					}
				}
			}
			if len(patterns) == 0 {
				patterns = []string{".git", "node_modules"}
			}
			return listFilesImpl(fsys, repoRoot, path, recursive, maxDepth, limit, patterns)
		},
		Retryable: true,
		Metadata: engine.ToolMetadata{
			Version:  "1.1.0",
			Category: "filesystem",
			Tags:     []string{"read-only", "idempotent"},
		},
	}
}

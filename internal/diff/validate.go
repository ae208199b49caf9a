package diff

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Budget defines limits for a patch before it may be applied.
type Budget struct {
	MaxLines        int      // Maximum changed lines (0 = unlimited)
	AllowedPrefixes []string // Allowed repo-relative path prefixes (empty = anywhere)
}

// ForbiddenPaths are paths the mutation engine never touches.
var ForbiddenPaths = []string{
	".env",
	".env.*",
	"config/secrets*",
	".git",
	".github",
	".idea",
	".vscode",
	"go.sum",
	"package-lock.json",
	"yarn.lock",
	"node_modules",
	"dist",
	"build",
	"venv",
	".venv",
	".DS_Store",
}

// ValidatePatch checks a patch against a budget and the forbidden-path
// list. relPath is the target relative to the repo root.
func ValidatePatch(p *Patch, relPath string, budget Budget) error {
	if p == nil {
		return fmt.Errorf("nil patch")
	}
	if relPath == "" {
		return fmt.Errorf("patch has empty target path")
	}

	if err := CheckPath(relPath); err != nil {
		return err
	}

	if budget.MaxLines > 0 && p.ChangedLines() > budget.MaxLines {
		return fmt.Errorf("patch changes %d lines, max is %d", p.ChangedLines(), budget.MaxLines)
	}

	if len(budget.AllowedPrefixes) > 0 && !hasAllowedPrefix(relPath, budget.AllowedPrefixes) {
		return fmt.Errorf("path %s does not match any allowed prefix: %v", relPath, budget.AllowedPrefixes)
	}

	return nil
}

// CheckPath rejects forbidden, absolute and escaping paths.
func CheckPath(path string) error {
	normalized := strings.ToLower(filepath.ToSlash(path))

	for _, forbidden := range ForbiddenPaths {
		forbiddenLower := strings.ToLower(forbidden)

		if strings.HasSuffix(forbiddenLower, "*") {
			prefix := strings.TrimSuffix(forbiddenLower, "*")
			if strings.HasPrefix(normalized, prefix) {
				return fmt.Errorf("path %s matches forbidden pattern: %s", path, forbidden)
			}
			continue
		}
		for _, seg := range strings.Split(normalized, "/") {
			if seg == forbiddenLower {
				return fmt.Errorf("path %s contains forbidden component: %s", path, forbidden)
			}
		}
	}

	if filepath.IsAbs(path) {
		return fmt.Errorf("path %s is absolute, must be relative to repo root", path)
	}
	// ".." only counts as a full segment; "notes..txt" is a legal name.
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if seg == ".." {
			return fmt.Errorf("path %s contains '..', which is not allowed", path)
		}
	}

	return nil
}

func hasAllowedPrefix(path string, prefixes []string) bool {
	normalized := filepath.ToSlash(path)
	for _, prefix := range prefixes {
		if strings.HasPrefix(normalized, filepath.ToSlash(prefix)) {
			return true
		}
	}
	return false
}

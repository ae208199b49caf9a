package searcher

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// Document is one indexable source file.
type Document struct {
	Path    string `json:"path"`
	Lang    string `json:"lang"`
	Content string `json:"content"`
}

// defaultIgnores are skipped regardless of .gitignore contents.
var defaultIgnores = []string{
	".git",
	"node_modules",
	"vendor",
	"dist",
	"build",
	"target",
	"__pycache__",
	"coverage",
	".next",
	".cache",
	".idea",
	".vscode",
	".DS_Store",
}

var extLangs = map[string]string{
	".go":   "go",
	".ts":   "ts",
	".tsx":  "ts",
	".js":   "js",
	".jsx":  "js",
	".py":   "python",
	".rs":   "rust",
	".java": "java",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".cc":   "cpp",
	".hpp":  "cpp",
	".md":   "markdown",
	".json": "json",
	".yaml": "yaml",
	".yml":  "yaml",
	".html": "html",
	".css":  "css",
	".sql":  "sql",
	".sh":   "shell",
	".toml": "toml",
}

// maxDocSize keeps generated artifacts and data dumps out of the index.
const maxDocSize = 1 << 20

// Walker discovers indexable files under a repository root, honoring
// .gitignore plus a built-in ignore list.
type Walker struct {
	root    string
	ignores gitignore.IgnoreParser
}

// NewWalker builds a walker for repoRoot, loading .gitignore files found
// anywhere in the tree.
func NewWalker(repoRoot string) *Walker {
	patterns := append([]string(nil), defaultIgnores...)
	patterns = append(patterns, loadGitignorePatterns(repoRoot)...)
	return &Walker{
		root:    repoRoot,
		ignores: gitignore.CompileIgnoreLines(patterns...),
	}
}

// Ignored reports whether a repo-relative path is excluded from the index.
func (w *Walker) Ignored(relPath string) bool {
	return w.ignores.MatchesPath(relPath)
}

// DetectLang maps a path to its language by extension, or "" for files
// the index does not cover.
func DetectLang(path string) string {
	return extLangs[strings.ToLower(filepath.Ext(path))]
}

// Walk collects all indexable documents with their content.
func (w *Walker) Walk(ctx context.Context) ([]Document, error) {
	var docs []Document

	err := filepath.WalkDir(w.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(w.root, path)
		if err != nil || rel == "." {
			return nil
		}
		if w.Ignored(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		doc, ok := w.Load(rel)
		if ok {
			docs = append(docs, doc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// Load reads one repo-relative path as a document. ok is false for files
// that are ignored, too large, binary, or of an unrecognized type.
func (w *Walker) Load(relPath string) (Document, bool) {
	lang := DetectLang(relPath)
	if lang == "" || w.Ignored(relPath) {
		return Document{}, false
	}

	abs := filepath.Join(w.root, filepath.FromSlash(relPath))
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() || info.Size() > maxDocSize {
		return Document{}, false
	}

	content, err := os.ReadFile(abs)
	if err != nil || bytes.IndexByte(content, 0) != -1 {
		return Document{}, false
	}

	return Document{
		Path:    filepath.ToSlash(relPath),
		Lang:    lang,
		Content: string(content),
	}, true
}

func loadGitignorePatterns(repoRoot string) []string {
	var patterns []string
	filepath.WalkDir(repoRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" || d.Name() == "node_modules" {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != ".gitignore" {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			patterns = append(patterns, line)
		}
		return nil
	})
	return patterns
}

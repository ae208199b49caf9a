package searcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func seedRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"main.go":          "package main\n\nfunc main() {\n\tconnectDatabase()\n}\n",
		"db/conn.go":       "package db\n\n// connectDatabase opens the connection pool.\nfunc connectDatabase() {}\n",
		"docs/setup.md":    "# Setup\n\nConfigure the database connection string first.\n",
		"ignored/junk.go":  "package junk\n\nfunc connectDatabase() {}\n",
		".gitignore":       "ignored/\n",
		"assets/logo.bin":  "\x00\x01\x02",
		"notes/scratch.go": "package notes\n",
	}
	for rel, content := range files {
		abs := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestWalkerHonorsGitignore(t *testing.T) {
	root := seedRepo(t)
	w := NewWalker(root)

	docs, err := w.Walk(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[string]bool)
	for _, d := range docs {
		seen[d.Path] = true
	}
	if seen["ignored/junk.go"] {
		t.Error("gitignored file was indexed")
	}
	if !seen["main.go"] || !seen["db/conn.go"] || !seen["docs/setup.md"] {
		t.Errorf("expected files missing from walk: %v", seen)
	}
}

func TestSearchFindsRelevantFiles(t *testing.T) {
	root := seedRepo(t)
	s, err := Open(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	matches, err := s.Search("database connection", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) == 0 {
		t.Fatal("no matches for indexed content")
	}
	for _, m := range matches {
		if m.Path == "ignored/junk.go" {
			t.Error("match from a gitignored file")
		}
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	root := seedRepo(t)
	s, err := Open(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, err := s.Search("  ", 10); err == nil {
		t.Fatal("empty query accepted")
	}
}

func TestRefreshUpdatesIndex(t *testing.T) {
	root := seedRepo(t)
	s, err := Open(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := os.WriteFile(filepath.Join(root, "notes/scratch.go"),
		[]byte("package notes\n\nfunc rotateCredentials() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s.refresh([]string{"notes/scratch.go"})

	matches, err := s.Search("rotateCredentials", 10)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, m := range matches {
		if m.Path == "notes/scratch.go" {
			found = true
		}
	}
	if !found {
		t.Error("refreshed content not searchable")
	}

	// Deleting the file drops it from the index.
	if err := os.Remove(filepath.Join(root, "notes/scratch.go")); err != nil {
		t.Fatal(err)
	}
	s.refresh([]string{"notes/scratch.go"})

	matches, err = s.Search("rotateCredentials", 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range matches {
		if m.Path == "notes/scratch.go" {
			t.Error("deleted file still indexed")
		}
	}
}

func TestDetectLang(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"a/b/c.go", "go"},
		{"script.PY", "python"},
		{"README.md", "markdown"},
		{"binary.exe", ""},
	}
	for _, tt := range tests {
		if got := DetectLang(tt.path); got != tt.want {
			t.Errorf("DetectLang(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"otto/internal/sandbox"
	"otto/internal/searcher"
)

// MockRunner implements execution.Runner for grep tests.
type MockRunner struct {
	RunCmdFunc func(ctx context.Context, repoDir, name string, args []string, timeout time.Duration) (sandbox.Result, error)
}

func (m *MockRunner) RunCmd(ctx context.Context, repoDir, name string, args []string, timeout time.Duration) (sandbox.Result, error) {
	if m.RunCmdFunc != nil {
		return m.RunCmdFunc(ctx, repoDir, name, args, timeout)
	}
	return sandbox.Result{}, nil
}

func TestGrepImpl(t *testing.T) {
	tests := []struct {
		name          string
		pattern       string
		globs         string
		mockStdout    string
		mockExitCode  int
		mockErr       error
		wantResults   int
		wantTruncated bool
		wantErr       bool
	}{
		{
			name:    "basic match",
			pattern: "func main",
			mockStdout: `{"type":"match","data":{"path":{"text":"main.go"},"lines":{"text":"func main() {"},"line_number":10}}
{"type":"match","data":{"path":{"text":"cmd/app.go"},"lines":{"text":"func main() {"},"line_number":5}}`,
			wantResults: 2,
		},
		{
			name:         "no matches is empty, not an error",
			pattern:      "nonexistent",
			mockExitCode: 1,
			mockErr:      fmt.Errorf("exit status 1"),
			wantResults:  0,
		},
		{
			name:    "non-match lines are skipped",
			pattern: "foo",
			mockStdout: `{"type":"begin","data":{"path":{"text":"main.go"}}}
{"type":"match","data":{"path":{"text":"main.go"},"lines":{"text":"foo"},"line_number":1}}
{"type":"end","data":{"path":{"text":"main.go"}}}`,
			wantResults: 1,
		},
		{
			name:          "results are capped",
			pattern:       "common",
			mockStdout:    mockMatches(150),
			wantResults:   100,
			wantTruncated: true,
		},
		{
			name:    "real rg failure surfaces",
			pattern: "invalid(",
			mockErr: fmt.Errorf("command failed"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &MockRunner{
				RunCmdFunc: func(ctx context.Context, repoDir, name string, args []string, timeout time.Duration) (sandbox.Result, error) {
					if name != "rg" {
						t.Errorf("expected rg, got %s", name)
					}
					hasJSON, hasPattern := false, false
					for i, arg := range args {
						if arg == "--json" {
							hasJSON = true
						}
						if arg == "-e" && i+1 < len(args) && args[i+1] == tt.pattern {
							hasPattern = true
						}
					}
					if !hasJSON {
						t.Error("--json flag missing")
					}
					if !hasPattern {
						t.Errorf("pattern %q missing from args %v", tt.pattern, args)
					}
					return sandbox.Result{Stdout: tt.mockStdout, Code: tt.mockExitCode}, tt.mockErr
				},
			}

			raw, err := grepImpl(context.Background(), runner, "/repo", tt.pattern, "", tt.globs, false)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			var result map[string]any
			if err := json.Unmarshal([]byte(raw), &result); err != nil {
				t.Fatal(err)
			}
			if n := len(result["results"].([]any)); n != tt.wantResults {
				t.Errorf("got %d results, want %d", n, tt.wantResults)
			}
			if tt.wantTruncated {
				if truncated, ok := result["truncated"].(bool); !ok || !truncated {
					t.Error("truncated flag not set")
				}
			}
		})
	}
}

func mockMatches(count int) string {
	var b strings.Builder
	for i := 0; i < count; i++ {
		fmt.Fprintf(&b, `{"type":"match","data":{"path":{"text":"file%d.go"},"lines":{"text":"match %d"},"line_number":%d}}`+"\n", i, i, i+1)
	}
	return b.String()
}

func TestCodebaseSearchOverRealIndex(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"db/conn.go":  "package db\n\n// Open establishes the database connection pool.\nfunc Open() {}\n",
		"web/http.go": "package web\n\n// Serve starts the http listener.\nfunc Serve() {}\n",
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

	s, err := searcher.Open(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	raw, err := codebaseSearchImpl("database connection", 5, s)
	if err != nil {
		t.Fatal(err)
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		t.Fatal(err)
	}
	results := result["results"].([]any)
	if len(results) == 0 {
		t.Fatal("no results for a query that should match db/conn.go")
	}
	top := results[0].(map[string]any)
	if top["path"] != "db/conn.go" {
		t.Errorf("top result = %v", top["path"])
	}
	if hint, _ := top["hint"].(string); !strings.Contains(hint, "read_file") {
		t.Errorf("hint = %v", top["hint"])
	}
}

package editing

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"otto/internal/diff"
)

func setupRepo(t *testing.T, rel, content string) (*diff.Engine, string) {
	t.Helper()
	root := t.TempDir()
	abs := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return diff.NewEngine(root, diff.Config{}), root
}

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("result is not JSON: %v\n%s", err, raw)
	}
	return out
}

func TestSearchReplaceSingleMatch(t *testing.T) {
	content := "package main\n\nfunc greet() string {\n\treturn \"hello\"\n}\n"
	mutator, root := setupRepo(t, "main.go", content)

	raw, err := searchReplaceImpl(context.Background(), mutator, "main.go",
		"return \"hello\"", "return \"goodbye\"", false)
	if err != nil {
		t.Fatal(err)
	}
	res := decode(t, raw)
	if res["status"] != "success" {
		t.Fatalf("status = %v, error = %v", res["status"], res["error"])
	}
	if res["replacements"].(float64) != 1 {
		t.Errorf("replacements = %v", res["replacements"])
	}

	got, _ := os.ReadFile(filepath.Join(root, "main.go"))
	if !strings.Contains(string(got), "goodbye") || strings.Contains(string(got), "hello") {
		t.Errorf("replacement not applied: %q", got)
	}
}

func TestSearchReplaceNotFoundGivesHint(t *testing.T) {
	mutator, _ := setupRepo(t, "main.go", "func run() {\n\tdoWork()\n}\n")

	raw, err := searchReplaceImpl(context.Background(), mutator, "main.go",
		"    doWork()", "doOtherWork()", false)
	if err != nil {
		t.Fatal(err)
	}
	res := decode(t, raw)
	if res["status"] != "failed" {
		t.Fatalf("status = %v", res["status"])
	}
	msg := res["error"].(string)
	if !strings.Contains(msg, "not found") {
		t.Errorf("error lacks diagnosis: %q", msg)
	}
	if !strings.Contains(msg, "whitespace") {
		t.Errorf("whitespace mismatch not flagged: %q", msg)
	}
}

func TestSearchReplaceAmbiguousMatch(t *testing.T) {
	content := "x := 1\ny := 1\nz := 1\n"
	mutator, _ := setupRepo(t, "vals.go", content)

	raw, err := searchReplaceImpl(context.Background(), mutator, "vals.go", ":= 1", ":= 2", false)
	if err != nil {
		t.Fatal(err)
	}
	res := decode(t, raw)
	if res["status"] != "failed" {
		t.Fatalf("status = %v", res["status"])
	}
	if !strings.Contains(res["error"].(string), "replace_all") {
		t.Errorf("error does not suggest replace_all: %v", res["error"])
	}
}

func TestSearchReplaceAll(t *testing.T) {
	content := "x := 1\ny := 1\nz := 1\n"
	mutator, root := setupRepo(t, "vals.go", content)

	raw, err := searchReplaceImpl(context.Background(), mutator, "vals.go", ":= 1", ":= 2", true)
	if err != nil {
		t.Fatal(err)
	}
	res := decode(t, raw)
	if res["status"] != "success" {
		t.Fatalf("status = %v, error = %v", res["status"], res["error"])
	}
	if res["replacements"].(float64) != 3 {
		t.Errorf("replacements = %v", res["replacements"])
	}

	got, _ := os.ReadFile(filepath.Join(root, "vals.go"))
	if strings.Contains(string(got), ":= 1") {
		t.Errorf("occurrences left behind: %q", got)
	}
}

func TestSearchReplaceRefusesGeneratedFile(t *testing.T) {
	content := "// Code generated by protoc. DO NOT EDIT.\npackage pb\n"
	mutator, _ := setupRepo(t, "gen.go", content)

	raw, err := searchReplaceImpl(context.Background(), mutator, "gen.go", "package pb", "package gen", false)
	if err != nil {
		t.Fatal(err)
	}
	res := decode(t, raw)
	if res["status"] != "failed" {
		t.Fatalf("status = %v", res["status"])
	}
	if !strings.Contains(res["error"].(string), "generated") {
		t.Errorf("error = %v", res["error"])
	}
}

func TestSearchReplaceRefusesBinaryExtension(t *testing.T) {
	mutator, _ := setupRepo(t, "logo.png", "not really a png")

	raw, err := searchReplaceImpl(context.Background(), mutator, "logo.png", "a", "b", false)
	if err != nil {
		t.Fatal(err)
	}
	if res := decode(t, raw); res["status"] != "failed" {
		t.Fatalf("status = %v", res["status"])
	}
}

func TestSearchReplaceIdenticalStrings(t *testing.T) {
	mutator, _ := setupRepo(t, "a.go", "package a\n")

	raw, err := searchReplaceImpl(context.Background(), mutator, "a.go", "package a", "package a", false)
	if err != nil {
		t.Fatal(err)
	}
	if res := decode(t, raw); res["status"] != "failed" {
		t.Fatalf("status = %v", res["status"])
	}
}

func TestSearchReplaceUndoRestores(t *testing.T) {
	content := "alpha\nbeta\n"
	mutator, root := setupRepo(t, "notes.md", content)

	if _, err := searchReplaceImpl(context.Background(), mutator, "notes.md", "beta", "gamma", false); err != nil {
		t.Fatal(err)
	}
	if _, err := mutator.Undo("notes.md"); err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(filepath.Join(root, "notes.md"))
	if string(got) != content {
		t.Errorf("undo left %q, want %q", got, content)
	}
}

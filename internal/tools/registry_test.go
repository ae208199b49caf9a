package tools

import (
	"context"
	"testing"

	"otto/internal/engine"
	"otto/internal/searcher"
)

func TestNewRegistryDefaultSet(t *testing.T) {
	reg, err := NewRegistry(t.TempDir(), Deps{}, engine.DefaultToolSet())
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		"read_file", "list_files", "write_file", "delete_file",
		"grep",
		"run_cmd", "run_tests", "run_build",
		"search_replace",
		"git_status", "git_diff", "git_log",
		"think", "respond",
	}
	if reg.Len() != len(want) {
		t.Fatalf("registered %d tools, want %d: %v", reg.Len(), len(want), reg.Names())
	}
	for _, name := range want {
		if _, err := reg.Lookup(name); err != nil {
			t.Errorf("tool %s not registered: %v", name, err)
		}
	}
	if _, err := reg.Lookup("codebase_search"); err == nil {
		t.Error("codebase_search registered without a searcher")
	}
}

func TestNewRegistrySemanticNeedsSearcher(t *testing.T) {
	root := t.TempDir()
	set := engine.ToolSet{Search: true, Semantic: true}

	reg, err := NewRegistry(root, Deps{}, set)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Lookup("codebase_search"); err == nil {
		t.Error("semantic tool registered with nil searcher")
	}

	s, err := searcher.Open(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	reg, err = NewRegistry(root, Deps{Searcher: s}, set)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Lookup("codebase_search"); err != nil {
		t.Errorf("codebase_search missing: %v", err)
	}
}

func TestNewRegistryPartialSet(t *testing.T) {
	reg, err := NewRegistry(t.TempDir(), Deps{}, engine.ToolSet{Meta: true})
	if err != nil {
		t.Fatal(err)
	}
	if reg.Len() != 2 {
		t.Fatalf("meta-only registry has %d tools: %v", reg.Len(), reg.Names())
	}
	if _, err := reg.Lookup("write_file"); err == nil {
		t.Error("filesystem tool leaked into meta-only set")
	}
}

func TestRegistryDestructiveMarkings(t *testing.T) {
	reg, err := NewRegistry(t.TempDir(), Deps{}, engine.DefaultToolSet())
	if err != nil {
		t.Fatal(err)
	}

	destructive := map[string]bool{
		"write_file":     true,
		"search_replace": true,
		"delete_file":    true,
		"run_cmd":        true,
		"read_file":      false,
		"grep":           false,
		"git_status":     false,
		"think":          false,
	}
	for name, want := range destructive {
		tool, err := reg.Lookup(name)
		if err != nil {
			t.Fatalf("lookup %s: %v", name, err)
		}
		if tool.Destructive != want {
			t.Errorf("%s Destructive = %v, want %v", name, tool.Destructive, want)
		}
	}
}

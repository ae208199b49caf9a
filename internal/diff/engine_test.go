package diff

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	abs := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return abs
}

func readFile(t *testing.T, root, rel string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(root, rel))
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestApplyRoundTrip(t *testing.T) {
	root := t.TempDir()
	eng := NewEngine(root, Config{})
	writeFile(t, root, "f.txt", "one\ntwo\nthree\n")

	p, err := eng.Compute("f.txt", "one\n2\nthree\n")
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.Apply(context.Background(), p); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	// apply(compute(A→B), A) == B
	if got := readFile(t, root, "f.txt"); got != "one\n2\nthree\n" {
		t.Errorf("content = %q", got)
	}
}

func TestApplyCreatesFile(t *testing.T) {
	root := t.TempDir()
	eng := NewEngine(root, Config{})

	p, err := eng.Compute("new/dir/hello.txt", "hello\n")
	if err != nil {
		t.Fatal(err)
	}
	if !p.Creates {
		t.Error("Creates not set for a missing file")
	}
	if err := eng.Apply(context.Background(), p); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := readFile(t, root, "new/dir/hello.txt"); got != "hello\n" {
		t.Errorf("content = %q", got)
	}
}

func TestApplyIdempotent(t *testing.T) {
	root := t.TempDir()
	eng := NewEngine(root, Config{})
	writeFile(t, root, "f.txt", "a\n")

	p, err := eng.Compute("f.txt", "b\n")
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.Apply(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	// second apply of the same patch is a no-op success
	if err := eng.Apply(context.Background(), p); err != nil {
		t.Fatalf("re-apply: %v", err)
	}
	if got := readFile(t, root, "f.txt"); got != "b\n" {
		t.Errorf("content = %q after re-apply", got)
	}
}

func TestApplyStalePatchRollsBack(t *testing.T) {
	root := t.TempDir()
	eng := NewEngine(root, Config{})
	writeFile(t, root, "f.txt", "original\n")

	p, err := eng.Compute("f.txt", "proposed\n")
	if err != nil {
		t.Fatal(err)
	}

	// Someone else changes the file before the apply lands.
	writeFile(t, root, "f.txt", "concurrent edit\n")

	err = eng.Apply(context.Background(), p)
	var applyErr *ApplyError
	if !errors.As(err, &applyErr) {
		t.Fatalf("expected ApplyError, got %v", err)
	}
	// post-state must be the pre-apply content, never a hybrid
	if got := readFile(t, root, "f.txt"); got != "concurrent edit\n" {
		t.Errorf("content = %q, want the untouched pre-apply content", got)
	}
}

func TestApplyConfirmationThreshold(t *testing.T) {
	root := t.TempDir()
	eng := NewEngine(root, Config{ConfirmLimit: 3})
	writeFile(t, root, "f.txt", "")

	p, err := eng.Compute("f.txt", "1\n2\n3\n4\n5\n")
	if err != nil {
		t.Fatal(err)
	}

	err = eng.Apply(context.Background(), p)
	var confirmErr *ConfirmationRequiredError
	if !errors.As(err, &confirmErr) {
		t.Fatalf("expected ConfirmationRequiredError, got %v", err)
	}
	if got := readFile(t, root, "f.txt"); got != "" {
		t.Errorf("file touched before confirmation: %q", got)
	}

	p.Confirmed = true
	if err := eng.Apply(context.Background(), p); err != nil {
		t.Fatalf("confirmed apply: %v", err)
	}
	if got := readFile(t, root, "f.txt"); got != "1\n2\n3\n4\n5\n" {
		t.Errorf("content = %q", got)
	}
}

func TestApplyForbiddenPath(t *testing.T) {
	root := t.TempDir()
	eng := NewEngine(root, Config{})

	p := ComputeFromContent(".env", "", "SECRET=1\n", true)
	if err := eng.Apply(context.Background(), p); err == nil {
		t.Fatal("apply to .env succeeded")
	}
}

func TestApplyEscapingPath(t *testing.T) {
	root := t.TempDir()
	eng := NewEngine(root, Config{})

	if _, err := eng.Compute("../escape.txt", "x"); err == nil {
		t.Fatal("Compute accepted an escaping path")
	}
}

func TestApplyCancelledContext(t *testing.T) {
	root := t.TempDir()
	eng := NewEngine(root, Config{})
	writeFile(t, root, "f.txt", "before\n")

	p, err := eng.Compute("f.txt", "after\n")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := eng.Apply(ctx, p); err == nil {
		t.Fatal("cancelled apply succeeded")
	}
	if got := readFile(t, root, "f.txt"); got != "before\n" {
		t.Errorf("cancelled apply mutated the file: %q", got)
	}
}

func TestUndo(t *testing.T) {
	root := t.TempDir()
	eng := NewEngine(root, Config{})
	writeFile(t, root, "f.txt", "v1\n")

	p, err := eng.Compute("f.txt", "v2\n")
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.Apply(context.Background(), p); err != nil {
		t.Fatal(err)
	}

	restored, err := eng.Undo("f.txt")
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if restored != "f.txt" {
		t.Errorf("restored = %q", restored)
	}
	if got := readFile(t, root, "f.txt"); got != "v1\n" {
		t.Errorf("content = %q after undo", got)
	}
}

func TestUndoCreationRemovesFile(t *testing.T) {
	root := t.TempDir()
	eng := NewEngine(root, Config{})

	p, err := eng.Compute("fresh.txt", "content\n")
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.Apply(context.Background(), p); err != nil {
		t.Fatal(err)
	}

	if _, err := eng.Undo("fresh.txt"); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "fresh.txt")); !os.IsNotExist(err) {
		t.Error("undo of a creation left the file behind")
	}
}

func TestUndoNothingRetained(t *testing.T) {
	eng := NewEngine(t.TempDir(), Config{})
	if _, err := eng.Undo(""); err == nil {
		t.Fatal("Undo with no backups succeeded")
	}
}

func TestUndoRingBounded(t *testing.T) {
	root := t.TempDir()
	eng := NewEngine(root, Config{UndoLimit: 2})

	content := ""
	for i := 0; i < 5; i++ {
		next := content + "line\n"
		p, err := eng.Compute("f.txt", next)
		if err != nil {
			t.Fatal(err)
		}
		if err := eng.Apply(context.Background(), p); err != nil {
			t.Fatal(err)
		}
		content = next
	}

	if got := eng.UndoDepth(); got != 2 {
		t.Errorf("UndoDepth = %d, want 2", got)
	}
}

func TestApplyConcurrentSamePath(t *testing.T) {
	root := t.TempDir()
	eng := NewEngine(root, Config{})
	writeFile(t, root, "f.txt", "base\n")

	// Many goroutines race the same path; serialization means exactly
	// one wins (the rest see a stale base) and the file is never a mix.
	var wg sync.WaitGroup
	wins := 0
	var mu sync.Mutex
	for i := 0; i < 8; i++ {
		p, err := eng.Compute("f.txt", strings.Repeat("x", i+1)+"\n")
		if err != nil {
			t.Fatal(err)
		}
		wg.Add(1)
		go func(p *Patch) {
			defer wg.Done()
			if err := eng.Apply(context.Background(), p); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(p)
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("wins = %d, want exactly 1", wins)
	}
	got := readFile(t, root, "f.txt")
	if !strings.HasPrefix(got, "x") || !strings.HasSuffix(got, "\n") {
		t.Errorf("final content is a hybrid: %q", got)
	}
}

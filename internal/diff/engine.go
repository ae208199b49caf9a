package diff

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Backup snapshots a file before a mutation so the engine can restore it.
type Backup struct {
	Path    string // absolute path
	Content string
	Existed bool
	Mode    os.FileMode
	Taken   time.Time
}

// Config tunes the mutation engine.
type Config struct {
	ConfirmLimit int // changed lines above which Patch.Confirmed is required (0 = default)
	UndoLimit    int // backups retained for Undo (0 = default)
}

const (
	defaultConfirmLimit = 500
	defaultUndoLimit    = 20
)

// Engine applies patches transactionally inside one repository root.
// Applies on the same path are serialized; the engine may be shared by
// concurrent tasks.
type Engine struct {
	root         string
	confirmLimit int
	undoLimit    int

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	undoMu sync.Mutex
	undo   []Backup // most recent last, bounded by undoLimit
}

// NewEngine creates a mutation engine rooted at repoRoot.
func NewEngine(repoRoot string, cfg Config) *Engine {
	if cfg.ConfirmLimit == 0 {
		cfg.ConfirmLimit = defaultConfirmLimit
	}
	if cfg.UndoLimit == 0 {
		cfg.UndoLimit = defaultUndoLimit
	}
	return &Engine{
		root:         filepath.Clean(repoRoot),
		confirmLimit: cfg.ConfirmLimit,
		undoLimit:    cfg.UndoLimit,
		locks:        make(map[string]*sync.Mutex),
	}
}

// Root returns the repository root the engine mutates under.
func (e *Engine) Root() string { return e.root }

// Compute builds a patch for a repo-relative path against the file's
// current content.
func (e *Engine) Compute(relPath, proposed string) (*Patch, error) {
	abs, err := e.resolve(relPath)
	if err != nil {
		return nil, err
	}
	p, err := Compute(abs, proposed)
	if err != nil {
		return nil, err
	}
	p.Path = filepath.ToSlash(relPath)
	return p, nil
}

// Apply writes the patch to disk transactionally: snapshot, write,
// re-read, verify. On any failure the snapshot is restored and an
// ApplyError returned, so the file is never left in a hybrid state.
// Applying a patch whose After already matches the file is a no-op
// success, which makes re-apply idempotent.
func (e *Engine) Apply(ctx context.Context, p *Patch) error {
	if p == nil {
		return fmt.Errorf("nil patch")
	}
	if err := CheckPath(p.Path); err != nil {
		return err
	}
	abs, err := e.resolve(p.Path)
	if err != nil {
		return err
	}

	if e.confirmLimit > 0 && p.ChangedLines() > e.confirmLimit && !p.Confirmed {
		return &ConfirmationRequiredError{Path: p.Path, ChangedLines: p.ChangedLines(), Limit: e.confirmLimit}
	}

	lock := e.pathLock(abs)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	backup, err := e.snapshot(abs)
	if err != nil {
		return &ApplyError{Path: p.Path, Reason: "snapshot failed", Err: err}
	}

	// Stale patch detection: the file must still match what the diff
	// was computed against, unless the patch is already applied.
	if backup.Content != p.Before {
		if backup.Content == p.After {
			return nil
		}
		return &ApplyError{Path: p.Path, Reason: "file changed since the diff was computed"}
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return &ApplyError{Path: p.Path, Reason: "mkdir failed", Err: err}
	}

	mode := backup.Mode
	if mode == 0 {
		mode = 0o644
	}
	if err := os.WriteFile(abs, []byte(p.After), mode); err != nil {
		e.restore(backup)
		return &ApplyError{Path: p.Path, Reason: "write failed", Err: err}
	}

	// Verify what landed on disk is exactly the proposed content.
	written, err := os.ReadFile(abs)
	if err != nil {
		e.restore(backup)
		return &ApplyError{Path: p.Path, Reason: "verify read failed", Err: err}
	}
	if string(written) != p.After {
		e.restore(backup)
		return &ApplyError{Path: p.Path, Reason: "verification mismatch"}
	}

	e.retain(backup)
	return nil
}

// Undo restores the most recent retained backup for relPath. With an
// empty path it restores the most recent backup overall.
func (e *Engine) Undo(relPath string) (string, error) {
	e.undoMu.Lock()
	defer e.undoMu.Unlock()

	var absWanted string
	if relPath != "" {
		var err error
		absWanted, err = e.resolve(relPath)
		if err != nil {
			return "", err
		}
	}

	for i := len(e.undo) - 1; i >= 0; i-- {
		b := e.undo[i]
		if absWanted != "" && b.Path != absWanted {
			continue
		}
		if err := e.restore(b); err != nil {
			return "", fmt.Errorf("undo %s: %w", b.Path, err)
		}
		e.undo = append(e.undo[:i], e.undo[i+1:]...)
		rel, _ := filepath.Rel(e.root, b.Path)
		return filepath.ToSlash(rel), nil
	}

	if relPath != "" {
		return "", fmt.Errorf("no backup retained for %s", relPath)
	}
	return "", fmt.Errorf("nothing to undo")
}

// UndoDepth reports how many backups are currently retained.
func (e *Engine) UndoDepth() int {
	e.undoMu.Lock()
	defer e.undoMu.Unlock()
	return len(e.undo)
}

// resolve joins relPath onto the root and rejects escapes.
func (e *Engine) resolve(relPath string) (string, error) {
	if relPath == "" {
		return "", fmt.Errorf("empty path")
	}
	abs := filepath.Clean(filepath.Join(e.root, filepath.FromSlash(relPath)))
	if abs != e.root && !strings.HasPrefix(abs, e.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s escapes the repository root", relPath)
	}
	return abs, nil
}

func (e *Engine) pathLock(abs string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[abs]
	if !ok {
		l = &sync.Mutex{}
		e.locks[abs] = l
	}
	return l
}

func (e *Engine) snapshot(abs string) (Backup, error) {
	b := Backup{Path: abs, Taken: time.Now()}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return b, nil
		}
		return b, err
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return b, err
	}
	b.Existed = true
	b.Content = string(content)
	b.Mode = info.Mode().Perm()
	return b, nil
}

// restore puts a snapshot back on disk. Used both for rollback inside
// Apply and for explicit Undo.
func (e *Engine) restore(b Backup) error {
	if !b.Existed {
		if err := os.Remove(b.Path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	mode := b.Mode
	if mode == 0 {
		mode = 0o644
	}
	return os.WriteFile(b.Path, []byte(b.Content), mode)
}

func (e *Engine) retain(b Backup) {
	e.undoMu.Lock()
	defer e.undoMu.Unlock()
	e.undo = append(e.undo, b)
	if len(e.undo) > e.undoLimit {
		e.undo = e.undo[len(e.undo)-e.undoLimit:]
	}
}

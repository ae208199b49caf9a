package searcher

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher feeds filesystem changes back into the index. Events are
// debounced so a burst of writes triggers one reindex pass.
type Watcher struct {
	root     string
	walker   *Walker
	fs       *fsnotify.Watcher
	onChange func(changed []string)
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher creates a watcher over repoRoot. onChange receives the
// repo-relative paths that changed since the last flush.
func NewWatcher(repoRoot string, walker *Walker, onChange func([]string)) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &Watcher{
		root:     repoRoot,
		walker:   walker,
		fs:       fs,
		onChange: onChange,
		debounce: 500 * time.Millisecond,
		pending:  make(map[string]bool),
	}, nil
}

// Start registers every non-ignored directory and begins processing
// events until Stop is called.
func (w *Watcher) Start() error {
	err := filepath.WalkDir(w.root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return nil
		}
		if rel != "." && w.walker.Ignored(rel) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			log.Printf("WARNING: cannot watch %s: %v", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("register watches: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.wg.Add(2)
	go w.eventLoop(ctx)
	go w.flushLoop(ctx)
	return nil
}

// Stop halts event processing and closes the underlying watcher.
func (w *Watcher) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	return w.fs.Close()
}

func (w *Watcher) eventLoop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Printf("WARNING: watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil || w.walker.Ignored(rel) {
		return
	}

	// New directories need their own watch.
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.fs.Add(ev.Name); err != nil {
				log.Printf("WARNING: cannot watch new directory %s: %v", ev.Name, err)
			}
			return
		}
	}

	if DetectLang(ev.Name) == "" && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return
	}

	if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		w.mu.Lock()
		w.pending[filepath.ToSlash(rel)] = true
		w.mu.Unlock()
	}
}

func (w *Watcher) flushLoop(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	changed := make([]string, 0, len(w.pending))
	for p := range w.pending {
		changed = append(changed, p)
	}
	w.pending = make(map[string]bool)
	w.mu.Unlock()

	if w.onChange != nil {
		w.onChange(changed)
	}
}

// Package searcher provides a gitignore-aware full-text index over a
// repository, kept fresh by a filesystem watcher. It backs the
// codebase_search tool.
package searcher

import (
	"context"
	"fmt"
	"log"
)

// Searcher ties the walker, the index and the watcher together.
type Searcher struct {
	root    string
	walker  *Walker
	index   *Index
	watcher *Watcher
}

// Open walks repoRoot and builds the index. Call Watch afterwards to
// keep it current.
func Open(ctx context.Context, repoRoot string) (*Searcher, error) {
	walker := NewWalker(repoRoot)

	docs, err := walker.Walk(ctx)
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", repoRoot, err)
	}

	index, err := NewIndex()
	if err != nil {
		return nil, err
	}
	if err := index.Put(docs...); err != nil {
		index.Close()
		return nil, fmt.Errorf("build index: %w", err)
	}

	return &Searcher{root: repoRoot, walker: walker, index: index}, nil
}

// Watch starts the filesystem watcher so edits made during a task are
// reflected in later searches.
func (s *Searcher) Watch() error {
	if s.watcher != nil {
		return nil
	}
	w, err := NewWatcher(s.root, s.walker, s.refresh)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	s.watcher = w
	return nil
}

// refresh reindexes changed paths and drops deleted ones.
func (s *Searcher) refresh(changed []string) {
	var puts []Document
	var removes []string
	for _, rel := range changed {
		if doc, ok := s.walker.Load(rel); ok {
			puts = append(puts, doc)
		} else {
			removes = append(removes, rel)
		}
	}
	if len(puts) > 0 {
		if err := s.index.Put(puts...); err != nil {
			log.Printf("WARNING: reindex failed: %v", err)
		}
	}
	if len(removes) > 0 {
		if err := s.index.Remove(removes...); err != nil {
			log.Printf("WARNING: index removal failed: %v", err)
		}
	}
}

// Search runs a free-text query over the indexed repository.
func (s *Searcher) Search(query string, limit int) ([]Match, error) {
	return s.index.Search(query, limit)
}

// Count reports the number of indexed documents.
func (s *Searcher) Count() (uint64, error) {
	return s.index.Count()
}

// Close stops the watcher and releases the index.
func (s *Searcher) Close() error {
	if s.watcher != nil {
		if err := s.watcher.Stop(); err != nil {
			return err
		}
		s.watcher = nil
	}
	return s.index.Close()
}

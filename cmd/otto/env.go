package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"otto/internal/config"
	"otto/internal/diff"
	"otto/internal/engine"
	"otto/internal/searcher"
	"otto/internal/session"
	"otto/internal/tools"
)

// runtimeEnv holds the per-run backends the agent is wired to: the
// repository, the mutation engine, the search index and the archive.
type runtimeEnv struct {
	RepoRoot string
	Mutator  *diff.Engine
	Searcher *searcher.Searcher
	Archive  *session.Archive
	Registry *engine.Registry
}

func (r *runtimeEnv) Close() {
	if r.Searcher != nil {
		if err := r.Searcher.Close(); err != nil {
			log.Printf("WARNING: closing search index: %v", err)
		}
	}
	if r.Archive != nil {
		if err := r.Archive.Close(); err != nil {
			log.Printf("WARNING: closing task archive: %v", err)
		}
	}
}

// prepareRuntimeEnv resolves the repository root and brings up the
// shared backends. The search index and the archive are best effort:
// losing either degrades the run, it does not block it.
func prepareRuntimeEnv(ctx context.Context, manager *config.Manager, cfg *config.Config, repoFlag string) (*runtimeEnv, error) {
	repoRoot := repoFlag
	if repoRoot == "" {
		var err error
		repoRoot, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
	}
	absRoot, err := filepath.Abs(repoRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve repository path: %w", err)
	}
	if info, err := os.Stat(absRoot); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("repository path is not a directory: %s", absRoot)
	}

	env := &runtimeEnv{
		RepoRoot: absRoot,
		Mutator:  diff.NewEngine(absRoot, diff.Config{}),
	}

	s, err := searcher.Open(ctx, absRoot)
	if err != nil {
		log.Printf("WARNING: search index unavailable, codebase_search disabled: %v", err)
	} else {
		if err := s.Watch(); err != nil {
			log.Printf("WARNING: index watcher failed, searches may go stale: %v", err)
		}
		env.Searcher = s
	}

	if cfg.ArchiveTasks {
		if err := os.MkdirAll(manager.Dir(), 0o755); err == nil {
			archive, err := session.Open(ctx, manager.ArchivePath())
			if err != nil {
				log.Printf("WARNING: task archive unavailable: %v", err)
			} else {
				env.Archive = archive
			}
		}
	}

	set := engine.DefaultToolSet()
	set.Semantic = env.Searcher != nil

	reg, err := tools.NewRegistry(absRoot, tools.Deps{
		Mutator:  env.Mutator,
		Searcher: env.Searcher,
	}, set)
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("build tool registry: %w", err)
	}
	env.Registry = reg

	return env, nil
}

// Package tools wires the concrete tool implementations into an
// engine.Registry according to a ToolSet.
package tools

import (
	"otto/internal/diff"
	"otto/internal/engine"
	"otto/internal/searcher"
	"otto/internal/tools/editing"
	"otto/internal/tools/execution"
	"otto/internal/tools/filesystem"
	"otto/internal/tools/reasoning"
	"otto/internal/tools/search"
	"otto/internal/tools/vcs"
)

// Deps carries the shared backends the tools run on. Nil fields get
// sensible defaults, except Searcher: the semantic index needs explicit
// setup, so codebase_search is only registered when one is provided.
type Deps struct {
	Mutator  *diff.Engine       // transactional file mutation engine
	Runner   execution.Runner   // sandbox-backed command runner
	Searcher *searcher.Searcher // full-text index, optional
}

// NewRegistry builds a registry for repoRoot containing the categories
// enabled in set.
func NewRegistry(repoRoot string, deps Deps, set engine.ToolSet) (*engine.Registry, error) {
	if deps.Mutator == nil {
		deps.Mutator = diff.NewEngine(repoRoot, diff.Config{})
	}
	if deps.Runner == nil {
		deps.Runner = execution.NewSandboxRunner()
	}

	reg := engine.NewRegistry()
	add := func(ts ...engine.Tool) error {
		for _, t := range ts {
			if err := reg.Register(t); err != nil {
				return err
			}
		}
		return nil
	}

	if set.Filesystem {
		if err := add(
			filesystem.NewReadFileTool(repoRoot),
			filesystem.NewListFilesTool(repoRoot),
			filesystem.NewWriteFileTool(deps.Mutator),
			filesystem.NewDeleteFileTool(repoRoot),
		); err != nil {
			return nil, err
		}
	}

	if set.Search {
		if err := add(search.NewGrepTool(repoRoot, deps.Runner)); err != nil {
			return nil, err
		}
	}
	if set.Semantic && deps.Searcher != nil {
		if err := add(search.NewCodebaseSearchTool(deps.Searcher)); err != nil {
			return nil, err
		}
	}

	if set.Execution {
		if err := add(
			execution.NewRunCmdTool(repoRoot, deps.Runner),
			execution.NewRunTestsTool(repoRoot, deps.Runner),
			execution.NewRunBuildTool(repoRoot, deps.Runner),
		); err != nil {
			return nil, err
		}
	}

	if set.Editing {
		if err := add(editing.NewSearchReplaceTool(deps.Mutator)); err != nil {
			return nil, err
		}
	}

	if set.VCS {
		if err := add(
			vcs.NewGitStatusTool(repoRoot, deps.Runner),
			vcs.NewGitDiffTool(repoRoot, deps.Runner),
			vcs.NewGitLogTool(repoRoot, deps.Runner),
		); err != nil {
			return nil, err
		}
	}

	if set.Meta {
		if err := add(
			reasoning.NewThinkTool(),
			reasoning.NewRespondTool(),
		); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

// Package vcs provides read-only git inspection tools: git_status,
// git_diff and git_log. They shell out to git through the same runner
// the execution tools use, so sandboxing and timeouts apply.
package vcs

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"otto/internal/engine"
	"otto/internal/tools/execution"
)

const (
	gitTimeout    = 30 * time.Second
	defaultLogMax = 10
	maxLogMax     = 50
)

// checkScopePath rejects scoping paths that escape the repository.
// ".." only counts as a full segment; "a..b" is a legal name.
func checkScopePath(path string) error {
	if filepath.IsAbs(path) {
		return fmt.Errorf("path %s is absolute, must be relative to repo root", path)
	}
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if seg == ".." {
			return fmt.Errorf("path %s contains '..', which is not allowed", path)
		}
	}
	return nil
}

// runGit executes one git subcommand and folds the result into the
// shared ExecutionResult wire format.
func runGit(ctx context.Context, runner execution.Runner, repoRoot string, args ...string) (string, error) {
	res, err := runner.RunCmd(ctx, repoRoot, "git", args, gitTimeout)

	out := engine.ExecutionResult{
		Cmd:      "git " + strings.Join(args, " "),
		ExitCode: res.Code,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		Status:   "ok",
	}
	if res.Code != 0 || err != nil {
		out.Status = "failed"
		if err != nil {
			if strings.Contains(err.Error(), "executable file not found") {
				out.Status = "unavailable"
				out.Reason = "command_not_found"
			} else if out.Stderr == "" {
				out.Stderr = err.Error()
			}
		}
		if strings.Contains(res.Stderr, "not a git repository") {
			out.Status = "unavailable"
			out.Reason = "not_a_repository"
		}
	}

	data, merr := json.Marshal(out)
	if merr != nil {
		return "", merr
	}
	return string(data), nil
}

// NewGitStatusTool builds the git_status tool.
func NewGitStatusTool(repoRoot string, runner execution.Runner) engine.Tool {
	return engine.Tool{
		Name: "git_status",
		Description: "Shows the working tree status in porcelain format, including the current " +
			"branch. Use this to see which files are modified, staged or untracked.",
		SchemaJSON: `{"type":"object","properties":{},"required":[]}`,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			return runGit(ctx, runner, repoRoot, "status", "--porcelain=v1", "-b")
		},
		Retryable: true,
		Metadata: engine.ToolMetadata{
			Version:  "1.0.0",
			Category: "vcs",
			Tags:     []string{"read-only", "idempotent"},
		},
	}
}

// NewGitDiffTool builds the git_diff tool.
func NewGitDiffTool(repoRoot string, runner execution.Runner) engine.Tool {
	return engine.Tool{
		Name: "git_diff",
		Description: "Shows unstaged changes as a unified diff. Pass staged=true for the index " +
			"diff, or a path to restrict the diff to one file or directory.",
		SchemaJSON: `{"type":"object","properties":{
			"path":{"type":"string","description":"Optional: restrict the diff to this path"},
			"staged":{"type":"boolean","description":"If true, diff the index instead of the working tree"}
		},"required":[]}`,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			gitArgs := []string{"diff"}
			if staged, ok := args["staged"].(bool); ok && staged {
				gitArgs = append(gitArgs, "--cached")
			}
			if path, ok := args["path"].(string); ok && path != "" {
				if err := checkScopePath(path); err != nil {
					return "", err
				}
				gitArgs = append(gitArgs, "--", path)
			}
			return runGit(ctx, runner, repoRoot, gitArgs...)
		},
		Retryable: true,
		Metadata: engine.ToolMetadata{
			Version:  "1.0.0",
			Category: "vcs",
			Tags:     []string{"read-only", "idempotent"},
		},
	}
}

// NewGitLogTool builds the git_log tool.
func NewGitLogTool(repoRoot string, runner execution.Runner) engine.Tool {
	return engine.Tool{
		Name: "git_log",
		Description: "Shows recent commit history, one line per commit. Pass a path to see only " +
			"the commits touching it.",
		SchemaJSON: `{"type":"object","properties":{
			"limit":{"type":"integer","minimum":1,"maximum":50,"description":"Number of commits to show (default: 10)"},
			"path":{"type":"string","description":"Optional: restrict the log to this path"}
		},"required":[]}`,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			limit := defaultLogMax
			if l, ok := args["limit"].(float64); ok && int(l) > 0 {
				limit = int(l)
				if limit > maxLogMax {
					limit = maxLogMax
				}
			}
			gitArgs := []string{"log", "--oneline", "--no-decorate", "-n", strconv.Itoa(limit)}
			if path, ok := args["path"].(string); ok && path != "" {
				if err := checkScopePath(path); err != nil {
					return "", err
				}
				gitArgs = append(gitArgs, "--", path)
			}
			return runGit(ctx, runner, repoRoot, gitArgs...)
		},
		Retryable: true,
		Metadata: engine.ToolMetadata{
			Version:  "1.0.0",
			Category: "vcs",
			Tags:     []string{"read-only", "idempotent"},
		},
	}
}

package execution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"otto/internal/engine"
)

const (
	defaultRunCmdTimeout = 60 * time.Second
	maxRunCmdTimeout     = 5 * time.Minute
	minRunCmdTimeout     = 5 * time.Second
	defaultRunCmdLines   = 40
	minRunCmdLines       = 5
	maxRunCmdLines       = 200
	maxRunCmdChars       = 4000
)

// runCmdAllowlist is the closed set of commands run_cmd will execute.
// Anything else is rejected before reaching the sandbox.
var runCmdAllowlist = []string{
	// build tools
	"go", "gofmt", "goimports",
	"npm", "npx", "yarn", "pnpm", "bun",
	"python", "python3", "pip", "pip3", "pytest", "uv",
	"cargo", "rustc", "rustfmt",
	"make", "cmake",
	"gradle", "mvn",

	// linters and formatters
	"eslint", "prettier", "biome",
	"ruff", "black", "isort", "mypy", "flake8",
	"tsc", "node",
	"golangci-lint",
	"shellcheck",

	// file operations
	"mkdir", "touch", "rm", "cp", "mv",
	"cat", "head", "tail", "less",
	"ls", "find", "tree",
	"wc", "grep", "rg", "awk", "sed", "sort", "uniq", "diff",

	// version control
	"git",

	// network
	"curl", "wget",

	// shells
	"sh", "bash", "zsh",

	// utilities
	"echo", "printf", "date", "which", "env",
	"tar", "zip", "unzip", "gzip", "gunzip",
	"jq", "yq",
}

// runCmdImpl executes one allowlisted command and folds the sandbox
// result into the shared ExecutionResult wire format.
func runCmdImpl(ctx context.Context, runner Runner, repoRoot, cmd, argsStr string, timeout time.Duration, maxLines int) (string, error) {
	allowed := false
	for _, name := range runCmdAllowlist {
		if cmd == name {
			allowed = true
			break
		}
	}
	if !allowed {
		return marshalExecResult(engine.ExecutionResult{
			Cmd:      cmd,
			ExitCode: 1,
			Stderr: fmt.Sprintf("command %q is not in the allowlist. Allowed commands: %s",
				cmd, strings.Join(runCmdAllowlist, ", ")),
			Status: "failed",
		})
	}

	var args []string
	if argsStr != "" {
		args = splitArgs(argsStr)
	}

	if timeout <= 0 {
		timeout = defaultRunCmdTimeout
	}
	if timeout > maxRunCmdTimeout {
		timeout = maxRunCmdTimeout
	}

	result, err := runner.RunCmd(ctx, repoRoot, cmd, args, timeout)

	cmdStr := cmd
	if len(args) > 0 {
		cmdStr += " " + strings.Join(args, " ")
	}

	if maxLines <= 0 {
		maxLines = defaultRunCmdLines
	} else if maxLines > maxRunCmdLines {
		maxLines = maxRunCmdLines
	}

	stdout, stdoutTruncated := truncateOutput(result.Stdout, maxLines)
	stderr, stderrTruncated := truncateOutput(result.Stderr, maxLines)

	res := engine.ExecutionResult{
		Cmd:             cmdStr,
		ExitCode:        result.Code,
		Stdout:          stdout,
		Stderr:          stderr,
		StdoutTruncated: stdoutTruncated,
		StderrTruncated: stderrTruncated,
		Status:          "ok",
	}
	if result.TimedOut || errors.Is(err, context.DeadlineExceeded) {
		res.TimedOut = true
		res.Status = "failed"
	}
	if result.Code != 0 {
		res.Status = "failed"
	}

	return marshalExecResult(res)
}

func marshalExecResult(res engine.ExecutionResult) (string, error) {
	out, err := json.Marshal(res)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// splitArgs splits a space-separated argument string, honoring single
// and double quotes.
func splitArgs(argsStr string) []string {
	var args []string
	var current strings.Builder
	inQuotes := false
	quoteChar := byte(0)

	for i := 0; i < len(argsStr); i++ {
		c := argsStr[i]
		switch {
		case c == '"' || c == '\'':
			if !inQuotes {
				inQuotes = true
				quoteChar = c
			} else if c == quoteChar {
				inQuotes = false
				quoteChar = 0
			} else {
				current.WriteByte(c)
			}
		case c == ' ' && !inQuotes:
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		default:
			current.WriteByte(c)
		}
	}
	if current.Len() > 0 {
		args = append(args, current.String())
	}
	return args
}

func parseTimeoutArg(value any) time.Duration {
	var seconds float64
	switch v := value.(type) {
	case float64:
		seconds = v
	case int:
		seconds = float64(v)
	default:
		return defaultRunCmdTimeout
	}
	if seconds <= 0 {
		return defaultRunCmdTimeout
	}
	timeout := time.Duration(seconds) * time.Second
	if timeout < minRunCmdTimeout {
		return minRunCmdTimeout
	}
	if timeout > maxRunCmdTimeout {
		return maxRunCmdTimeout
	}
	return timeout
}

func parseMaxLinesArg(value any) int {
	var lines int
	switch v := value.(type) {
	case float64:
		lines = int(v)
	case int:
		lines = v
	default:
		return defaultRunCmdLines
	}
	if lines < minRunCmdLines {
		return minRunCmdLines
	}
	if lines > maxRunCmdLines {
		return maxRunCmdLines
	}
	return lines
}

// truncateOutput caps output at maxLines lines and maxRunCmdChars bytes.
func truncateOutput(output string, maxLines int) (string, bool) {
	if output == "" {
		return "", false
	}
	truncated := false
	lines := strings.Split(output, "\n")
	if len(lines) > maxLines {
		lines = lines[:maxLines]
		truncated = true
	}
	joined := strings.Join(lines, "\n")
	if len(joined) > maxRunCmdChars {
		joined = joined[:maxRunCmdChars]
		truncated = true
	}
	return joined, truncated
}

// NewRunCmdTool builds the run_cmd tool over the given runner.
func NewRunCmdTool(repoRoot string, runner Runner) engine.Tool {
	return engine.Tool{
		Name: "run_cmd",
		Description: "Runs a command with strict allowlist enforcement. Allowed: build tools " +
			"(go, npm, yarn, python, pip, cargo, make), linters (eslint, prettier, ruff, tsc), " +
			"file ops (ls, cat, grep, find, mkdir, rm, cp), git, curl/wget, shells (sh, bash) " +
			"and utilities (jq, tar, zip). Supports an optional timeout and output truncation.",
		SchemaJSON: `{"type":"object","properties":{
			"cmd":{"type":"string","description":"Command name (must be in the allowlist)"},
			"args":{"type":"string","description":"Command arguments as a space-separated string"},
			"timeout_seconds":{"type":"integer","minimum":5,"maximum":300,"description":"Maximum seconds to allow the command to run (default: 60)"},
			"max_output_lines":{"type":"integer","minimum":5,"maximum":200,"description":"Maximum stdout/stderr lines to return (default: 40)"}
		},"required":["cmd"]}`,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			cmd, ok := args["cmd"].(string)
			if !ok {
				return "", fmt.Errorf("cmd must be a string")
			}
			argsStr := ""
			if a, ok := args["args"].(string); ok {
				argsStr = a
			}
			timeout := parseTimeoutArg(args["timeout_seconds"])
			maxLines := parseMaxLinesArg(args["max_output_lines"])
			return runCmdImpl(ctx, runner, repoRoot, cmd, argsStr, timeout, maxLines)
		},
		Retryable:   true,
		Destructive: true, // arbitrary allowlisted commands can mutate the workspace
		Metadata: engine.ToolMetadata{
			Version:  "1.0.0",
			Category: "execution",
			Tags:     []string{"subprocess"},
		},
	}
}

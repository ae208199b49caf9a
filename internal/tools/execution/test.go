package execution

import (
	"context"
	"strings"

	"otto/internal/engine"
	"otto/internal/sandbox"
)

// runTestsImpl detects the project type and runs its conventional test
// command. An unknown or toolless project reports "unavailable", never
// a hard failure.
func runTestsImpl(ctx context.Context, runner Runner, repoRoot string) (string, error) {
	typ := sandbox.DetectProjectType(repoRoot)
	if typ == sandbox.ProjectUnknown {
		passed := false
		return marshalExecResult(engine.ExecutionResult{
			ExitCode: 1,
			Stderr:   "could not detect project type",
			Passed:   &passed,
			Status:   "unavailable",
			Reason:   "not_configured",
		})
	}

	cmdName, args := testCommand(typ)
	if cmdName == "" {
		passed := false
		return marshalExecResult(engine.ExecutionResult{
			ExitCode: 1,
			Stderr:   "no test command known for project type: " + string(typ),
			Passed:   &passed,
			Status:   "unavailable",
			Reason:   "not_configured",
		})
	}

	res, err := runner.RunCmd(ctx, repoRoot, cmdName, args, 0)

	cmdStr := cmdName
	if len(args) > 0 {
		cmdStr += " " + strings.Join(args, " ")
	}

	passed := err == nil && res.Code == 0
	out := engine.ExecutionResult{
		Cmd:      cmdStr,
		ExitCode: res.Code,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		Passed:   &passed,
		Status:   "ok",
	}
	if !passed {
		out.Status = "failed"
		if err != nil && strings.Contains(err.Error(), "executable file not found") {
			out.Status = "unavailable"
			out.Reason = "command_not_found"
		}
		if strings.Contains(res.Stdout, "no tests found") || strings.Contains(res.Stdout, "no tests") {
			out.Status = "unavailable"
			out.Reason = "not_configured"
		}
	}

	return marshalExecResult(out)
}

// NewRunTestsTool builds the run_tests tool over the given runner.
func NewRunTestsTool(repoRoot string, runner Runner) engine.Tool {
	return engine.Tool{
		Name: "run_tests",
		Description: "Runs the test suite. Detects the project type (Go, Node, Python, Rust) " +
			"and runs the conventional test command. The result reports whether tests passed.",
		SchemaJSON: `{"type":"object","properties":{},"required":[]}`,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			return runTestsImpl(ctx, runner, repoRoot)
		},
		Retryable: true,
		Metadata: engine.ToolMetadata{
			Version:  "1.0.0",
			Category: "execution",
			Tags:     []string{"subprocess", "idempotent"},
		},
	}
}

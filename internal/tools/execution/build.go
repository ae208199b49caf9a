package execution

import (
	"context"
	"strings"

	"otto/internal/engine"
	"otto/internal/sandbox"
)

// runBuildImpl detects the project type and runs its conventional build
// command. Python has no build step and reports "unavailable".
func runBuildImpl(ctx context.Context, runner Runner, repoRoot string) (string, error) {
	typ := sandbox.DetectProjectType(repoRoot)
	if typ == sandbox.ProjectUnknown {
		return marshalExecResult(engine.ExecutionResult{
			ExitCode: 1,
			Stderr:   "could not detect project type",
			Status:   "unavailable",
			Reason:   "not_configured",
		})
	}

	cmdName, args := buildCommand(typ)
	if cmdName == "" {
		if typ == sandbox.ProjectPython {
			return marshalExecResult(engine.ExecutionResult{
				Stdout: "Python projects typically have no build step",
				Status: "unavailable",
				Reason: "not_configured",
			})
		}
		return marshalExecResult(engine.ExecutionResult{
			ExitCode: 1,
			Stderr:   "no build command known for project type: " + string(typ),
			Status:   "unavailable",
			Reason:   "not_configured",
		})
	}

	res, err := runner.RunCmd(ctx, repoRoot, cmdName, args, 0)

	cmdStr := cmdName
	if len(args) > 0 {
		cmdStr += " " + strings.Join(args, " ")
	}

	out := engine.ExecutionResult{
		Cmd:      cmdStr,
		ExitCode: res.Code,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		Status:   "ok",
	}
	if res.Code != 0 || err != nil {
		out.Status = "failed"
		if err != nil && strings.Contains(err.Error(), "executable file not found") {
			out.Status = "unavailable"
			out.Reason = "command_not_found"
		}
	}

	return marshalExecResult(out)
}

// NewRunBuildTool builds the run_build tool over the given runner.
func NewRunBuildTool(repoRoot string, runner Runner) engine.Tool {
	return engine.Tool{
		Name: "run_build",
		Description: "Runs the build. Detects the project type (Go, Node, Rust) and runs the " +
			"conventional build command. Use after edits to confirm the project still compiles.",
		SchemaJSON: `{"type":"object","properties":{},"required":[]}`,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			return runBuildImpl(ctx, runner, repoRoot)
		},
		Retryable: true,
		Metadata: engine.ToolMetadata{
			Version:  "1.0.0",
			Category: "execution",
			Tags:     []string{"subprocess", "idempotent"},
		},
	}
}

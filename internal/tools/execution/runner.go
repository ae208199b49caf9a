// Package execution provides the run_cmd, run_tests and run_build tools.
// Commands go through the sandbox so they inherit its isolation mode,
// timeouts and the bounded subprocess slots.
package execution

import (
	"context"
	"time"

	"otto/internal/sandbox"
)

// Runner is the command backend the tools dispatch to. Tests substitute
// a mock; production wiring uses the sandbox.
type Runner interface {
	RunCmd(ctx context.Context, repoDir, name string, args []string, timeout time.Duration) (sandbox.Result, error)
}

// SandboxRunner adapts the default sandbox runner (Docker when
// available, host otherwise) to the Runner interface.
type SandboxRunner struct {
	runner sandbox.Runner
}

func NewSandboxRunner() *SandboxRunner {
	return &SandboxRunner{runner: sandbox.NewDefaultRunner()}
}

func (r *SandboxRunner) RunCmd(ctx context.Context, repoDir, name string, args []string, timeout time.Duration) (sandbox.Result, error) {
	return r.runner.RunCmd(ctx, repoDir, name, args, timeout)
}

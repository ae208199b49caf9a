package sandbox

import (
	"context"
	"time"
)

// Result captures the output of one command.
type Result struct {
	Stdout   string
	Stderr   string
	Code     int
	TimedOut bool
}

// Runner executes commands on behalf of the agent. Implementations
// differ in how much they isolate the command from the host.
type Runner interface {
	// RunCmd runs name with args inside repoDir. A timeout <= 0 uses the
	// runner's configured default.
	RunCmd(ctx context.Context, repoDir, name string, args []string, timeout time.Duration) (Result, error)
}

// Limiter bounds how many commands run at once. All runners built from
// the same config share one limiter, so a task cannot fork-bomb the host
// through parallel tool calls.
type Limiter chan struct{}

// NewLimiter creates a limiter with n slots. n <= 0 means unlimited.
func NewLimiter(n int) Limiter {
	if n <= 0 {
		return nil
	}
	return make(Limiter, n)
}

func (l Limiter) acquire(ctx context.Context) error {
	if l == nil {
		return nil
	}
	select {
	case l <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l Limiter) release() {
	if l == nil {
		return
	}
	<-l
}

// RunCmd runs a command with the default runner for the current
// environment. Use NewRunner for explicit control.
func RunCmd(ctx context.Context, repoDir, name string, args []string, timeout time.Duration) (Result, error) {
	return NewDefaultRunner().RunCmd(ctx, repoDir, name, args, timeout)
}

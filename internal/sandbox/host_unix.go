//go:build !windows
// +build !windows

package sandbox

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"syscall"
	"time"
)

const defaultCmdTimeout = 2 * time.Minute

// HostRunner runs commands directly on the host. No isolation; used for
// development or when Docker is unreachable.
type HostRunner struct {
	config Config
	limit  Limiter
}

func (r *HostRunner) timeout(requested time.Duration) time.Duration {
	if requested > 0 {
		return requested
	}
	if r.config.CmdTimeout > 0 {
		return r.config.CmdTimeout
	}
	return defaultCmdTimeout
}

// RunCmd runs name with args inside repoDir. The command gets its own
// process group so the whole tree dies on timeout, not just the parent.
func (r *HostRunner) RunCmd(ctx context.Context, repoDir, name string, args []string, timeout time.Duration) (Result, error) {
	if err := r.limit.acquire(ctx); err != nil {
		return Result{}, err
	}
	defer r.limit.release()

	cctx, cancel := context.WithTimeout(ctx, r.timeout(timeout))
	defer cancel()

	cmd := exec.Command(name, args...)
	cmd.Dir = repoDir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return Result{}, err
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-cctx.Done():
			if cmd.Process != nil {
				// Negative PID kills the whole process group.
				syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
			}
		case <-done:
		}
	}()

	waitErr := cmd.Wait()
	close(done)

	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if cctx.Err() != nil {
		res.TimedOut = true
	}

	if waitErr != nil {
		res.Code = 1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			res.Code = exitErr.ExitCode()
		}
		return res, waitErr
	}
	return res, nil
}

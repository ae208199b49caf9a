package sandbox

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Mode selects how commands are isolated.
type Mode string

const (
	// ModeDocker runs every command in a throwaway container.
	ModeDocker Mode = "docker"
	// ModeHost runs commands directly on the host, no isolation.
	ModeHost Mode = "host"
	// ModeAuto uses Docker when a daemon is reachable, host otherwise.
	ModeAuto Mode = "auto"
)

// Config tunes command execution.
type Config struct {
	Mode        Mode
	DockerImage string        // image override, empty = pick by project type
	CPU         string        // CPU limit, e.g. "2"
	Memory      string        // memory limit, e.g. "1g"
	CmdTimeout  time.Duration // default per-command timeout
	MaxProcs    int           // concurrent command slots (<= 0 = default)
}

const defaultMaxProcs = 4

// DefaultConfig reads the sandbox settings from OTTO_* environment
// variables.
func DefaultConfig() Config {
	mode := ModeAuto
	switch strings.ToLower(os.Getenv("OTTO_SANDBOX_MODE")) {
	case "docker":
		mode = ModeDocker
	case "host":
		mode = ModeHost
	case "auto", "":
	default:
		log.Printf("WARNING: unknown OTTO_SANDBOX_MODE %q, using auto", os.Getenv("OTTO_SANDBOX_MODE"))
	}

	cmdTimeout := 2 * time.Minute
	if v := os.Getenv("OTTO_CMD_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cmdTimeout = d
		} else {
			log.Printf("WARNING: invalid OTTO_CMD_TIMEOUT %q, using 2m", v)
		}
	}

	maxProcs := defaultMaxProcs
	if v := os.Getenv("OTTO_MAX_PROCS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxProcs = n
		}
	}

	return Config{
		Mode:        mode,
		DockerImage: os.Getenv("OTTO_DOCKER_IMAGE"),
		CPU:         envOrDefault("OTTO_DOCKER_CPU", "2"),
		Memory:      envOrDefault("OTTO_DOCKER_MEMORY", "1g"),
		CmdTimeout:  cmdTimeout,
		MaxProcs:    maxProcs,
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// IsDockerAvailable reports whether a Docker daemon answers.
func IsDockerAvailable(ctx context.Context) bool {
	cmd := exec.CommandContext(ctx, "docker", "ps")
	return cmd.Run() == nil
}

// NewDefaultRunner builds a runner from DefaultConfig, falling back to
// the host when Docker is requested but unreachable.
func NewDefaultRunner() Runner {
	cfg := DefaultConfig()
	limit := NewLimiter(cfg.MaxProcs)
	ctx := context.Background()

	switch cfg.Mode {
	case ModeDocker, ModeAuto:
		if IsDockerAvailable(ctx) {
			r, err := NewDockerRunner(cfg)
			if err == nil {
				r.limit = limit
				return r
			}
			log.Printf("WARNING: docker runner unavailable (%v), falling back to host", err)
		} else if cfg.Mode == ModeDocker {
			log.Printf("WARNING: docker mode requested but no daemon reachable, falling back to host")
		}
		fallthrough
	default:
		log.Printf("WARNING: running commands on the host without isolation")
		return &HostRunner{config: cfg, limit: limit}
	}
}

// NewRunner builds a specific runner implementation.
func NewRunner(mode Mode, cfg Config) (Runner, error) {
	limit := NewLimiter(cfg.MaxProcs)
	switch mode {
	case ModeDocker:
		r, err := NewDockerRunner(cfg)
		if err != nil {
			return nil, err
		}
		r.limit = limit
		return r, nil
	case ModeHost:
		return &HostRunner{config: cfg, limit: limit}, nil
	default:
		return nil, fmt.Errorf("unknown runner mode: %s", mode)
	}
}

// Command otto is an autonomous coding agent: it takes a task, loops an
// LLM over the repository tools, and stops on a final answer or an
// exhausted budget. A positional task runs single-shot; without one an
// interactive prompt loop starts.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"otto/internal/config"
	"otto/internal/engine"
	"otto/internal/providers"
	"otto/internal/session"
)

// Exit codes per terminal status.
const (
	exitOK         = 0
	exitOther      = 1
	exitStepLimit  = 2
	exitErrorLimit = 3
	exitFailed     = 4
)

func main() {
	os.Exit(run())
}

func run() int {
	// .env is optional; real env vars win either way.
	_ = godotenv.Load()

	var (
		flagSteps    = flag.Int("steps", 0, "maximum steps per task (0 = default)")
		flagErrors   = flag.Int("errors", -1, "error budget per task (-1 = default)")
		flagModel    = flag.String("model", "", "model name override")
		flagProvider = flag.String("provider", "", "LLM provider (openai, anthropic, deepseek, groq, gemini, ollama, lmstudio)")
		flagApproval = flag.String("approval", "", "approval mode: always, never, on-destructive")
		flagStream   = flag.Bool("stream", false, "stream model output")
		flagRepo     = flag.String("repo", "", "repository root (default: current directory)")
		flagYes      = flag.Bool("yes", false, "auto-approve destructive tool calls")
	)
	flag.Parse()

	manager, err := config.NewManager()
	if err != nil {
		log.Printf("config unavailable: %v", err)
		return exitOther
	}
	cfg, err := manager.Load()
	if err != nil {
		log.Printf("load config: %v", err)
		return exitOther
	}
	applyFlags(cfg, flagSteps, flagErrors, flagModel, flagProvider, flagApproval, flagStream)

	llm, modelName, err := providers.New(cfg.Provider, cfg.Model)
	if err != nil {
		log.Printf("provider setup: %v", err)
		return exitOther
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := prepareRuntimeEnv(ctx, manager, cfg, *flagRepo)
	if err != nil {
		log.Printf("environment setup: %v", err)
		return exitOther
	}
	defer env.Close()

	agent, err := buildAgent(cfg, env, llm, modelName, *flagYes)
	if err != nil {
		log.Printf("agent setup: %v", err)
		return exitOther
	}

	if task := strings.TrimSpace(strings.Join(flag.Args(), " ")); task != "" {
		return runTask(ctx, agent, task)
	}
	return interactiveLoop(ctx, agent)
}

// applyFlags layers explicit flags over the loaded config.
func applyFlags(cfg *config.Config, steps, errors *int, model, provider, approval *string, stream *bool) {
	if *steps > 0 {
		cfg.MaxSteps = *steps
	}
	if *errors >= 0 {
		cfg.MaxErrors = *errors
	}
	if *model != "" {
		cfg.Model = *model
	}
	if *provider != "" {
		cfg.Provider = *provider
	}
	if *approval != "" {
		cfg.ApprovalMode = *approval
	}
	if *stream {
		cfg.Streaming = true
	}
}

func buildAgent(cfg *config.Config, env *runtimeEnv, llm engine.LLMClient, modelName string, autoApprove bool) (*engine.Agent, error) {
	var approver engine.Approver = &stdinApprover{in: bufio.NewReader(os.Stdin)}
	mode := engine.ParseApprovalMode(cfg.ApprovalMode)
	if autoApprove {
		mode = engine.ApprovalNever
		approver = engine.AutoApprover{Decision: true}
	}

	hooks := engine.Hooks{engine.LoggerHook{L: log.Default()}}
	if env.Archive != nil {
		hooks = append(hooks, session.NewArchiveHook(env.Archive, env.RepoRoot))
	}

	b := engine.NewAgentBuilder().
		WithLLM(llm).
		WithModel(modelName).
		WithToolRegistry(env.Registry, env.RepoRoot).
		WithApproval(mode, approver).
		WithStreaming(cfg.Streaming).
		WithHooks(hooks)
	if cfg.MaxSteps > 0 {
		b = b.WithMaxSteps(cfg.MaxSteps)
	}
	if cfg.MaxErrors > 0 {
		b = b.WithMaxErrors(cfg.MaxErrors)
	}
	return b.Build()
}

// runTask executes one task and maps its terminal status to an exit code.
func runTask(ctx context.Context, agent *engine.Agent, request string) int {
	res, err := agent.Execute(ctx, request)
	if err != nil {
		log.Printf("task failed: %v", err)
		printLastSteps(agent.LastState())
		return exitFailed
	}

	switch res.Task.Status {
	case engine.TaskSucceeded:
		fmt.Println(res.FinalAnswer)
		fmt.Fprintf(os.Stderr, "done in %d steps, %d tokens\n", res.Steps, res.Usage.Total)
		return exitOK
	case engine.TaskAborted:
		fmt.Fprintf(os.Stderr, "aborted: %s after %d steps, %d errors\n",
			res.Task.Reason, res.Steps, res.Errors)
		printLastSteps(agent.LastState())
		if res.Task.Reason == engine.AbortErrorLimit {
			return exitErrorLimit
		}
		return exitStepLimit
	case engine.TaskFailed:
		fmt.Fprintf(os.Stderr, "failed: %s\n", res.Task.Reason)
		printLastSteps(agent.LastState())
		return exitFailed
	}
	return exitOther
}

// interactiveLoop reads tasks from stdin until EOF or an exit command.
func interactiveLoop(ctx context.Context, agent *engine.Agent) int {
	fmt.Println("otto interactive mode. Type a task, or 'exit' to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for {
		fmt.Print("otto> ")
		if !scanner.Scan() {
			fmt.Println()
			return exitOK
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return exitOK
		}
		if code := runTask(ctx, agent, line); code != exitOK {
			// Interactive runs keep going after a failed task.
			fmt.Fprintf(os.Stderr, "(exit code would be %d)\n", code)
		}
		if ctx.Err() != nil {
			return exitOther
		}
	}
}

// printLastSteps dumps the tail of the transcript so a failed run can
// be diagnosed without replaying it.
func printLastSteps(st *engine.State) {
	if st == nil || len(st.Steps) == 0 {
		return
	}
	const tail = 3
	start := len(st.Steps) - tail
	if start < 0 {
		start = 0
	}
	fmt.Fprintln(os.Stderr, "last steps:")
	for _, rec := range st.Steps[start:] {
		for i, call := range rec.Calls {
			outcome := "ok"
			if i < len(rec.Results) && !rec.Results[i].Success {
				outcome = "failed: " + rec.Results[i].Error
			}
			fmt.Fprintf(os.Stderr, "  step %d: %s %s\n", rec.Seq, call.Name, outcome)
		}
	}
}

// stdinApprover asks the user to confirm a destructive tool call.
type stdinApprover struct {
	in *bufio.Reader
}

func (a *stdinApprover) Approve(ctx context.Context, call engine.ToolCall) (bool, error) {
	fmt.Fprintf(os.Stderr, "approve %s with args %v? [y/N] ", call.Name, call.Args)
	line, err := a.in.ReadString('\n')
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

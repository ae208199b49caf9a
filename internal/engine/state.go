// Package engine provides agent orchestration functionality.

package engine

// State carries everything one task run accumulates. It is owned by a
// single goroutine; the loop mutates it in place between steps. Retries
// is the exception: tool retries fire from concurrent dispatch
// goroutines, so it is updated atomically.
type State struct {
	Task        *Task
	History     []ChatMessage // Conversation history, append-only per run
	Steps       []StepRecord  // One record per completed step, Seq 1..Step
	Step        int           // Completed steps (increments only on success)
	MaxSteps    int           // Step budget before aborting
	ErrorCount  int           // Failed tool results so far
	MaxErrors   int           // Error budget before aborting (0 = unlimited)
	Retries     int64         // Retry attempts, incremented via atomic.AddInt64
	Done        bool          // True once the model produced a final answer
	FinalAnswer string        // Final answer text once Done
	Model       string        // LLM model name
	Gate        *ApprovalGate // Optional approval gate for destructive tools
	Totals      Usage         // Accumulated token usage across all calls
}

func (s *State) Append(msg ChatMessage) { s.History = append(s.History, msg) }

// Record appends a step record. The caller assigns Seq = Step+1 so the
// sequence stays gapless.
func (s *State) Record(rec StepRecord) { s.Steps = append(s.Steps, rec) }

// Reset clears per-run progress so the state can drive a fresh task.
// The model name, budgets and gate survive the reset.
func (s *State) Reset(task *Task) {
	s.Task = task
	s.History = nil
	s.Steps = nil
	s.Step = 0
	s.ErrorCount = 0
	s.Retries = 0
	s.Done = false
	s.FinalAnswer = ""
	s.Totals = Usage{}
}

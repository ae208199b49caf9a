package engine

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskSucceeded TaskStatus = "succeeded" // model produced a final answer
	TaskFailed    TaskStatus = "failed"    // backend unreachable or internal fault
	TaskAborted   TaskStatus = "aborted"   // a budget was exhausted
)

// Abort reasons recorded on Task.Reason when the loop gives up.
const (
	AbortStepLimit  = "step limit"
	AbortErrorLimit = "error limit"
)

// Task is one unit of work handed to the agent.
type Task struct {
	ID        string
	Request   string
	CreatedAt time.Time
	Status    TaskStatus
	Reason    string // abort reason or failure detail, empty otherwise
}

// NewTask creates a pending task for the given request.
func NewTask(request string) *Task {
	return &Task{
		ID:        uuid.NewString(),
		Request:   request,
		CreatedAt: time.Now().UTC(),
		Status:    TaskPending,
	}
}

// Terminal reports whether the task reached a final status.
func (t *Task) Terminal() bool {
	switch t.Status {
	case TaskSucceeded, TaskFailed, TaskAborted:
		return true
	}
	return false
}

// StepRecord is the audit record of one loop iteration: the calls the
// model issued and the results observed, in matching order. Seq values
// are 1..k with no gaps within a task.
type StepRecord struct {
	Seq     int
	Calls   []ToolCall
	Results []ToolResult
}

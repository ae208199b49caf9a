package session

import (
	"context"
	"log"

	"otto/internal/engine"
)

// ArchiveHook persists the task when the loop reaches a terminal state.
// Archiving failures are logged, never surfaced: losing a transcript
// must not fail the task itself.
type ArchiveHook struct {
	engine.NopHook
	archive  *Archive
	repoPath string
}

// NewArchiveHook builds a hook that archives into a, scoped to repoPath.
func NewArchiveHook(a *Archive, repoPath string) *ArchiveHook {
	return &ArchiveHook{archive: a, repoPath: repoPath}
}

func (h *ArchiveHook) OnDone(ctx context.Context, st *engine.State) {
	h.save(ctx, st)
}

func (h *ArchiveHook) OnAbort(ctx context.Context, st *engine.State, _ string) {
	h.save(ctx, st)
}

func (h *ArchiveHook) save(ctx context.Context, st *engine.State) {
	if h.archive == nil {
		return
	}
	// The run context may already be cancelled when the task aborts.
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	if err := h.archive.Save(ctx, h.repoPath, st); err != nil {
		log.Printf("WARNING: task archive failed: %v", err)
	}
}

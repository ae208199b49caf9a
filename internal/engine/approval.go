package engine

import "context"

// ApprovalMode controls when destructive tool calls require confirmation.
type ApprovalMode string

const (
	ApprovalAlways        ApprovalMode = "always"         // every tool call is confirmed
	ApprovalNever         ApprovalMode = "never"          // no confirmation at all
	ApprovalOnDestructive ApprovalMode = "on-destructive" // only tools marked Destructive
)

// ParseApprovalMode maps a string to an ApprovalMode, defaulting to
// on-destructive for unrecognized values.
func ParseApprovalMode(s string) ApprovalMode {
	switch ApprovalMode(s) {
	case ApprovalAlways, ApprovalNever, ApprovalOnDestructive:
		return ApprovalMode(s)
	}
	return ApprovalOnDestructive
}

// Approver decides whether a suspended tool call may proceed. The CLI
// implements this by asking the user; tests and -yes mode use AutoApprover.
type Approver interface {
	Approve(ctx context.Context, call ToolCall) (bool, error)
}

// AutoApprover answers every request with a fixed decision.
type AutoApprover struct {
	Decision bool
}

func (a AutoApprover) Approve(_ context.Context, _ ToolCall) (bool, error) {
	return a.Decision, nil
}

// ApprovalGate pairs a mode with the approver that resolves suspensions.
type ApprovalGate struct {
	Mode     ApprovalMode
	Approver Approver
}

// required reports whether the given tool needs confirmation under this gate.
func (g *ApprovalGate) required(t Tool) bool {
	if g == nil || g.Approver == nil {
		return false
	}
	switch g.Mode {
	case ApprovalAlways:
		return true
	case ApprovalOnDestructive:
		return t.Destructive
	}
	return false
}

// Check suspends the loop on a gated call until the approver decides.
// It returns (true, nil) when the call may proceed.
func (g *ApprovalGate) Check(ctx context.Context, reg *Registry, call ToolCall) (bool, error) {
	if g == nil || g.Approver == nil {
		return true, nil
	}
	t, err := reg.Lookup(call.Name)
	if err != nil {
		// Unknown tools fail later in dispatch with a proper result.
		return true, nil
	}
	if !g.required(t) {
		return true, nil
	}
	return g.Approver.Approve(ctx, call)
}

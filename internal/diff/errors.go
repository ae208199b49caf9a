package diff

import "fmt"

// ApplyError reports an apply that was rolled back. After an ApplyError
// the target file holds its pre-apply content.
type ApplyError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ApplyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("apply %s failed (rolled back): %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("apply %s failed (rolled back): %s", e.Path, e.Reason)
}

func (e *ApplyError) Unwrap() error { return e.Err }

// ConfirmationRequiredError pauses an over-threshold patch until someone
// sets Patch.Confirmed.
type ConfirmationRequiredError struct {
	Path         string
	ChangedLines int
	Limit        int
}

func (e *ConfirmationRequiredError) Error() string {
	return fmt.Sprintf("patch for %s changes %d lines (limit %d): confirmation required", e.Path, e.ChangedLines, e.Limit)
}

package diff

import (
	"fmt"
	"os"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// OpKind classifies one line edit.
type OpKind int

const (
	OpEqual OpKind = iota
	OpInsert
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpInsert:
		return "insert"
	case OpDelete:
		return "delete"
	}
	return "equal"
}

// Edit is a single line-level operation. Text carries one line without
// its trailing newline.
type Edit struct {
	Kind OpKind
	Text string
}

// Patch describes one proposed mutation of one file. It is computed
// fresh against the file's current content and applied atomically by
// Engine.Apply. Patches are plain data; rendering a preview does not
// touch the filesystem.
type Patch struct {
	Path      string // target path, absolute or repo-relative per the engine's root
	Before    string // content the diff was computed against ("" for new files)
	After     string // proposed content
	Edits     []Edit // ordered line operations from Before to After
	Added     int
	Deleted   int
	Binary    bool
	Creates   bool // true when Before did not exist
	Confirmed bool // set once a human approved an over-threshold patch
}

// ChangedLines is the patch's size for threshold checks.
func (p *Patch) ChangedLines() int {
	return p.Added + p.Deleted
}

// Empty reports whether the patch changes nothing.
func (p *Patch) Empty() bool {
	return p.Before == p.After
}

// Compute reads the file at path and produces a deterministic line-level
// patch that turns its current content into proposed. A missing file
// yields a creation patch from empty content.
func Compute(path, proposed string) (*Patch, error) {
	current, err := os.ReadFile(path)
	creates := false
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		creates = true
	}

	return ComputeFromContent(path, string(current), proposed, creates), nil
}

// ComputeFromContent builds a patch from in-memory contents. Pure; the
// same inputs always produce the same edit script.
func ComputeFromContent(path, before, after string, creates bool) *Patch {
	p := &Patch{
		Path:    path,
		Before:  before,
		After:   after,
		Creates: creates,
	}

	if before == after {
		return p
	}

	if isBinary(before) || isBinary(after) {
		p.Binary = true
		return p
	}

	// Line-mode diff: map lines to runes, diff the runes, map back.
	dmp := diffmatchpatch.New()
	beforeRunes, afterRunes, lineIndex := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(beforeRunes, afterRunes, false)
	diffs = dmp.DiffCharsToLines(diffs, lineIndex)

	for _, d := range diffs {
		kind := OpEqual
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			kind = OpInsert
		case diffmatchpatch.DiffDelete:
			kind = OpDelete
		}
		for _, line := range splitLines(d.Text) {
			p.Edits = append(p.Edits, Edit{Kind: kind, Text: line})
			switch kind {
			case OpInsert:
				p.Added++
			case OpDelete:
				p.Deleted++
			}
		}
	}

	return p
}

// Unified renders the patch as a unified diff with three lines of
// context per hunk. Pure; safe to show before applying.
func (p *Patch) Unified() string {
	if p.Empty() {
		return ""
	}
	if p.Binary {
		return fmt.Sprintf("Binary file %s changed\n", p.Path)
	}

	const context = 3

	var b strings.Builder
	fmt.Fprintf(&b, "--- a/%s\n", p.Path)
	fmt.Fprintf(&b, "+++ b/%s\n", p.Path)

	// Walk edits grouping changed runs into hunks with surrounding context.
	type hunk struct {
		oldStart, oldCount int
		newStart, newCount int
		lines              []string
	}

	oldLine, newLine := 1, 1
	var hunks []*hunk
	var cur *hunk
	var trailing int // equal lines since the last change in the open hunk

	flush := func() {
		if cur == nil {
			return
		}
		// Trim surplus trailing context beyond the window.
		if trailing > context {
			drop := trailing - context
			cur.lines = cur.lines[:len(cur.lines)-drop]
			cur.oldCount -= drop
			cur.newCount -= drop
		}
		hunks = append(hunks, cur)
		cur = nil
		trailing = 0
	}

	var pending []string // equal lines that may become leading context
	for _, e := range p.Edits {
		switch e.Kind {
		case OpEqual:
			if cur != nil {
				cur.lines = append(cur.lines, " "+e.Text)
				cur.oldCount++
				cur.newCount++
				trailing++
				if trailing > context*2 {
					flush()
				}
			} else {
				pending = append(pending, e.Text)
				if len(pending) > context {
					pending = pending[1:]
				}
			}
			oldLine++
			newLine++
		case OpDelete, OpInsert:
			if cur == nil {
				cur = &hunk{
					oldStart: oldLine - len(pending),
					newStart: newLine - len(pending),
				}
				for _, l := range pending {
					cur.lines = append(cur.lines, " "+l)
					cur.oldCount++
					cur.newCount++
				}
				pending = nil
			}
			trailing = 0
			if e.Kind == OpDelete {
				cur.lines = append(cur.lines, "-"+e.Text)
				cur.oldCount++
				oldLine++
			} else {
				cur.lines = append(cur.lines, "+"+e.Text)
				cur.newCount++
				newLine++
			}
		}
	}
	flush()

	for _, h := range hunks {
		oldStart := h.oldStart
		if h.oldCount == 0 {
			oldStart = h.oldStart - 1
		}
		newStart := h.newStart
		if h.newCount == 0 {
			newStart = h.newStart - 1
		}
		fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", oldStart, h.oldCount, newStart, h.newCount)
		for _, l := range h.lines {
			b.WriteString(l)
			b.WriteByte('\n')
		}
	}

	return b.String()
}

// Summary returns a one-line description of the patch size.
func (p *Patch) Summary() string {
	if p.Binary {
		return "binary file changed"
	}
	if p.Empty() {
		return "no changes"
	}
	var parts []string
	if p.Added > 0 {
		parts = append(parts, fmt.Sprintf("+%d lines", p.Added))
	}
	if p.Deleted > 0 {
		parts = append(parts, fmt.Sprintf("-%d lines", p.Deleted))
	}
	return strings.Join(parts, ", ")
}

// splitLines splits a diff chunk into lines without trailing newlines.
// A chunk ending in "\n" does not produce a phantom empty line.
func splitLines(chunk string) []string {
	if chunk == "" {
		return nil
	}
	trimmed := strings.TrimSuffix(chunk, "\n")
	return strings.Split(trimmed, "\n")
}

// isBinary checks the first 8000 bytes for NUL.
func isBinary(content string) bool {
	checkLen := len(content)
	if checkLen > 8000 {
		checkLen = 8000
	}
	for i := 0; i < checkLen; i++ {
		if content[i] == 0 {
			return true
		}
	}
	return false
}

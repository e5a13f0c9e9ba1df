// Package textedit applies batches of line-range edits to a single text
// file. Changes are accumulated, then validated and applied in one pass by
// SaveChanges: every validation failure is raised before any byte is
// written, so a failed batch leaves the file untouched. This is single-file
// atomicity, not a distributed transaction.
//
// Positions are 0-indexed and ranges are half-open. Negative positions are
// relative to the end of the file, with -1 resolving to the line count
// (one past the last line); Append sorts after every positioned change.
package textedit

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/exp/slices"
)

// ChangeKind discriminates the edit operations.
type ChangeKind int

const (
	KindInsert ChangeKind = iota
	KindDelete
	KindReplace
	KindAppend
)

func (k ChangeKind) String() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindDelete:
		return "delete"
	case KindReplace:
		return "replace"
	case KindAppend:
		return "append"
	default:
		return "unknown"
	}
}

// Change is one edit operation against a file. Build changes with the
// Insert, Delete, Replace, and Append constructors.
type Change struct {
	Kind  ChangeKind
	Begin int
	End   int
	Lines []string
}

// Insert places lines before the line at position at.
func Insert(at int, lines []string) Change {
	return Change{Kind: KindInsert, Begin: at, End: at, Lines: lines}
}

// Delete removes the half-open line range [begin, end).
func Delete(begin, end int) Change {
	return Change{Kind: KindDelete, Begin: begin, End: end}
}

// Replace substitutes the half-open line range [begin, end) with lines.
func Replace(begin, end int, lines []string) Change {
	return Change{Kind: KindReplace, Begin: begin, End: end, Lines: lines}
}

// Append adds lines after the last line of the file.
func Append(lines []string) Change {
	return Change{Kind: KindAppend, Lines: lines}
}

func (c Change) String() string {
	switch c.Kind {
	case KindAppend:
		return fmt.Sprintf("append %d line(s)", len(c.Lines))
	case KindInsert:
		return fmt.Sprintf("insert %d line(s) at %d", len(c.Lines), c.Begin)
	default:
		return fmt.Sprintf("%s [%d, %d)", c.Kind, c.Begin, c.End)
	}
}

// OverlapError reports two changes whose resolved ranges overlap.
type OverlapError struct {
	First  Change
	Second Change
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("changes overlap: %s and %s", e.First, e.Second)
}

// DoubleInsertError reports two zero-width changes at the same position.
type DoubleInsertError struct {
	Line int
}

func (e *DoubleInsertError) Error() string {
	return fmt.Sprintf("double insertion at line %d", e.Line)
}

// OutOfBoundsError reports a change whose resolved position falls outside
// the file.
type OutOfBoundsError struct {
	Change    Change
	LineCount int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("change %s is out of bounds for a %d-line file", e.Change, e.LineCount)
}

// endOfFile is the resolved position of Append changes; it sorts after any
// line position.
const endOfFile = int(^uint(0) >> 1)

// Editor accumulates changes against one file.
type Editor struct {
	path    string
	lines   []string
	changes []Change
}

// NewEditor opens path for editing, creating an empty file if it does not
// exist. The file content is read once; SaveChanges writes the patched
// result wholesale.
func NewEditor(path string) (*Editor, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", path, err)
		}
		data = nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return &Editor{path: path, lines: splitLines(data)}, nil
}

// LineCount returns the number of lines in the file as read.
func (e *Editor) LineCount() int { return len(e.lines) }

// TrailingBlank reports whether the last line of the file is blank.
func (e *Editor) TrailingBlank() bool {
	if len(e.lines) == 0 {
		return false
	}
	return strings.TrimSpace(e.lines[len(e.lines)-1]) == ""
}

// Edit queues changes for the next SaveChanges call.
func (e *Editor) Edit(changes ...Change) {
	e.changes = append(e.changes, changes...)
}

// resolve converts a change's position to absolute line numbers. Negative
// positions count from the end of the file; Append resolves to endOfFile.
func (e *Editor) resolve(c Change) (begin, end int) {
	if c.Kind == KindAppend {
		return endOfFile, endOfFile
	}
	begin, end = c.Begin, c.End
	if begin < 0 {
		begin += len(e.lines) + 1
	}
	if end < 0 {
		end += len(e.lines) + 1
	}
	return begin, end
}

// validate checks the queued changes after sorting: ranges must not
// overlap, zero-width changes must not collide, and every positioned
// change must fall inside the file.
func (e *Editor) validate() error {
	for i := 0; i+1 < len(e.changes); i++ {
		begin, end := e.resolve(e.changes[i])
		nextBegin, nextEnd := e.resolve(e.changes[i+1])

		if begin <= nextBegin && nextBegin < end {
			return &OverlapError{First: e.changes[i], Second: e.changes[i+1]}
		}
		if begin == end && nextBegin == begin && nextEnd == end && begin != endOfFile {
			return &DoubleInsertError{Line: begin}
		}
	}

	for _, c := range e.changes {
		begin, end := e.resolve(c)
		if begin == endOfFile {
			continue
		}
		if begin < 0 || end < begin || end > len(e.lines) {
			return &OutOfBoundsError{Change: c, LineCount: len(e.lines)}
		}
	}
	return nil
}

// SaveChanges validates the queued changes and writes the patched file to
// toPath, or to the original path when toPath is empty. On a validation
// error nothing is written and the queue is left intact so the caller can
// inspect it.
func (e *Editor) SaveChanges(toPath string) error {
	slices.SortStableFunc(e.changes, func(a, b Change) int {
		ab, ae := e.resolve(a)
		bb, be := e.resolve(b)
		if ab != bb {
			return ab - bb
		}
		return ae - be
	})

	if err := e.validate(); err != nil {
		return err
	}

	out := e.apply()

	path := toPath
	if path == "" {
		path = e.path
	}
	if err := os.WriteFile(path, []byte(joinLines(out)), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	e.lines = out
	e.changes = e.changes[:0]
	return nil
}

// apply streams through the original lines once, splicing in the sorted
// changes.
func (e *Editor) apply() []string {
	out := make([]string, 0, len(e.lines))

	changeIdx := 0
	lineIdx := 0
	for lineIdx < len(e.lines) {
		if changeIdx >= len(e.changes) {
			out = append(out, e.lines[lineIdx:]...)
			lineIdx = len(e.lines)
			break
		}

		c := e.changes[changeIdx]
		begin, end := e.resolve(c)

		// Everything left is appends; copy the rest of the file first.
		if begin == endOfFile {
			out = append(out, e.lines[lineIdx:]...)
			lineIdx = len(e.lines)
			break
		}

		if lineIdx < begin {
			out = append(out, e.lines[lineIdx:begin]...)
			lineIdx = begin
			continue
		}

		switch c.Kind {
		case KindInsert:
			out = append(out, c.Lines...)
		case KindDelete:
			lineIdx = end
		case KindReplace:
			out = append(out, c.Lines...)
			lineIdx = end
		}
		changeIdx++
	}

	// Emit insert/replace changes positioned at end-of-file, then appends.
	for ; changeIdx < len(e.changes); changeIdx++ {
		out = append(out, e.changes[changeIdx].Lines...)
	}

	return out
}

// splitLines breaks file content into lines without terminators.
func splitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	s := strings.TrimSuffix(string(data), "\n")
	if s == "" {
		return []string{""}
	}
	return strings.Split(s, "\n")
}

// joinLines renders lines back to newline-terminated file content.
func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

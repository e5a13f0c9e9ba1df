package ledger

import (
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/beanbot-go/beanbot/ast"
)

// EndOfFile marks a line range that extends to the end of its file. It is
// the same sentinel the text patch engine resolves for negative positions.
const EndOfFile = -1

// LineRange is the half-open, 0-indexed span of lines a directive occupies
// in its source file. A directive's range runs from its own starting line
// to the starting line of the next directive in the same file; the last
// directive's range extends to the end of the file.
type LineRange struct {
	Begin int
	End   int
}

func (r LineRange) String() string {
	if r.End == EndOfFile {
		return fmt.Sprintf("[%d, eof)", r.Begin)
	}
	return fmt.Sprintf("[%d, %d)", r.Begin, r.End)
}

// computeRanges derives line ranges for directives grouped per file. The
// returned map is keyed by stable ID; byFile lists each file's IDs in line
// order. Ranges cover the whole file: every line belongs to exactly one
// directive's range (leading lines before the first directive excepted).
func computeRanges(entries map[string]ast.Directive) (ranges map[string]LineRange, byFile map[string][]string) {
	ranges = make(map[string]LineRange, len(entries))
	byFile = make(map[string][]string)

	for id, d := range entries {
		file := d.Meta().SourceFile()
		if file == "" {
			continue
		}
		byFile[file] = append(byFile[file], id)
	}

	for file, ids := range byFile {
		slices.SortFunc(ids, func(a, b string) int {
			return entries[a].Meta().SourceLine() - entries[b].Meta().SourceLine()
		})

		for i, id := range ids {
			begin := entries[id].Meta().SourceLine() - 1
			end := EndOfFile
			if i+1 < len(ids) {
				end = entries[ids[i+1]].Meta().SourceLine() - 1
			}
			ranges[id] = LineRange{Begin: begin, End: end}
		}
		byFile[file] = ids
	}

	return ranges, byFile
}

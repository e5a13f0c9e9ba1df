package parser

import (
	"fmt"
	"strings"
)

// ParseError reports a syntax problem at a specific line of a ledger file.
type ParseError struct {
	Filename string
	Line     int
	Message  string
}

func (e *ParseError) Error() string {
	if e.Filename != "" {
		return fmt.Sprintf("%s:%d: %s", e.Filename, e.Line, e.Message)
	}
	return fmt.Sprintf("%d: %s", e.Line, e.Message)
}

// ErrorList collects every parse error found in one file. Parsing does not
// stop at the first problem; callers get the full list.
type ErrorList []*ParseError

func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return "no parse errors"
	case 1:
		return l[0].Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d parse errors:", len(l))
	for _, e := range l {
		b.WriteString("\n\t")
		b.WriteString(e.Error())
	}
	return b.String()
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (l ErrorList) Unwrap() []error {
	errs := make([]error, len(l))
	for i, e := range l {
		errs[i] = e
	}
	return errs
}

func (p *fileParser) errorf(line int, format string, args ...any) {
	p.errs = append(p.errs, &ParseError{
		Filename: p.filename,
		Line:     line,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Package printer renders directives back to ledger text. The output is
// the engine's half of the round-trip contract: re-parsing a printed
// directive yields an equivalent directive, including its metadata (minus
// the in-memory source location keys).
package printer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/beanbot-go/beanbot/ast"
)

const (
	// DefaultCurrencyColumn is the column currencies are aligned to,
	// matching bean-format behavior.
	DefaultCurrencyColumn = 52

	// DefaultIndent is the indentation for postings and metadata.
	DefaultIndent = 2

	// minimumSpacing separates an account from its amount when the
	// currency column cannot be honored.
	minimumSpacing = 2
)

// Printer renders directives with configurable alignment.
type Printer struct {
	// CurrencyColumn is the target column for currency alignment.
	CurrencyColumn int

	// Indent is the indentation width for postings and metadata.
	Indent int
}

// Option configures a Printer.
type Option func(*Printer)

// WithCurrencyColumn sets the column currencies are aligned to.
func WithCurrencyColumn(col int) Option {
	return func(p *Printer) {
		p.CurrencyColumn = col
	}
}

// WithIndent sets the indentation width for postings and metadata.
func WithIndent(width int) Option {
	return func(p *Printer) {
		p.Indent = width
	}
}

// New creates a Printer with the given options.
func New(opts ...Option) *Printer {
	p := &Printer{
		CurrencyColumn: DefaultCurrencyColumn,
		Indent:         DefaultIndent,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PrintLines renders a directive as its source lines, without trailing
// blank separators. The switch is exhaustive over the directive union.
func (p *Printer) PrintLines(d ast.Directive) []string {
	var lines []string

	switch v := d.(type) {
	case *ast.Transaction:
		lines = append(lines, p.transactionHeader(v))
		lines = append(lines, p.metadataLines(v.Meta())...)
		for _, posting := range v.Postings {
			lines = append(lines, p.postingLine(posting))
		}
		return lines

	case *ast.Open:
		header := fmt.Sprintf("%s open %s", v.Date, v.Account)
		if len(v.Currencies) > 0 {
			header += " " + strings.Join(v.Currencies, ",")
		}
		if v.BookingMethod != "" {
			header += fmt.Sprintf(" %q", v.BookingMethod)
		}
		lines = append(lines, header)

	case *ast.Close:
		lines = append(lines, fmt.Sprintf("%s close %s", v.Date, v.Account))

	case *ast.Commodity:
		lines = append(lines, fmt.Sprintf("%s commodity %s", v.Date, v.Currency))

	case *ast.Balance:
		lines = append(lines, p.aligned(fmt.Sprintf("%s balance %s", v.Date, v.Account), v.Amount))

	case *ast.Pad:
		lines = append(lines, fmt.Sprintf("%s pad %s %s", v.Date, v.Account, v.AccountPad))

	case *ast.Note:
		lines = append(lines, fmt.Sprintf("%s note %s %s", v.Date, v.Account, quote(v.Comment)))

	case *ast.Document:
		lines = append(lines, fmt.Sprintf("%s document %s %s", v.Date, v.Account, quote(v.Path)))

	case *ast.Price:
		lines = append(lines, fmt.Sprintf("%s price %s %s", v.Date, v.Commodity, v.Amount))

	case *ast.Event:
		lines = append(lines, fmt.Sprintf("%s event %s %s", v.Date, quote(v.Name), quote(v.Value)))

	case *ast.Custom:
		parts := []string{fmt.Sprintf("%s custom %s", v.Date, quote(v.Type))}
		for _, value := range v.Values {
			parts = append(parts, customValue(value))
		}
		lines = append(lines, strings.Join(parts, " "))
	}

	lines = append(lines, p.metadataLines(d.Meta())...)
	return lines
}

// Print renders a directive as newline-terminated text.
func (p *Printer) Print(d ast.Directive) string {
	return strings.Join(p.PrintLines(d), "\n") + "\n"
}

func (p *Printer) transactionHeader(txn *ast.Transaction) string {
	parts := []string{txn.Date.String(), txn.Flag}
	if txn.Payee != "" {
		parts = append(parts, quote(txn.Payee))
	}
	if txn.Narration != "" || txn.Payee != "" {
		parts = append(parts, quote(txn.Narration))
	}
	for _, tag := range txn.Tags {
		parts = append(parts, "#"+tag)
	}
	for _, link := range txn.Links {
		parts = append(parts, "^"+link)
	}
	return strings.Join(parts, " ")
}

func (p *Printer) postingLine(posting *ast.Posting) string {
	prefix := strings.Repeat(" ", p.Indent)
	if posting.Flag != "" {
		prefix += posting.Flag + " "
	}
	prefix += string(posting.Account)

	if posting.Amount == nil {
		return prefix
	}
	return p.alignAmount(prefix, posting.Amount)
}

// aligned renders a directive header followed by a column-aligned amount.
func (p *Printer) aligned(prefix string, amount *ast.Amount) string {
	if amount == nil {
		return prefix
	}
	return p.alignAmount(prefix, amount)
}

// alignAmount pads between prefix and value so the currency starts at the
// configured column when there is room.
func (p *Printer) alignAmount(prefix string, amount *ast.Amount) string {
	pad := p.CurrencyColumn - runewidth.StringWidth(prefix) - runewidth.StringWidth(amount.Value) - 1
	if pad < minimumSpacing {
		pad = minimumSpacing
	}
	return prefix + strings.Repeat(" ", pad) + amount.Value + " " + amount.Currency
}

// metadataLines renders the user-visible metadata entries, sorted by key
// for deterministic output. Source location keys never reach disk.
func (p *Printer) metadataLines(meta ast.Meta) []string {
	keys := meta.UserKeys()
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)

	indent := strings.Repeat(" ", p.Indent)
	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, fmt.Sprintf("%s%s: %s", indent, key, quote(meta[key])))
	}
	return lines
}

func customValue(cv *ast.CustomValue) string {
	switch {
	case cv.String != nil:
		return quote(*cv.String)
	case cv.Amount != nil:
		return cv.Amount.String()
	default:
		return cv.Text()
	}
}

// quote renders a string in double quotes, escaping quotes and backslashes.
func quote(s string) string {
	if !strings.ContainsAny(s, `"\`) {
		return `"` + s + `"`
	}

	var b strings.Builder
	b.Grow(len(s) + 10)
	b.WriteByte('"')
	for _, c := range s {
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteRune(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

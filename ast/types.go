package ast

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Reserved metadata keys maintained by the storage engine. User metadata
// must not use them; the printer emits MetaStableID but never the source
// location keys, which only exist in memory.
const (
	// MetaStableID holds the persistent identity token of a directive.
	MetaStableID = "bbid"

	// MetaFilename holds the absolute path of the source file.
	MetaFilename = "filename"

	// MetaLineno holds the 1-indexed starting line in the source file.
	MetaLineno = "lineno"
)

// Meta is the metadata map attached to every directive. Values are kept in
// their textual form; typed access goes through the helper methods.
type Meta map[string]string

// Clone returns an independent copy of the metadata map.
func (m Meta) Clone() Meta {
	c := make(Meta, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// StableID returns the persistent identity token, or "" when the directive
// has not been identified yet.
func (m Meta) StableID() string { return m[MetaStableID] }

// SetStableID records the persistent identity token.
func (m Meta) SetStableID(id string) { m[MetaStableID] = id }

// SourceFile returns the absolute path of the file this directive was
// parsed from, or "" for programmatically constructed directives.
func (m Meta) SourceFile() string { return m[MetaFilename] }

// SourceLine returns the 1-indexed starting line of this directive in its
// source file, or 0 when unknown.
func (m Meta) SourceLine() int {
	n, _ := strconv.Atoi(m[MetaLineno])
	return n
}

// SetSource records the source location of a directive.
func (m Meta) SetSource(filename string, lineno int) {
	m[MetaFilename] = filename
	m[MetaLineno] = strconv.Itoa(lineno)
}

// UserKeys returns the metadata keys that should survive printing, i.e.
// everything except the in-memory source location entries. The stable ID is
// included since it must persist on disk.
func (m Meta) UserKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		if k == MetaFilename || k == MetaLineno {
			continue
		}
		keys = append(keys, k)
	}
	return keys
}

// Date represents a calendar date in ISO 8601 format (YYYY-MM-DD).
type Date struct {
	time.Time
}

// ParseDate parses an ISO 8601 date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q", s)
	}
	return Date{t}, nil
}

// MustDate parses an ISO 8601 date and panics on failure. For tests and
// static initialization only.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// String renders the date in ISO 8601 format.
func (d Date) String() string { return d.Format("2006-01-02") }

// AddDays returns the date shifted by the given number of days.
func (d Date) AddDays(days int) Date { return Date{d.AddDate(0, 0, days)} }

// DaysBetween returns the absolute number of whole days between two dates.
func DaysBetween(a, b Date) int {
	diff := a.Sub(b.Time)
	if diff < 0 {
		diff = -diff
	}
	return int(diff.Hours() / 24)
}

// Amount is a numeric value paired with a currency or commodity code. The
// value is stored as text to preserve the exact decimal representation
// from the input; Number converts it on demand.
type Amount struct {
	Value    string
	Currency string
}

// NewAmount builds an amount from a textual number and a currency code.
func NewAmount(value, currency string) *Amount {
	return &Amount{Value: value, Currency: currency}
}

// Number converts the textual value to a decimal.
func (a *Amount) Number() (decimal.Decimal, error) {
	n, err := decimal.NewFromString(a.Value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q: %w", a.Value, err)
	}
	return n, nil
}

// Equal reports whether two amounts have the same currency and numerically
// equal values ("1.0 USD" equals "1.00 USD").
func (a *Amount) Equal(b *Amount) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Currency != b.Currency {
		return false
	}
	an, aerr := a.Number()
	bn, berr := b.Number()
	if aerr != nil || berr != nil {
		return a.Value == b.Value
	}
	return an.Equal(bn)
}

// String renders the amount as "VALUE CURRENCY".
func (a *Amount) String() string {
	if a == nil {
		return ""
	}
	return a.Value + " " + a.Currency
}

// Account is a colon-separated account name whose first segment names one
// of the five account categories.
type Account string

// Valid reports whether the account has at least two segments and a known
// root category.
func (a Account) Valid() bool {
	parts := strings.SplitN(string(a), ":", 2)
	if len(parts) < 2 || parts[1] == "" {
		return false
	}
	switch parts[0] {
	case "Assets", "Liabilities", "Equity", "Income", "Expenses":
		return true
	}
	return false
}

// Root returns the account category segment.
func (a Account) Root() string {
	if i := strings.IndexByte(string(a), ':'); i >= 0 {
		return string(a)[:i]
	}
	return string(a)
}

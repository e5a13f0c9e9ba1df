// Package ast declares the directive types that make up a plain-text
// double-entry ledger.
//
// Directives are immutable once constructed; editing code never mutates a
// directive in place but builds a new value, usually through the Mutable
// overlay wrapper. Every directive carries a metadata map which holds,
// besides user keys, the reserved bookkeeping entries the storage engine
// relies on: the source file, the 1-indexed starting line, and the stable
// identifier under MetaStableID.
package ast

import (
	"golang.org/x/exp/slices"
)

// File represents one parsed ledger file.
type File struct {
	Directives Directives
	Options    []*Option
	Includes   []*Include
}

// Option sets a named configuration value for the whole ledger file.
type Option struct {
	Name  string
	Value string
}

// Include references another ledger file to be read alongside this one.
type Include struct {
	Filename string
}

// Directives is a slice of Directive ordered however the caller needs;
// SortByDate establishes canonical processing order.
type Directives []Directive

// compare orders directives by date, then by kind priority so that account
// openings sort before closings and closings before everything else on the
// same day.
func compare(a, b Directive) int {
	ad, bd := DateOf(a), DateOf(b)
	if ad.Before(bd.Time) {
		return -1
	}
	if ad.After(bd.Time) {
		return 1
	}

	ap, bp := kindPriority(a.Kind()), kindPriority(b.Kind())
	switch {
	case ap < bp:
		return -1
	case ap > bp:
		return 1
	}
	return 0
}

func kindPriority(k Kind) int {
	switch k {
	case KindOpen:
		return 0
	case KindClose:
		return 1
	default:
		return 2
	}
}

// SortByDate sorts directives by date and kind priority. The sort is stable
// so same-day directives keep their file order.
func SortByDate(d Directives) {
	if slices.IsSortedFunc(d, compare) {
		return
	}
	slices.SortStableFunc(d, compare)
}

// ByLine sorts directives by their source line within a single file.
// Directives without source information sort last.
func ByLine(d Directives) {
	slices.SortStableFunc(d, func(a, b Directive) int {
		return a.Meta().SourceLine() - b.Meta().SourceLine()
	})
}

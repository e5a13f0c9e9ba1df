// Package dedup decides which imported entries are already represented in
// a ledger. A Deduplicator partitions an imported batch against the
// existing entries using one or more comparators, each with its own date
// window: an imported entry within a comparator's window of an existing
// entry and judged the same by that comparator is a duplicate.
//
// Comparators are tried in order and the first match wins, so the
// reported rule tells the caller why an entry was dropped. The partition
// is stable: unique entries come back in their input order.
package dedup

import (
	"context"

	"golang.org/x/exp/slices"

	"github.com/beanbot-go/beanbot/ast"
	"github.com/beanbot-go/beanbot/config"
	"github.com/beanbot-go/beanbot/telemetry"
)

// Rule names the comparator that judged an entry a duplicate.
type Rule string

const (
	// RuleSimilar marks entries matching an existing entry field by field.
	RuleSimilar Rule = "similar"

	// RuleTransfer marks entries that are the other leg of a transfer
	// between internal accounts already recorded in the ledger.
	RuleTransfer Rule = "internal-transfer"
)

// Comparator judges whether an imported entry duplicates an existing one.
type Comparator interface {
	// Rule names this comparator in partition results.
	Rule() Rule

	// Window returns how many days before and after the imported entry's
	// date existing entries are considered.
	Window() (head, tail int)

	// Same reports whether imported duplicates existing.
	Same(existing, imported ast.Directive) bool
}

// Match pairs a duplicate imported entry with the existing entry it
// duplicates and the rule that matched.
type Match struct {
	Imported ast.Directive
	Existing ast.Directive
	Rule     Rule
}

// Deduplicator partitions imported entries using an ordered comparator
// chain.
type Deduplicator struct {
	comparators []Comparator
}

// New creates a Deduplicator trying the given comparators in order.
func New(comparators ...Comparator) *Deduplicator {
	return &Deduplicator{comparators: comparators}
}

// NewChained assembles the standard chain from a configuration: exact
// similarity first, then internal-transfer detection with the configured
// window and account patterns.
func NewChained(cfg config.Config) (*Deduplicator, error) {
	transfer, err := NewInternalTransfer(cfg)
	if err != nil {
		return nil, err
	}
	return New(NewSimilar(), transfer), nil
}

// Partition splits imported into duplicates and unique entries. The
// existing entries may arrive in any order; they are sorted by date
// internally. Unique entries keep their input order.
func (d *Deduplicator) Partition(ctx context.Context, existing, imported ast.Directives) (matches []Match, unique ast.Directives) {
	timer := telemetry.StartTimer(ctx, "dedup.partition")
	defer timer.End()

	sorted := make(ast.Directives, len(existing))
	copy(sorted, existing)
	ast.SortByDate(sorted)

	for _, entry := range imported {
		if match, ok := d.findDuplicate(sorted, entry); ok {
			matches = append(matches, match)
			continue
		}
		unique = append(unique, entry)
	}
	return matches, unique
}

// findDuplicate scans the comparators in order, each over its own date
// window of the sorted existing entries.
func (d *Deduplicator) findDuplicate(sorted ast.Directives, imported ast.Directive) (Match, bool) {
	date := ast.DateOf(imported)

	for _, cmp := range d.comparators {
		head, tail := cmp.Window()
		from := date.AddDays(-head)
		to := date.AddDays(tail)

		// First existing entry dated on or after the window start.
		start, _ := slices.BinarySearchFunc(sorted, from, func(e ast.Directive, t ast.Date) int {
			return ast.DateOf(e).Compare(t.Time)
		})

		for i := start; i < len(sorted); i++ {
			if ast.DateOf(sorted[i]).After(to.Time) {
				break
			}
			if cmp.Same(sorted[i], imported) {
				return Match{Imported: imported, Existing: sorted[i], Rule: cmp.Rule()}, true
			}
		}
	}
	return Match{}, false
}

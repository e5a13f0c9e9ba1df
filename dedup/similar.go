package dedup

import (
	"golang.org/x/exp/slices"

	"github.com/beanbot-go/beanbot/ast"
)

// Similar matches entries that carry the same content field by field. The
// window is zero, so only entries dated the same day are compared.
type Similar struct{}

// NewSimilar creates the field-equality comparator.
func NewSimilar() *Similar { return &Similar{} }

func (*Similar) Rule() Rule { return RuleSimilar }

func (*Similar) Window() (head, tail int) { return 0, 0 }

// Same compares the content fields of two entries of the same kind.
// Only the kinds that importers produce are supported; anything else is
// never a duplicate.
func (*Similar) Same(existing, imported ast.Directive) bool {
	if existing.Kind() != imported.Kind() {
		return false
	}
	if !ast.DateOf(existing).Equal(ast.DateOf(imported).Time) {
		return false
	}

	switch a := existing.(type) {
	case *ast.Open:
		b := imported.(*ast.Open)
		return a.Account == b.Account
	case *ast.Close:
		b := imported.(*ast.Close)
		return a.Account == b.Account
	case *ast.Balance:
		b := imported.(*ast.Balance)
		return a.Account == b.Account && a.Amount.Equal(b.Amount)
	case *ast.Note:
		b := imported.(*ast.Note)
		return a.Account == b.Account && a.Comment == b.Comment
	case *ast.Transaction:
		b := imported.(*ast.Transaction)
		return a.Payee == b.Payee && a.Narration == b.Narration &&
			samePostings(a.Postings, b.Postings)
	default:
		return false
	}
}

// samePostings compares posting sets order-independently. A single
// imported posting only needs a matching account and amount among the
// existing postings; importers often see just the source leg of a
// transaction whose counter legs were added by hand.
func samePostings(existing, imported []*ast.Posting) bool {
	es := sortedByAccount(existing)
	is := sortedByAccount(imported)

	if len(is) == 1 {
		for _, p := range es {
			if p.Account == is[0].Account {
				return p.Amount.Equal(is[0].Amount)
			}
		}
		return false
	}

	if len(es) != len(is) {
		return false
	}
	for i := range es {
		if es[i].Account != is[i].Account || !es[i].Amount.Equal(is[i].Amount) {
			return false
		}
	}
	return true
}

func sortedByAccount(postings []*ast.Posting) []*ast.Posting {
	sorted := make([]*ast.Posting, len(postings))
	copy(sorted, postings)
	slices.SortStableFunc(sorted, func(a, b *ast.Posting) int {
		switch {
		case a.Account < b.Account:
			return -1
		case a.Account > b.Account:
			return 1
		default:
			return 0
		}
	})
	return sorted
}

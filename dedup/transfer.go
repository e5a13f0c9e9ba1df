package dedup

import (
	"fmt"
	"log"
	"regexp"

	"github.com/beanbot-go/beanbot/ast"
	"github.com/beanbot-go/beanbot/config"
	"github.com/beanbot-go/beanbot/extract"
)

// InternalTransfer matches imported entries that are the other leg of a
// transfer between internal accounts already in the ledger: opposite
// amounts in the same currency on the two source accounts, both accounts
// internal, with the receiving side dated no earlier than the sending
// side.
type InternalTransfer struct {
	internal   *regexp.Regexp
	source     *regexp.Regexp
	head       int
	tail       int
	maxDateGap int
}

// NewInternalTransfer creates the transfer comparator from a
// configuration. The dedup window doubles as the maximum date gap between
// the two legs.
func NewInternalTransfer(cfg config.Config) (*InternalTransfer, error) {
	internal, err := regexp.Compile(cfg.InternalAccountRegex)
	if err != nil {
		return nil, fmt.Errorf("invalid internal account pattern: %w", err)
	}
	source, err := regexp.Compile(cfg.SourceAccountRegex)
	if err != nil {
		return nil, fmt.Errorf("invalid source account pattern: %w", err)
	}
	return &InternalTransfer{
		internal:   internal,
		source:     source,
		head:       cfg.DedupWindowDays,
		tail:       cfg.DedupWindowDays,
		maxDateGap: cfg.DedupWindowDays,
	}, nil
}

func (*InternalTransfer) Rule() Rule { return RuleTransfer }

func (t *InternalTransfer) Window() (head, tail int) { return t.head, t.tail }

// Same reports whether imported is the mirrored leg of existing. Both
// must be transactions and the imported entry must carry exactly one
// posting, which holds for freshly imported bank records.
func (t *InternalTransfer) Same(existing, imported ast.Directive) bool {
	a, ok := existing.(*ast.Transaction)
	if !ok {
		return false
	}
	b, ok := imported.(*ast.Transaction)
	if !ok || len(b.Postings) != 1 {
		return false
	}

	srcA := extract.SourceAccount(a, t.source)
	srcB := extract.SourceAccount(b, t.source)
	if srcA == "" || srcB == "" {
		return false
	}
	if !t.internal.MatchString(string(srcA)) || !t.internal.MatchString(string(srcB)) {
		return false
	}

	dateA := ast.DateOf(a)
	dateB := ast.DateOf(b)
	if ast.DaysBetween(dateA, dateB) > t.maxDateGap {
		return false
	}

	if !t.mirroredLeg(a, b, srcA, srcB, dateA, dateB) {
		return false
	}

	// The existing entry should already book the counter leg against the
	// imported side's source account; if not, its postings are suspect.
	counterBooked := false
	for _, p := range a.Postings {
		if p.Account == srcA {
			continue
		}
		if p.Account == srcB {
			counterBooked = true
			break
		}
	}
	if !counterBooked {
		log.Printf("dedup: entry %s %q may be missing a posting for %s",
			dateA, a.Narration, srcB)
	}

	return true
}

// mirroredLeg looks for a pair of source-account postings with opposite
// amounts in the same currency, ordered so money arrives no earlier than
// it leaves.
func (t *InternalTransfer) mirroredLeg(a, b *ast.Transaction, srcA, srcB ast.Account, dateA, dateB ast.Date) bool {
	for _, p := range a.Postings {
		if p.Account != srcA || p.Amount == nil {
			continue
		}
		for _, q := range b.Postings {
			if q.Account != srcB || q.Amount == nil {
				continue
			}
			if p.Amount.Currency != q.Amount.Currency {
				continue
			}

			na, err := p.Amount.Number()
			if err != nil {
				continue
			}
			nb, err := q.Amount.Number()
			if err != nil {
				continue
			}
			if !na.Add(nb).IsZero() {
				continue
			}

			if na.Sign() > 0 && !dateA.Before(dateB.Time) {
				return true
			}
			if nb.Sign() > 0 && !dateB.Before(dateA.Time) {
				return true
			}
		}
	}
	return false
}

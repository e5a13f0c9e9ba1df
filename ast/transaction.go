package ast

// Transaction records a financial transaction with a flag, optional payee,
// narration, and a list of postings. Postings are owned by value inside
// their transaction and never shared between directives; editing code
// clones the whole transaction instead of aliasing posting slices.
type Transaction struct {
	Date      Date
	Flag      string
	Payee     string
	Narration string
	Tags      []string
	Links     []string

	Postings []*Posting

	withMeta
}

var _ Directive = &Transaction{}

func (t *Transaction) Kind() Kind { return KindTransaction }
func (t *Transaction) date() Date { return t.Date }

func (t *Transaction) clone() Directive {
	c := *t
	c.Tags = append([]string(nil), t.Tags...)
	c.Links = append([]string(nil), t.Links...)
	c.Postings = make([]*Posting, len(t.Postings))
	for i, p := range t.Postings {
		c.Postings[i] = p.Clone()
	}
	c.withMeta = t.cloneMeta()
	return &c
}

// Accounts returns the distinct accounts referenced by the postings, in
// posting order.
func (t *Transaction) Accounts() []Account {
	seen := make(map[Account]bool, len(t.Postings))
	accounts := make([]Account, 0, len(t.Postings))
	for _, p := range t.Postings {
		if !seen[p.Account] {
			accounts = append(accounts, p.Account)
			seen[p.Account] = true
		}
	}
	return accounts
}

// Posting is one leg of a transaction.
type Posting struct {
	Flag    string
	Account Account
	Amount  *Amount
}

// Clone returns an independent copy of the posting.
func (p *Posting) Clone() *Posting {
	c := *p
	c.Amount = cloneAmount(p.Amount)
	return &c
}

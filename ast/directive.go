package ast

// Kind tags a directive with its concrete type so callers can switch
// exhaustively instead of relying on name-based lookup.
type Kind int

const (
	KindTransaction Kind = iota
	KindOpen
	KindClose
	KindCommodity
	KindBalance
	KindPad
	KindNote
	KindDocument
	KindPrice
	KindEvent
	KindCustom
)

// String returns the directive keyword for the kind.
func (k Kind) String() string {
	switch k {
	case KindTransaction:
		return "txn"
	case KindOpen:
		return "open"
	case KindClose:
		return "close"
	case KindCommodity:
		return "commodity"
	case KindBalance:
		return "balance"
	case KindPad:
		return "pad"
	case KindNote:
		return "note"
	case KindDocument:
		return "document"
	case KindPrice:
		return "price"
	case KindEvent:
		return "event"
	case KindCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// Directive is the closed interface implemented by all ledger record types
// in this package. The unexported methods keep the union sealed; use DateOf
// and Clone for generic access.
type Directive interface {
	Kind() Kind
	Meta() Meta

	date() Date
	clone() Directive
}

// DateOf returns the date of any directive.
func DateOf(d Directive) Date { return d.date() }

// Clone returns a deep copy of a directive, including its metadata map.
func Clone(d Directive) Directive { return d.clone() }

// withMeta is the embeddable metadata carrier shared by all directives.
type withMeta struct {
	Metadata Meta
}

// Meta returns the metadata map, allocating it on first use.
func (w *withMeta) Meta() Meta {
	if w.Metadata == nil {
		w.Metadata = Meta{}
	}
	return w.Metadata
}

func (w *withMeta) cloneMeta() withMeta {
	return withMeta{Metadata: w.Meta().Clone()}
}

// Open declares the opening of an account, optionally constrained to a set
// of currencies and a booking method.
type Open struct {
	Date          Date
	Account       Account
	Currencies    []string
	BookingMethod string

	withMeta
}

var _ Directive = &Open{}

func (o *Open) Kind() Kind { return KindOpen }
func (o *Open) date() Date { return o.Date }
func (o *Open) clone() Directive {
	c := *o
	c.Currencies = append([]string(nil), o.Currencies...)
	c.withMeta = o.cloneMeta()
	return &c
}

// Close declares the closing of an account.
type Close struct {
	Date    Date
	Account Account

	withMeta
}

var _ Directive = &Close{}

func (c *Close) Kind() Kind { return KindClose }
func (c *Close) date() Date { return c.Date }
func (c *Close) clone() Directive {
	cc := *c
	cc.withMeta = c.cloneMeta()
	return &cc
}

// Commodity declares a currency or commodity code.
type Commodity struct {
	Date     Date
	Currency string

	withMeta
}

var _ Directive = &Commodity{}

func (c *Commodity) Kind() Kind { return KindCommodity }
func (c *Commodity) date() Date { return c.Date }
func (c *Commodity) clone() Directive {
	cc := *c
	cc.withMeta = c.cloneMeta()
	return &cc
}

// Balance asserts an account balance at the beginning of a date.
type Balance struct {
	Date    Date
	Account Account
	Amount  *Amount

	withMeta
}

var _ Directive = &Balance{}

func (b *Balance) Kind() Kind { return KindBalance }
func (b *Balance) date() Date { return b.Date }
func (b *Balance) clone() Directive {
	c := *b
	c.Amount = cloneAmount(b.Amount)
	c.withMeta = b.cloneMeta()
	return &c
}

// Pad requests automatic balancing of an account against a pad account.
type Pad struct {
	Date       Date
	Account    Account
	AccountPad Account

	withMeta
}

var _ Directive = &Pad{}

func (p *Pad) Kind() Kind { return KindPad }
func (p *Pad) date() Date { return p.Date }
func (p *Pad) clone() Directive {
	c := *p
	c.withMeta = p.cloneMeta()
	return &c
}

// Note attaches a dated comment to an account.
type Note struct {
	Date    Date
	Account Account
	Comment string

	withMeta
}

var _ Directive = &Note{}

func (n *Note) Kind() Kind { return KindNote }
func (n *Note) date() Date { return n.Date }
func (n *Note) clone() Directive {
	c := *n
	c.withMeta = n.cloneMeta()
	return &c
}

// Document associates an external file with an account.
type Document struct {
	Date    Date
	Account Account
	Path    string

	withMeta
}

var _ Directive = &Document{}

func (d *Document) Kind() Kind { return KindDocument }
func (d *Document) date() Date { return d.Date }
func (d *Document) clone() Directive {
	c := *d
	c.withMeta = d.cloneMeta()
	return &c
}

// Price declares the price of a commodity in another currency.
type Price struct {
	Date      Date
	Commodity string
	Amount    *Amount

	withMeta
}

var _ Directive = &Price{}

func (p *Price) Kind() Kind { return KindPrice }
func (p *Price) date() Date { return p.Date }
func (p *Price) clone() Directive {
	c := *p
	c.Amount = cloneAmount(p.Amount)
	c.withMeta = p.cloneMeta()
	return &c
}

// Event records a named value change at a date.
type Event struct {
	Date  Date
	Name  string
	Value string

	withMeta
}

var _ Directive = &Event{}

func (e *Event) Kind() Kind { return KindEvent }
func (e *Event) date() Date { return e.Date }
func (e *Event) clone() Directive {
	c := *e
	c.withMeta = e.cloneMeta()
	return &c
}

// Custom is the extension directive: a type string followed by arbitrary
// typed values. The engine reads its own configuration from custom
// directives typed "beanbot-config".
type Custom struct {
	Date   Date
	Type   string
	Values []*CustomValue

	withMeta
}

var _ Directive = &Custom{}

func (c *Custom) Kind() Kind { return KindCustom }
func (c *Custom) date() Date { return c.Date }
func (c *Custom) clone() Directive {
	cc := *c
	cc.Values = make([]*CustomValue, len(c.Values))
	for i, v := range c.Values {
		cv := *v
		cv.Amount = cloneAmount(v.Amount)
		cc.Values[i] = &cv
	}
	cc.withMeta = c.cloneMeta()
	return &cc
}

// CustomValue is one value of a custom directive. Exactly one field is set.
type CustomValue struct {
	String  *string
	Number  *string
	Boolean *bool
	Amount  *Amount
}

// Text returns the value in textual form regardless of its type.
func (cv *CustomValue) Text() string {
	switch {
	case cv.String != nil:
		return *cv.String
	case cv.Number != nil:
		return *cv.Number
	case cv.Boolean != nil:
		if *cv.Boolean {
			return "TRUE"
		}
		return "FALSE"
	case cv.Amount != nil:
		return cv.Amount.String()
	default:
		return ""
	}
}

func cloneAmount(a *Amount) *Amount {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

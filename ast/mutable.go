package ast

import "fmt"

// Field names accepted by Mutable.Set. Each kind supports a subset; see
// applyField for the exhaustive mapping.
const (
	FieldDate          = "date"
	FieldFlag          = "flag"
	FieldPayee         = "payee"
	FieldNarration     = "narration"
	FieldTags          = "tags"
	FieldLinks         = "links"
	FieldPostings      = "postings"
	FieldAccount       = "account"
	FieldAccountPad    = "account_pad"
	FieldAmount        = "amount"
	FieldComment       = "comment"
	FieldPath          = "path"
	FieldCommodity     = "commodity"
	FieldCurrency      = "currency"
	FieldName          = "name"
	FieldValue         = "value"
	FieldCurrencies    = "currencies"
	FieldBookingMethod = "booking_method"
)

// UnknownFieldError reports a Set or Get against a field the directive
// kind does not have, or a value of the wrong type.
type UnknownFieldError struct {
	Kind  Kind
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("directive kind %q has no field %q", e.Kind, e.Field)
}

// Mutable is a change-tracking overlay over an immutable directive: the
// base value plus a sparse field-to-override map. Reads consult the
// overlay first; ToDirective materializes a fresh immutable directive with
// the overrides applied. The base is never touched.
type Mutable struct {
	base      Directive
	overrides map[string]any
}

// Wrap creates an overlay over a directive.
func Wrap(d Directive) *Mutable {
	return &Mutable{base: d, overrides: make(map[string]any)}
}

// Base returns the wrapped immutable directive.
func (m *Mutable) Base() Directive { return m.base }

// Kind returns the kind of the wrapped directive.
func (m *Mutable) Kind() Kind { return m.base.Kind() }

// Set records a field override. The field must exist on the wrapped kind
// and the value must have the field's type; otherwise the overlay is left
// unchanged and an UnknownFieldError is returned.
func (m *Mutable) Set(field string, value any) error {
	// Probe against a throwaway clone so a bad field or type never leaves
	// a half-applied override behind.
	if err := applyField(Clone(m.base), field, value); err != nil {
		return err
	}
	m.overrides[field] = value
	return nil
}

// Get returns the effective value of a field: the override when present,
// the base value otherwise.
func (m *Mutable) Get(field string) (any, bool) {
	if v, ok := m.overrides[field]; ok {
		return v, true
	}
	return fieldOf(m.base, field)
}

// Dirty reports whether any field has been overridden.
func (m *Mutable) Dirty() bool { return len(m.overrides) > 0 }

// Reset discards all overrides, reverting reads to the base directive.
func (m *Mutable) Reset() {
	for k := range m.overrides {
		delete(m.overrides, k)
	}
}

// ToDirective materializes a new immutable directive with all overrides
// applied. With no overrides the result is a deep copy equal to the base.
func (m *Mutable) ToDirective() Directive {
	d := Clone(m.base)
	for field, value := range m.overrides {
		// Set validated every override on entry, so this cannot fail.
		if err := applyField(d, field, value); err != nil {
			panic(fmt.Sprintf("ast: overlay override no longer applies: %v", err))
		}
	}
	return d
}

// fieldOf extracts a field value from a directive. The switch is
// exhaustive over the sealed directive union.
func fieldOf(d Directive, field string) (any, bool) {
	switch v := d.(type) {
	case *Transaction:
		switch field {
		case FieldDate:
			return v.Date, true
		case FieldFlag:
			return v.Flag, true
		case FieldPayee:
			return v.Payee, true
		case FieldNarration:
			return v.Narration, true
		case FieldTags:
			return v.Tags, true
		case FieldLinks:
			return v.Links, true
		case FieldPostings:
			return v.Postings, true
		}
	case *Open:
		switch field {
		case FieldDate:
			return v.Date, true
		case FieldAccount:
			return v.Account, true
		case FieldCurrencies:
			return v.Currencies, true
		case FieldBookingMethod:
			return v.BookingMethod, true
		}
	case *Close:
		switch field {
		case FieldDate:
			return v.Date, true
		case FieldAccount:
			return v.Account, true
		}
	case *Commodity:
		switch field {
		case FieldDate:
			return v.Date, true
		case FieldCurrency:
			return v.Currency, true
		}
	case *Balance:
		switch field {
		case FieldDate:
			return v.Date, true
		case FieldAccount:
			return v.Account, true
		case FieldAmount:
			return v.Amount, true
		}
	case *Pad:
		switch field {
		case FieldDate:
			return v.Date, true
		case FieldAccount:
			return v.Account, true
		case FieldAccountPad:
			return v.AccountPad, true
		}
	case *Note:
		switch field {
		case FieldDate:
			return v.Date, true
		case FieldAccount:
			return v.Account, true
		case FieldComment:
			return v.Comment, true
		}
	case *Document:
		switch field {
		case FieldDate:
			return v.Date, true
		case FieldAccount:
			return v.Account, true
		case FieldPath:
			return v.Path, true
		}
	case *Price:
		switch field {
		case FieldDate:
			return v.Date, true
		case FieldCommodity:
			return v.Commodity, true
		case FieldAmount:
			return v.Amount, true
		}
	case *Event:
		switch field {
		case FieldDate:
			return v.Date, true
		case FieldName:
			return v.Name, true
		case FieldValue:
			return v.Value, true
		}
	case *Custom:
		switch field {
		case FieldDate:
			return v.Date, true
		}
	}
	return nil, false
}

// applyField writes a field value into a directive. Returns an
// UnknownFieldError for a field the kind does not have or a value of the
// wrong type.
func applyField(d Directive, field string, value any) error {
	bad := func() error {
		return &UnknownFieldError{Kind: d.Kind(), Field: field}
	}

	setDate := func(dst *Date) error {
		v, ok := value.(Date)
		if !ok {
			return bad()
		}
		*dst = v
		return nil
	}
	setString := func(dst *string) error {
		v, ok := value.(string)
		if !ok {
			return bad()
		}
		*dst = v
		return nil
	}
	setAccount := func(dst *Account) error {
		v, ok := value.(Account)
		if !ok {
			return bad()
		}
		*dst = v
		return nil
	}
	setAmount := func(dst **Amount) error {
		v, ok := value.(*Amount)
		if !ok {
			return bad()
		}
		*dst = cloneAmount(v)
		return nil
	}
	setStrings := func(dst *[]string) error {
		v, ok := value.([]string)
		if !ok {
			return bad()
		}
		*dst = append([]string(nil), v...)
		return nil
	}

	switch v := d.(type) {
	case *Transaction:
		switch field {
		case FieldDate:
			return setDate(&v.Date)
		case FieldFlag:
			return setString(&v.Flag)
		case FieldPayee:
			return setString(&v.Payee)
		case FieldNarration:
			return setString(&v.Narration)
		case FieldTags:
			return setStrings(&v.Tags)
		case FieldLinks:
			return setStrings(&v.Links)
		case FieldPostings:
			postings, ok := value.([]*Posting)
			if !ok {
				return bad()
			}
			v.Postings = make([]*Posting, len(postings))
			for i, p := range postings {
				v.Postings[i] = p.Clone()
			}
			return nil
		}
	case *Open:
		switch field {
		case FieldDate:
			return setDate(&v.Date)
		case FieldAccount:
			return setAccount(&v.Account)
		case FieldCurrencies:
			return setStrings(&v.Currencies)
		case FieldBookingMethod:
			return setString(&v.BookingMethod)
		}
	case *Close:
		switch field {
		case FieldDate:
			return setDate(&v.Date)
		case FieldAccount:
			return setAccount(&v.Account)
		}
	case *Commodity:
		switch field {
		case FieldDate:
			return setDate(&v.Date)
		case FieldCurrency:
			return setString(&v.Currency)
		}
	case *Balance:
		switch field {
		case FieldDate:
			return setDate(&v.Date)
		case FieldAccount:
			return setAccount(&v.Account)
		case FieldAmount:
			return setAmount(&v.Amount)
		}
	case *Pad:
		switch field {
		case FieldDate:
			return setDate(&v.Date)
		case FieldAccount:
			return setAccount(&v.Account)
		case FieldAccountPad:
			return setAccount(&v.AccountPad)
		}
	case *Note:
		switch field {
		case FieldDate:
			return setDate(&v.Date)
		case FieldAccount:
			return setAccount(&v.Account)
		case FieldComment:
			return setString(&v.Comment)
		}
	case *Document:
		switch field {
		case FieldDate:
			return setDate(&v.Date)
		case FieldAccount:
			return setAccount(&v.Account)
		case FieldPath:
			return setString(&v.Path)
		}
	case *Price:
		switch field {
		case FieldDate:
			return setDate(&v.Date)
		case FieldCommodity:
			return setString(&v.Commodity)
		case FieldAmount:
			return setAmount(&v.Amount)
		}
	case *Event:
		switch field {
		case FieldDate:
			return setDate(&v.Date)
		case FieldName:
			return setString(&v.Name)
		case FieldValue:
			return setString(&v.Value)
		}
	case *Custom:
		switch field {
		case FieldDate:
			return setDate(&v.Date)
		}
	}
	return bad()
}

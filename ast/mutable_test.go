package ast

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func sampleTransaction() *Transaction {
	return &Transaction{
		Date:      MustDate("2023-03-14"),
		Flag:      "*",
		Payee:     "Bakery",
		Narration: "Bread",
		Postings: []*Posting{
			{Account: "Assets:Checking", Amount: NewAmount("-4.50", "EUR")},
			{Account: "Expenses:Food", Amount: NewAmount("4.50", "EUR")},
		},
	}
}

func TestMutableSetAndGet(t *testing.T) {
	base := sampleTransaction()
	m := Wrap(base)

	assert.False(t, m.Dirty())

	assert.NoError(t, m.Set(FieldNarration, "Sourdough"))
	assert.True(t, m.Dirty())

	got, ok := m.Get(FieldNarration)
	assert.True(t, ok)
	assert.Equal(t, "Sourdough", got.(string))

	// Fields without overrides read through to the base.
	payee, ok := m.Get(FieldPayee)
	assert.True(t, ok)
	assert.Equal(t, "Bakery", payee.(string))

	// The base is never touched.
	assert.Equal(t, "Bread", base.Narration)
}

func TestMutableRejectsUnknownField(t *testing.T) {
	m := Wrap(&Close{Date: MustDate("2023-01-01"), Account: "Assets:Checking"})

	err := m.Set(FieldNarration, "nope")
	assert.Error(t, err)

	var unknown *UnknownFieldError
	assert.True(t, errors.As(err, &unknown))
	assert.Equal(t, KindClose, unknown.Kind)
	assert.Equal(t, FieldNarration, unknown.Field)

	assert.False(t, m.Dirty())
}

func TestMutableRejectsWrongType(t *testing.T) {
	m := Wrap(sampleTransaction())

	err := m.Set(FieldNarration, 42)
	assert.Error(t, err)
	assert.False(t, m.Dirty())
}

func TestMutableToDirective(t *testing.T) {
	base := sampleTransaction()
	base.Meta().SetStableID("id-1")

	m := Wrap(base)
	assert.NoError(t, m.Set(FieldNarration, "Sourdough"))
	assert.NoError(t, m.Set(FieldPostings, []*Posting{
		{Account: "Assets:Cash", Amount: NewAmount("-4.50", "EUR")},
		{Account: "Expenses:Food", Amount: NewAmount("4.50", "EUR")},
	}))

	got := m.ToDirective().(*Transaction)
	assert.Equal(t, "Sourdough", got.Narration)
	assert.Equal(t, Account("Assets:Cash"), got.Postings[0].Account)

	// Identity and untouched fields carry over.
	assert.Equal(t, "id-1", got.Meta().StableID())
	assert.Equal(t, "Bakery", got.Payee)

	// The base still holds the original values.
	assert.Equal(t, "Bread", base.Narration)
	assert.Equal(t, Account("Assets:Checking"), base.Postings[0].Account)
}

func TestMutableReset(t *testing.T) {
	m := Wrap(sampleTransaction())

	assert.NoError(t, m.Set(FieldNarration, "Sourdough"))
	assert.True(t, m.Dirty())

	m.Reset()
	assert.False(t, m.Dirty())

	got, ok := m.Get(FieldNarration)
	assert.True(t, ok)
	assert.Equal(t, "Bread", got.(string))
}

func TestMutableRoundTripWithoutOverrides(t *testing.T) {
	base := sampleTransaction()
	base.Meta()["category"] = "food"

	got := Wrap(base).ToDirective().(*Transaction)

	assert.Equal(t, base.Date.String(), got.Date.String())
	assert.Equal(t, base.Payee, got.Payee)
	assert.Equal(t, base.Narration, got.Narration)
	assert.Equal(t, "food", got.Meta()["category"])
	assert.Equal(t, len(base.Postings), len(got.Postings))

	// Deep copy: mutating the copy's postings leaves the base alone.
	got.Postings[0].Account = "Assets:Other"
	assert.Equal(t, Account("Assets:Checking"), base.Postings[0].Account)
}

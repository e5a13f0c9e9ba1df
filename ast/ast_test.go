package ast

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestSortByDate(t *testing.T) {
	txn := &Transaction{Date: MustDate("2023-01-02"), Flag: "*", Narration: "first"}
	open := &Open{Date: MustDate("2023-01-02"), Account: "Assets:Checking"}
	closeD := &Close{Date: MustDate("2023-01-02"), Account: "Assets:Old"}
	earlier := &Transaction{Date: MustDate("2023-01-01"), Flag: "*", Narration: "earlier"}

	ds := Directives{txn, closeD, open, earlier}
	SortByDate(ds)

	// Date first, then open before close before everything else.
	assert.Equal(t, Directive(earlier), ds[0])
	assert.Equal(t, Directive(open), ds[1])
	assert.Equal(t, Directive(closeD), ds[2])
	assert.Equal(t, Directive(txn), ds[3])
}

func TestSortByDateStable(t *testing.T) {
	a := &Transaction{Date: MustDate("2023-01-01"), Flag: "*", Narration: "a"}
	b := &Transaction{Date: MustDate("2023-01-01"), Flag: "*", Narration: "b"}

	ds := Directives{a, b}
	SortByDate(ds)

	assert.Equal(t, "a", ds[0].(*Transaction).Narration)
	assert.Equal(t, "b", ds[1].(*Transaction).Narration)
}

func TestAmountEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b *Amount
		want bool
	}{
		{name: "equal values", a: NewAmount("1.00", "USD"), b: NewAmount("1.00", "USD"), want: true},
		{name: "different precision", a: NewAmount("1.0", "USD"), b: NewAmount("1.00", "USD"), want: true},
		{name: "different currency", a: NewAmount("1.00", "USD"), b: NewAmount("1.00", "EUR"), want: false},
		{name: "different value", a: NewAmount("1.00", "USD"), b: NewAmount("2.00", "USD"), want: false},
		{name: "both nil", a: nil, b: nil, want: true},
		{name: "one nil", a: NewAmount("1.00", "USD"), b: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
		})
	}
}

func TestAccountValid(t *testing.T) {
	tests := []struct {
		account Account
		want    bool
	}{
		{account: "Assets:Checking", want: true},
		{account: "Liabilities:CreditCard:Visa", want: true},
		{account: "Expenses:Food", want: true},
		{account: "Assets", want: false},
		{account: "Assets:", want: false},
		{account: "Banana:Checking", want: false},
		{account: "", want: false},
	}

	for _, tt := range tests {
		t.Run(string(tt.account), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.account.Valid())
		})
	}
}

func TestMetaUserKeys(t *testing.T) {
	m := Meta{}
	m.SetSource("/tmp/main.bean", 12)
	m.SetStableID("id-1")
	m["category"] = "food"

	keys := m.UserKeys()
	assert.Equal(t, 2, len(keys))

	// Source location keys are in-memory only.
	for _, k := range keys {
		assert.NotEqual(t, MetaFilename, k)
		assert.NotEqual(t, MetaLineno, k)
	}
}

func TestDaysBetween(t *testing.T) {
	a := MustDate("2023-01-05")
	b := MustDate("2023-01-08")

	assert.Equal(t, 3, DaysBetween(a, b))
	assert.Equal(t, 3, DaysBetween(b, a))
	assert.Equal(t, 0, DaysBetween(a, a))
}

func TestTransactionAccounts(t *testing.T) {
	txn := &Transaction{
		Date: MustDate("2023-01-01"),
		Flag: "*",
		Postings: []*Posting{
			{Account: "Assets:Checking"},
			{Account: "Expenses:Food"},
			{Account: "Assets:Checking"},
		},
	}

	assert.Equal(t, []Account{"Assets:Checking", "Expenses:Food"}, txn.Accounts())
}

package printer

import (
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/beanbot-go/beanbot/ast"
	"github.com/beanbot-go/beanbot/parser"
)

func TestPrintLines(t *testing.T) {
	p := New(WithCurrencyColumn(30))

	tests := []struct {
		name      string
		directive ast.Directive
		want      []string
	}{
		{
			name: "open with currencies",
			directive: &ast.Open{
				Date:       ast.MustDate("2023-01-01"),
				Account:    "Assets:Checking",
				Currencies: []string{"EUR", "USD"},
			},
			want: []string{"2023-01-01 open Assets:Checking EUR,USD"},
		},
		{
			name: "close",
			directive: &ast.Close{
				Date:    ast.MustDate("2023-02-01"),
				Account: "Assets:Old",
			},
			want: []string{"2023-02-01 close Assets:Old"},
		},
		{
			name: "note",
			directive: &ast.Note{
				Date:    ast.MustDate("2023-01-02"),
				Account: "Assets:Checking",
				Comment: "Checked statement",
			},
			want: []string{`2023-01-02 note Assets:Checking "Checked statement"`},
		},
		{
			name: "transaction with aligned postings",
			directive: &ast.Transaction{
				Date:      ast.MustDate("2023-01-05"),
				Flag:      "*",
				Payee:     "Bakery",
				Narration: "Bread",
				Postings: []*ast.Posting{
					{Account: "Assets:Cash", Amount: ast.NewAmount("-4.50", "EUR")},
					{Account: "Expenses:Food", Amount: ast.NewAmount("4.50", "EUR")},
				},
			},
			want: []string{
				`2023-01-05 * "Bakery" "Bread"`,
				"  Assets:Cash           -4.50 EUR",
				"  Expenses:Food          4.50 EUR",
			},
		},
		{
			name: "pad",
			directive: &ast.Pad{
				Date:       ast.MustDate("2023-01-01"),
				Account:    "Assets:Checking",
				AccountPad: "Equity:Opening-Balances",
			},
			want: []string{"2023-01-01 pad Assets:Checking Equity:Opening-Balances"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.PrintLines(tt.directive))
		})
	}
}

func TestPrintMetadata(t *testing.T) {
	txn := &ast.Transaction{
		Date:      ast.MustDate("2023-01-05"),
		Flag:      "*",
		Narration: "Bread",
	}
	txn.Meta().SetStableID("id-123")
	txn.Meta().SetSource("/tmp/main.bean", 42)
	txn.Meta()["category"] = "food"

	lines := New().PrintLines(txn)

	// Sorted metadata keys, quoted values; source location never printed.
	assert.Equal(t, []string{
		`2023-01-05 * "Bread"`,
		`  bbid: "id-123"`,
		`  category: "food"`,
	}, lines)
}

func TestRoundTrip(t *testing.T) {
	original := &ast.Transaction{
		Date:      ast.MustDate("2023-01-05"),
		Flag:      "*",
		Payee:     "Bakery",
		Narration: `He said "hi"`,
		Tags:      []string{"food"},
		Postings: []*ast.Posting{
			{Account: "Assets:Checking", Amount: ast.NewAmount("-4.50", "EUR")},
			{Account: "Expenses:Food", Amount: ast.NewAmount("4.50", "EUR")},
		},
	}
	original.Meta().SetStableID("id-123")

	file, err := parser.ParseBytes("roundtrip.bean", []byte(New().Print(original)))
	assert.NoError(t, err)
	assert.Equal(t, 1, len(file.Directives))

	got := file.Directives[0].(*ast.Transaction)
	assert.Equal(t, original.Date.String(), got.Date.String())
	assert.Equal(t, original.Payee, got.Payee)
	assert.Equal(t, original.Narration, got.Narration)
	assert.Equal(t, original.Tags, got.Tags)
	assert.Equal(t, "id-123", got.Meta().StableID())
	assert.Equal(t, 2, len(got.Postings))
	assert.Equal(t, original.Postings[0].Account, got.Postings[0].Account)
	assert.True(t, original.Postings[0].Amount.Equal(got.Postings[0].Amount))
}

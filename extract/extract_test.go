package extract

import (
	"regexp"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/beanbot-go/beanbot/ast"
)

func TestSourceAccount(t *testing.T) {
	txn := &ast.Transaction{
		Date: ast.MustDate("2023-01-05"),
		Flag: "*",
		Postings: []*ast.Posting{
			{Account: "Expenses:Food", Amount: ast.NewAmount("4.50", "EUR")},
			{Account: "Assets:Checking", Amount: ast.NewAmount("-4.50", "EUR")},
			{Account: "Assets:Savings", Amount: ast.NewAmount("0.00", "EUR")},
		},
	}

	// First matching posting wins.
	assert.Equal(t, ast.Account("Assets:Checking"),
		SourceAccount(txn, regexp.MustCompile(`^Assets`)))

	assert.Equal(t, ast.Account(""),
		SourceAccount(txn, regexp.MustCompile(`^Liabilities`)))
}

func TestCounterAccounts(t *testing.T) {
	txn := &ast.Transaction{
		Date: ast.MustDate("2023-01-05"),
		Flag: "*",
		Postings: []*ast.Posting{
			{Account: "Assets:Checking"},
			{Account: "Expenses:Food"},
			{Account: "Expenses:Tips"},
		},
	}

	assert.Equal(t, []ast.Account{"Expenses:Food", "Expenses:Tips"}, CounterAccounts(txn))

	single := &ast.Transaction{
		Date:     ast.MustDate("2023-01-05"),
		Flag:     "*",
		Postings: []*ast.Posting{{Account: "Assets:Checking"}},
	}
	assert.Zero(t, CounterAccounts(single))
}

// Package extract pulls summary fields out of transactions: the source
// account a record was imported against and the counter accounts on the
// other side. Import pipelines use these to route and to describe entries.
package extract

import (
	"regexp"

	"github.com/beanbot-go/beanbot/ast"
)

// SourceAccount returns the account of the first posting matching the
// pattern, or "" when no posting matches. The pattern identifies the
// accounts records are generated against, typically the bank and card
// accounts of an import source.
func SourceAccount(txn *ast.Transaction, pattern *regexp.Regexp) ast.Account {
	for _, p := range txn.Postings {
		if pattern.MatchString(string(p.Account)) {
			return p.Account
		}
	}
	return ""
}

// CounterAccounts returns the accounts of every posting after the first.
// A transaction with fewer than two postings has no counter accounts.
func CounterAccounts(txn *ast.Transaction) []ast.Account {
	if len(txn.Postings) < 2 {
		return nil
	}
	accounts := make([]ast.Account, 0, len(txn.Postings)-1)
	for _, p := range txn.Postings[1:] {
		accounts = append(accounts, p.Account)
	}
	return accounts
}

package ledger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/beanbot-go/beanbot/ast"
	"github.com/beanbot-go/beanbot/parser"
)

const mainLedger = `option "title" "Test"

2023-01-01 open Assets:Checking
2023-01-01 open Expenses:Food

2023-01-05 * "Bakery" "Bread"
  Assets:Checking  -4.50 EUR
  Expenses:Food  4.50 EUR

2023-01-06 * "Cafe" "Espresso"
  Assets:Checking  -2.00 EUR
  Expenses:Food  2.00 EUR
`

// setupLedger writes the sample file, loads it, and persists the freshly
// assigned identity tokens so tests start from a clean, identified ledger.
func setupLedger(t *testing.T) (*Ledger, string) {
	t.Helper()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "main.bean")
	assert.NoError(t, os.WriteFile(path, []byte(mainLedger), 0o644))

	l := New(path)
	assert.NoError(t, l.Load(ctx))
	assert.NoError(t, l.Save(ctx))
	assert.NoError(t, l.Load(ctx))
	assert.False(t, l.Dirty())

	return l, path
}

func findEntry(l *Ledger, narration string) string {
	for _, d := range l.Existing() {
		if txn, ok := d.(*ast.Transaction); ok && txn.Narration == narration {
			return txn.Meta().StableID()
		}
	}
	return ""
}

func readLedger(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	return string(data)
}

func TestLoadAssignsIdentity(t *testing.T) {
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "main.bean")
	assert.NoError(t, os.WriteFile(path, []byte(mainLedger), 0o644))

	l := New(path)
	assert.NoError(t, l.Load(ctx))

	// Unidentified entries get tokens and are staged for write-back.
	assert.True(t, l.Dirty())
	entries := l.Existing()
	assert.Equal(t, 4, len(entries))
	for _, d := range entries {
		assert.NotEqual(t, "", d.Meta().StableID())
	}

	assert.NoError(t, l.Save(ctx))
	assert.False(t, l.Dirty())
	assert.Equal(t, 4, strings.Count(readLedger(t, path), "bbid:"))
}

func TestReloadIsIdempotent(t *testing.T) {
	_, path := setupLedger(t)
	ctx := context.Background()

	before := readLedger(t, path)

	l := New(path)
	assert.NoError(t, l.Load(ctx))
	assert.False(t, l.Dirty())
	assert.NoError(t, l.Save(ctx))

	assert.Equal(t, before, readLedger(t, path))
}

func TestIdentityStableAcrossReloads(t *testing.T) {
	l, path := setupLedger(t)
	ctx := context.Background()

	ids := make(map[string]bool)
	for _, d := range l.Existing() {
		ids[d.Meta().StableID()] = true
	}

	other := New(path)
	assert.NoError(t, other.Load(ctx))
	for _, d := range other.Existing() {
		assert.True(t, ids[d.Meta().StableID()], "token changed across reload")
	}
}

func TestAddAndSave(t *testing.T) {
	l, path := setupLedger(t)
	ctx := context.Background()

	txn := &ast.Transaction{
		Date:      ast.MustDate("2023-01-07"),
		Flag:      "*",
		Narration: "Groceries",
		Postings: []*ast.Posting{
			{Account: "Assets:Checking", Amount: ast.NewAmount("-30.00", "EUR")},
			{Account: "Expenses:Food", Amount: ast.NewAmount("30.00", "EUR")},
		},
	}

	id, err := l.Add(txn)
	assert.NoError(t, err)
	assert.NotEqual(t, "", id)
	assert.True(t, l.HasEntry(id))
	assert.True(t, l.Dirty())

	assert.NoError(t, l.Save(ctx))
	content := readLedger(t, path)
	assert.Contains(t, content, `"Groceries"`)
	assert.Contains(t, content, id)
	assert.True(t, strings.HasSuffix(content, "\n\n"), "appended entry keeps a blank separator")

	other := New(path)
	assert.NoError(t, other.Load(ctx))
	got, ok := other.Entry(id)
	assert.True(t, ok)
	assert.Equal(t, "Groceries", got.(*ast.Transaction).Narration)
}

func TestDeleteAndSave(t *testing.T) {
	l, path := setupLedger(t)
	ctx := context.Background()

	id := findEntry(l, "Bread")
	assert.NotEqual(t, "", id)

	assert.True(t, l.Delete(id))
	assert.False(t, l.HasEntry(id))
	assert.NoError(t, l.Save(ctx))

	content := readLedger(t, path)
	assert.NotContains(t, content, "Bread")
	assert.Contains(t, content, "Espresso")

	// The token is released once the entry is gone from disk.
	assert.False(t, l.Generator().Exists(id))

	other := New(path)
	assert.NoError(t, other.Load(ctx))
	assert.Equal(t, 3, len(other.Existing()))
}

func TestReplaceKeepsIdentity(t *testing.T) {
	l, path := setupLedger(t)
	ctx := context.Background()

	id := findEntry(l, "Espresso")
	current, ok := l.Entry(id)
	assert.True(t, ok)

	modified := ast.Clone(current).(*ast.Transaction)
	modified.Narration = "Double espresso"

	gotID, ok := l.Replace(id, modified)
	assert.True(t, ok)
	assert.Equal(t, id, gotID)
	assert.NoError(t, l.Save(ctx))

	other := New(path)
	assert.NoError(t, other.Load(ctx))
	got, ok := other.Entry(id)
	assert.True(t, ok)
	assert.Equal(t, "Double espresso", got.(*ast.Transaction).Narration)
}

func TestStagedEditsAfterSave(t *testing.T) {
	l, path := setupLedger(t)
	ctx := context.Background()

	txn := &ast.Transaction{
		Date:      ast.MustDate("2023-01-07"),
		Flag:      "*",
		Narration: "Groceries",
		Postings: []*ast.Posting{
			{Account: "Assets:Checking", Amount: ast.NewAmount("-30.00", "EUR")},
			{Account: "Expenses:Food", Amount: ast.NewAmount("30.00", "EUR")},
		},
	}
	id, err := l.Add(txn)
	assert.NoError(t, err)
	assert.NoError(t, l.Save(ctx))

	// Delete the entry that used to be last in the file, without an
	// intervening Load. Its refreshed range must end where the appended
	// entry now begins, leaving the appended entry intact.
	assert.True(t, l.Delete(findEntry(l, "Espresso")))
	assert.NoError(t, l.Save(ctx))

	content := readLedger(t, path)
	assert.Contains(t, content, `"Groceries"`)
	assert.NotContains(t, content, "Espresso")

	other := New(path)
	assert.NoError(t, other.Load(ctx))
	assert.Equal(t, 4, len(other.Existing()))
	got, ok := other.Entry(id)
	assert.True(t, ok)
	assert.Equal(t, "Groceries", got.(*ast.Transaction).Narration)
}

func TestRangesShiftAfterSave(t *testing.T) {
	l, path := setupLedger(t)
	ctx := context.Background()

	// Grow the first transaction by one posting line.
	breadID := findEntry(l, "Bread")
	current, ok := l.Entry(breadID)
	assert.True(t, ok)
	longer := ast.Clone(current).(*ast.Transaction)
	longer.Postings = append(longer.Postings,
		&ast.Posting{Account: "Expenses:Food", Amount: ast.NewAmount("0.00", "EUR")})
	_, ok = l.Replace(breadID, longer)
	assert.True(t, ok)
	assert.NoError(t, l.Save(ctx))

	// Entries below the grown one must still be addressed at their shifted
	// positions when edited without an intervening Load.
	espressoID := findEntry(l, "Espresso")
	current, ok = l.Entry(espressoID)
	assert.True(t, ok)
	modified := ast.Clone(current).(*ast.Transaction)
	modified.Narration = "Flat white"
	_, ok = l.Replace(espressoID, modified)
	assert.True(t, ok)
	assert.NoError(t, l.Save(ctx))

	content := readLedger(t, path)
	assert.Contains(t, content, "Flat white")
	assert.NotContains(t, content, "Espresso")

	other := New(path)
	assert.NoError(t, other.Load(ctx))
	assert.Equal(t, 4, len(other.Existing()))
	got, ok := other.Entry(espressoID)
	assert.True(t, ok)
	assert.Equal(t, "Flat white", got.(*ast.Transaction).Narration)
}

func TestUnknownEntryOperations(t *testing.T) {
	l, _ := setupLedger(t)

	assert.False(t, l.Delete("no-such-id"))

	_, ok := l.Replace("no-such-id", &ast.Transaction{Date: ast.MustDate("2023-01-01"), Flag: "*"})
	assert.False(t, ok)

	assert.False(t, l.Dirty())
}

func TestAddDuplicateEntry(t *testing.T) {
	l, _ := setupLedger(t)

	id := findEntry(l, "Bread")
	dup := &ast.Transaction{Date: ast.MustDate("2023-01-05"), Flag: "*", Narration: "copy"}
	dup.Meta().SetStableID(id)

	_, err := l.Add(dup)
	assert.Error(t, err)

	var dupErr *DuplicateEntryError
	assert.True(t, errors.As(err, &dupErr))
	assert.Equal(t, id, dupErr.ID)
}

func TestDeleteStagedAddition(t *testing.T) {
	l, _ := setupLedger(t)

	id, err := l.Add(&ast.Transaction{Date: ast.MustDate("2023-01-08"), Flag: "*", Narration: "staged"})
	assert.NoError(t, err)

	assert.True(t, l.Delete(id))
	assert.False(t, l.Dirty())
	assert.False(t, l.Generator().Exists(id))
}

func TestOpenedAccountsAndOptions(t *testing.T) {
	l, _ := setupLedger(t)

	accounts := l.OpenedAccounts()
	assert.True(t, accounts["Assets:Checking"])
	assert.True(t, accounts["Expenses:Food"])
	assert.False(t, accounts["Assets:Unknown"])

	assert.Equal(t, 1, len(l.Options()))
	assert.Equal(t, "title", l.Options()[0].Name)
}

func TestLoadParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.bean")
	assert.NoError(t, os.WriteFile(path, []byte("garbage\n2023-01-01 open Assets:Checking\n"), 0o644))

	err := New(path).Load(context.Background())
	assert.Error(t, err)

	var loadErr *LoadError
	assert.True(t, errors.As(err, &loadErr))

	var errList parser.ErrorList
	assert.True(t, errors.As(err, &errList))
	assert.Equal(t, 1, len(errList))
}

func TestComputeRanges(t *testing.T) {
	open := &ast.Open{Date: ast.MustDate("2023-01-01"), Account: "Assets:Checking"}
	open.Meta().SetStableID("a")
	open.Meta().SetSource("/tmp/main.bean", 3)

	txn := &ast.Transaction{Date: ast.MustDate("2023-01-05"), Flag: "*", Narration: "x"}
	txn.Meta().SetStableID("b")
	txn.Meta().SetSource("/tmp/main.bean", 6)

	entries := map[string]ast.Directive{"a": open, "b": txn}
	ranges, byFile := computeRanges(entries)

	// A directive's range runs to the next directive's start; the last one
	// extends to the end of the file.
	assert.Equal(t, LineRange{Begin: 2, End: 5}, ranges["a"])
	assert.Equal(t, LineRange{Begin: 5, End: EndOfFile}, ranges["b"])
	assert.Equal(t, []string{"a", "b"}, byFile["/tmp/main.bean"])
}

func TestLineRangeString(t *testing.T) {
	assert.Equal(t, "[2, 5)", LineRange{Begin: 2, End: 5}.String())
	assert.Equal(t, "[5, eof)", LineRange{Begin: 5, End: EndOfFile}.String())
}

func TestRegeneratesDuplicateTokensOnLoad(t *testing.T) {
	ctx := context.Background()

	content := `2023-01-01 open Assets:Checking
  bbid: "same-token"
2023-01-02 open Expenses:Food
  bbid: "same-token"
`
	path := filepath.Join(t.TempDir(), "main.bean")
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	l := New(path)
	assert.NoError(t, l.Load(ctx))

	// The second holder of the token is re-identified and staged.
	assert.True(t, l.Dirty())

	ids := make(map[string]bool)
	for _, d := range l.Existing() {
		ids[d.Meta().StableID()] = true
	}
	assert.Equal(t, 2, len(ids))
	assert.True(t, ids["same-token"])

	assert.NoError(t, l.Save(ctx))

	other := New(path)
	assert.NoError(t, other.Load(ctx))
	assert.False(t, other.Dirty())
}

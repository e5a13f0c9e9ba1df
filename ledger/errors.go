package ledger

import "fmt"

// LoadError wraps the parse errors that aborted a Load. The underlying
// error is the parser's ErrorList; nothing is swallowed.
type LoadError struct {
	Filename string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %s", e.Filename, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// DuplicateEntryError is returned when adding a directive whose stable ID
// is already tracked by the ledger.
type DuplicateEntryError struct {
	ID string
}

func (e *DuplicateEntryError) Error() string {
	return fmt.Sprintf("entry %q already exists in the ledger", e.ID)
}

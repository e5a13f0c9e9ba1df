package session

import "fmt"

// ConsistencyError reports a committed change that did not survive the
// save-and-reload cycle, which indicates a storage defect rather than a
// user mistake.
type ConsistencyError struct {
	ID      string
	Problem string
}

func (e *ConsistencyError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("inconsistent state after commit: %s", e.Problem)
	}
	return fmt.Sprintf("inconsistent state after commit for entry %q: %s", e.ID, e.Problem)
}

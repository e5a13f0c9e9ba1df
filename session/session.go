// Package session provides an editing workspace over a ledger. A Session
// stages additions, field edits, and deletions without touching the
// underlying files; Commit pushes the whole batch through the ledger,
// saves, reloads, and verifies the result, while Rollback discards every
// staged change.
//
// Edits to loaded entries go through change-tracking overlays (see
// ast.Mutable): Get hands out an overlay for an entry, the caller sets
// fields on it, and Commit materializes only the overlays that were
// actually modified.
//
// The session shares the ledger's identity generator, so IDs minted for
// staged entries can never collide with IDs already on disk.
package session

import (
	"context"
	"fmt"
	"log"

	"github.com/beanbot-go/beanbot/ast"
	"github.com/beanbot-go/beanbot/idgen"
	"github.com/beanbot-go/beanbot/ledger"
	"github.com/beanbot-go/beanbot/telemetry"
)

// Session stages edits against a ledger.
type Session struct {
	ledger *ledger.Ledger
	gen    *idgen.Generator

	new      map[string]*ast.Mutable
	existing map[string]*ast.Mutable
	deleted  map[string]bool
}

// New creates a Session over a loaded ledger.
func New(l *ledger.Ledger) *Session {
	return &Session{
		ledger:   l,
		gen:      l.Generator(),
		new:      make(map[string]*ast.Mutable),
		existing: make(map[string]*ast.Mutable),
		deleted:  make(map[string]bool),
	}
}

// Ledger returns the underlying ledger.
func (s *Session) Ledger() *ledger.Ledger { return s.ledger }

// Add stages a new directive and returns its stable ID. A directive that
// already carries an ID keeps it, but the ID must be unknown to the shared
// generator; reusing a known ID returns idgen.DuplicateIDError.
func (s *Session) Add(d ast.Directive) (string, error) {
	d = ast.Clone(d)

	id := d.Meta().StableID()
	if id != "" {
		if err := s.gen.Register(id); err != nil {
			return "", err
		}
	} else {
		var err error
		id, err = s.gen.Generate()
		if err != nil {
			return "", err
		}
		d.Meta().SetStableID(id)
	}

	s.new[id] = ast.Wrap(d)
	return id, nil
}

// Get returns an editable overlay for an entry. Staged additions are
// editable too; entries staged for deletion and unknown IDs report false.
// The overlay is cached, so repeated Gets for the same ID accumulate edits
// on one overlay.
func (s *Session) Get(id string) (*ast.Mutable, bool) {
	if s.deleted[id] {
		return nil, false
	}
	if m, ok := s.new[id]; ok {
		return m, true
	}
	if m, ok := s.existing[id]; ok {
		return m, true
	}

	d, ok := s.ledger.Entry(id)
	if !ok {
		return nil, false
	}
	m := ast.Wrap(d)
	s.existing[id] = m
	return m, true
}

// Delete stages the removal of an entry. A staged addition is dropped
// outright and its ID released; a loaded entry is marked for deletion,
// discarding any staged edits to it. Unknown IDs are logged and reported
// as false.
func (s *Session) Delete(id string) bool {
	if _, ok := s.new[id]; ok {
		delete(s.new, id)
		s.gen.Unregister(id)
		return true
	}

	if s.ledger.HasEntry(id) {
		delete(s.existing, id)
		s.deleted[id] = true
		return true
	}

	log.Printf("session: delete of unknown entry %q ignored", id)
	return false
}

// HasEntry reports whether id is visible in the session: staged additions
// and loaded entries count, entries staged for deletion do not.
func (s *Session) HasEntry(id string) bool {
	if s.deleted[id] {
		return false
	}
	if _, ok := s.new[id]; ok {
		return true
	}
	return s.ledger.HasEntry(id)
}

// Dirty reports whether the session stages any effective change: an
// addition, a deletion, or an overlay with at least one overridden field.
func (s *Session) Dirty() bool {
	if len(s.new) > 0 || len(s.deleted) > 0 {
		return true
	}
	for _, m := range s.existing {
		if m.Dirty() {
			return true
		}
	}
	return false
}

// Commit pushes every staged change into the ledger, saves, reloads, and
// verifies that each change took effect. On success the session is clean.
// A save failure restores the ledger's on-disk view and leaves the
// session's staging intact so the caller can inspect, fix, or roll back.
func (s *Session) Commit(ctx context.Context) error {
	if !s.Dirty() {
		return nil
	}

	timer := telemetry.StartTimer(ctx, "session.commit")
	defer timer.End()

	var added, replaced, removed []string

	for id, m := range s.new {
		if _, err := s.ledger.Add(m.ToDirective()); err != nil {
			return fmt.Errorf("failed to stage new entry %q: %w", id, err)
		}
		added = append(added, id)
	}
	for id, m := range s.existing {
		if !m.Dirty() {
			continue
		}
		if _, ok := s.ledger.Replace(id, m.ToDirective()); !ok {
			return &ConsistencyError{ID: id, Problem: "edited entry vanished before commit"}
		}
		replaced = append(replaced, id)
	}
	for id := range s.deleted {
		if s.ledger.Delete(id) {
			removed = append(removed, id)
		}
	}

	if err := s.ledger.Save(ctx); err != nil {
		if loadErr := s.ledger.Load(ctx); loadErr != nil {
			return fmt.Errorf("failed to commit: %w (reload after failure: %v)", err, loadErr)
		}
		return fmt.Errorf("failed to commit: %w", err)
	}

	if err := s.ledger.Load(ctx); err != nil {
		return fmt.Errorf("failed to reload after commit: %w", err)
	}

	for _, id := range added {
		if !s.ledger.HasEntry(id) {
			return &ConsistencyError{ID: id, Problem: "added entry missing after reload"}
		}
	}
	for _, id := range replaced {
		if !s.ledger.HasEntry(id) {
			return &ConsistencyError{ID: id, Problem: "replaced entry missing after reload"}
		}
	}
	for _, id := range removed {
		if s.ledger.HasEntry(id) {
			return &ConsistencyError{ID: id, Problem: "deleted entry still present after reload"}
		}
	}
	if s.ledger.Dirty() {
		return &ConsistencyError{Problem: "ledger reports staged changes after reload"}
	}

	s.clear()
	return nil
}

// Rollback discards all staged changes. IDs minted for staged additions
// are released, deletions are forgotten, and overlays on loaded entries
// are dropped together with their edits.
func (s *Session) Rollback() {
	for id := range s.new {
		s.gen.Unregister(id)
	}
	s.clear()
}

func (s *Session) clear() {
	s.new = make(map[string]*ast.Mutable)
	s.existing = make(map[string]*ast.Mutable)
	s.deleted = make(map[string]bool)
}

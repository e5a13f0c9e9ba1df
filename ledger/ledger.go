// Package ledger implements transactional storage for a plain-text
// double-entry ledger. A Ledger is the authoritative view of the
// directives on disk: Load parses the backing file (following includes),
// assigns every directive a stable identity token, and computes the line
// range each directive occupies; Add, Delete, and Replace stage changes in
// memory; Save turns the staged changes into line patches and rewrites
// each affected file in place, leaving all surrounding human-authored text
// untouched.
//
// Stable identity survives reloads because the token is persisted in the
// directive's metadata under ast.MetaStableID. A directive loaded without
// a token gets one allocated and is marked dirty so the token is written
// back on the next Save.
//
// A Ledger is not safe for concurrent use; callers serialize access to one
// instance. The identity Generator it exposes is safe to share, which is
// how sessions mint tokens that cannot collide with the ledger's own.
package ledger

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"golang.org/x/exp/slices"

	"github.com/beanbot-go/beanbot/ast"
	"github.com/beanbot-go/beanbot/idgen"
	"github.com/beanbot-go/beanbot/loader"
	"github.com/beanbot-go/beanbot/printer"
	"github.com/beanbot-go/beanbot/telemetry"
	"github.com/beanbot-go/beanbot/textedit"
)

// Ledger tracks the directives of one main ledger file (plus its
// includes) keyed by stable ID, with staged additions, replacements, and
// deletions waiting for the next Save.
type Ledger struct {
	mainFile string
	gen      *idgen.Generator
	loader   *loader.Loader
	printer  *printer.Printer

	existing map[string]ast.Directive
	new      map[string]ast.Directive
	changed  map[string]ast.Directive
	deleted  map[string]ast.Directive

	ranges  map[string]LineRange
	byFile  map[string][]string
	options []*ast.Option
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithGenerator shares an existing identity generator instead of creating
// a fresh one.
func WithGenerator(gen *idgen.Generator) Option {
	return func(l *Ledger) {
		l.gen = gen
	}
}

// WithPrinter overrides the printer used to render staged directives.
func WithPrinter(p *printer.Printer) Option {
	return func(l *Ledger) {
		l.printer = p
	}
}

// WithLoader overrides the loader used to read the backing files.
func WithLoader(ld *loader.Loader) Option {
	return func(l *Ledger) {
		l.loader = ld
	}
}

// New creates a Ledger over mainFile. Nothing is read until Load.
func New(mainFile string, opts ...Option) *Ledger {
	if abs, err := filepath.Abs(mainFile); err == nil {
		mainFile = abs
	}

	l := &Ledger{
		mainFile: mainFile,
		existing: make(map[string]ast.Directive),
		new:      make(map[string]ast.Directive),
		changed:  make(map[string]ast.Directive),
		deleted:  make(map[string]ast.Directive),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.gen == nil {
		l.gen = idgen.New()
	}
	if l.loader == nil {
		l.loader = loader.New(loader.WithFollowIncludes())
	}
	if l.printer == nil {
		l.printer = printer.New()
	}
	return l
}

// Generator returns the identity generator, for sharing with sessions.
func (l *Ledger) Generator() *idgen.Generator { return l.gen }

// MainFile returns the absolute path of the backing file.
func (l *Ledger) MainFile() string { return l.mainFile }

// Options returns the option directives read by the last Load.
func (l *Ledger) Options() []*ast.Option { return l.options }

// Load parses the backing file, registers or allocates stable IDs,
// computes line ranges, and resets all staging. Parse errors abort the
// load and are surfaced verbatim. After Load, Dirty reports true only when
// an ID had to be freshly allocated (the allocation is staged as a
// replacement so the token reaches disk on the next Save).
func (l *Ledger) Load(ctx context.Context) error {
	timer := telemetry.StartTimer(ctx, "ledger.load")
	defer timer.End()

	file, err := l.loader.Load(ctx, l.mainFile)
	if err != nil {
		return &LoadError{Filename: l.mainFile, Err: err}
	}

	existing := make(map[string]ast.Directive, len(file.Directives))
	seen := make(map[string]bool, len(file.Directives))
	var allocated []string

	for _, d := range file.Directives {
		id := d.Meta().StableID()
		switch {
		case id == "":
			id, err = l.gen.Generate()
			if err != nil {
				return fmt.Errorf("failed to identify entry at %s:%d: %w",
					d.Meta().SourceFile(), d.Meta().SourceLine(), err)
			}
			d.Meta().SetStableID(id)
			allocated = append(allocated, id)

		case seen[id]:
			// Two on-disk records share a token; a hand-copied entry or an
			// allocator defect. Keep the first, re-identify the later one
			// and persist the fix on the next Save.
			log.Printf("ledger: duplicate stable id %q at %s:%d, regenerating",
				id, d.Meta().SourceFile(), d.Meta().SourceLine())
			id, err = l.gen.Generate()
			if err != nil {
				return fmt.Errorf("failed to re-identify entry: %w", err)
			}
			d.Meta().SetStableID(id)
			allocated = append(allocated, id)

		default:
			if !l.gen.Exists(id) {
				if regErr := l.gen.Register(id); regErr != nil {
					return fmt.Errorf("failed to register stable id %q: %w", id, regErr)
				}
			}
		}

		seen[id] = true
		existing[id] = d
	}

	l.existing = existing
	l.ranges, l.byFile = computeRanges(existing)
	l.options = file.Options

	l.new = make(map[string]ast.Directive)
	l.changed = make(map[string]ast.Directive)
	l.deleted = make(map[string]ast.Directive)
	for _, id := range allocated {
		l.changed[id] = l.existing[id]
	}

	return nil
}

// Add stages a new directive and returns its stable ID. A directive that
// already carries a token keeps it (tokens minted by a session sharing the
// generator arrive this way); adding a token the ledger already tracks is
// a DuplicateEntryError. No disk I/O happens until Save.
func (l *Ledger) Add(d ast.Directive) (string, error) {
	d = ast.Clone(d)

	id := d.Meta().StableID()
	if id != "" {
		if l.HasEntry(id) {
			return "", &DuplicateEntryError{ID: id}
		}
		if !l.gen.Exists(id) {
			if err := l.gen.Register(id); err != nil {
				return "", err
			}
		}
	} else {
		var err error
		id, err = l.gen.Generate()
		if err != nil {
			return "", err
		}
		d.Meta().SetStableID(id)
	}

	l.new[id] = d
	return id, nil
}

// Delete stages the removal of an entry. A staged-only addition is simply
// dropped (no net change); a loaded entry moves to the deletion set,
// discarding any staged replacement. Unknown IDs are logged and reported
// as false, never raised; probing for existence is routine in import
// pipelines.
func (l *Ledger) Delete(id string) bool {
	if _, ok := l.new[id]; ok {
		delete(l.new, id)
		l.gen.Unregister(id)
		return true
	}

	if d, ok := l.existing[id]; ok {
		delete(l.changed, id)
		delete(l.existing, id)
		l.deleted[id] = d
		return true
	}

	log.Printf("ledger: delete of unknown entry %q ignored", id)
	return false
}

// Replace stages a replacement for a loaded entry under the same stable
// ID; replacement never regenerates identity. Returns "" and false for an
// ID the ledger does not track as existing.
func (l *Ledger) Replace(id string, d ast.Directive) (string, bool) {
	if _, ok := l.existing[id]; !ok {
		log.Printf("ledger: replace of unknown entry %q ignored", id)
		return "", false
	}

	d = ast.Clone(d)
	d.Meta().SetStableID(id)
	l.changed[id] = d
	return id, true
}

// Dirty reports whether any staged changes await Save.
func (l *Ledger) Dirty() bool {
	return len(l.new) > 0 || len(l.changed) > 0 || len(l.deleted) > 0
}

// HasEntry reports whether the ledger tracks id as a loaded or staged-new
// entry. Entries staged for deletion are gone.
func (l *Ledger) HasEntry(id string) bool {
	if _, ok := l.existing[id]; ok {
		return true
	}
	_, ok := l.new[id]
	return ok
}

// Entry returns the current view of an entry: a staged replacement when
// one exists, otherwise the loaded or staged-new directive.
func (l *Ledger) Entry(id string) (ast.Directive, bool) {
	if d, ok := l.changed[id]; ok {
		return d, true
	}
	if d, ok := l.existing[id]; ok {
		return d, true
	}
	d, ok := l.new[id]
	return d, ok
}

// Range returns the line range an existing entry occupies in its file.
func (l *Ledger) Range(id string) (LineRange, bool) {
	r, ok := l.ranges[id]
	return r, ok
}

// Existing returns the loaded directives sorted by date. Staged changes
// are not reflected; this is the committed view deduplication runs
// against.
func (l *Ledger) Existing() ast.Directives {
	entries := make(ast.Directives, 0, len(l.existing))
	for _, d := range l.existing {
		entries = append(entries, d)
	}
	ast.SortByDate(entries)
	return entries
}

// OpenedAccounts returns the set of accounts opened anywhere in the
// loaded files.
func (l *Ledger) OpenedAccounts() map[ast.Account]bool {
	accounts := make(map[ast.Account]bool)
	for _, d := range l.existing {
		if open, ok := d.(*ast.Open); ok {
			accounts[open.Account] = true
		}
	}
	return accounts
}

// Save persists all staged changes. Per affected file it builds the
// ordered change sets - appends for staged additions, replacements and
// deletions at the stored line ranges - and hands them to the text patch
// engine, then folds the staged maps into the existing set and refreshes
// the line ranges to match the rewritten files. A no-op when nothing is
// staged.
func (l *Ledger) Save(ctx context.Context) error {
	if !l.Dirty() {
		return nil
	}

	timer := telemetry.StartTimer(ctx, "ledger.save")
	defer timer.End()

	changes := make(map[string][]textedit.Change)
	changeIDs := make(map[string][]string)
	stage := func(file, id string, c textedit.Change) {
		changes[file] = append(changes[file], c)
		changeIDs[file] = append(changeIDs[file], id)
	}

	for id, d := range l.changed {
		r, ok := l.ranges[id]
		if !ok {
			log.Printf("ledger: no line range for changed entry %q, skipping", id)
			continue
		}
		file := l.existing[id].Meta().SourceFile()
		lines := append(l.printer.PrintLines(d), "")
		stage(file, id, textedit.Replace(r.Begin, r.End, lines))
	}

	for id, d := range l.deleted {
		r, ok := l.ranges[id]
		if !ok {
			log.Printf("ledger: no line range for deleted entry %q, skipping", id)
			continue
		}
		stage(d.Meta().SourceFile(), id, textedit.Delete(r.Begin, r.End))
	}

	// Additions are appended in a deterministic order: by date, then ID.
	newIDs := make([]string, 0, len(l.new))
	for id := range l.new {
		newIDs = append(newIDs, id)
	}
	slices.SortFunc(newIDs, func(a, b string) int {
		if c := ast.DateOf(l.new[a]).Compare(ast.DateOf(l.new[b]).Time); c != 0 {
			return c
		}
		return compareStrings(a, b)
	})
	for _, id := range newIDs {
		d := l.new[id]
		file := d.Meta().SourceFile()
		if file == "" {
			file = l.mainFile
		}
		lines := append(l.printer.PrintLines(d), "")
		stage(file, id, textedit.Append(lines))
	}

	files := make([]string, 0, len(changes))
	for file := range changes {
		files = append(files, file)
	}
	slices.Sort(files)

	for _, file := range files {
		editor, err := textedit.NewEditor(file)
		if err != nil {
			return err
		}

		fileChanges := changes[file]
		// Keep appended entries visually separated when the file does not
		// already end with a blank line.
		separated := false
		if editor.LineCount() > 0 && !editor.TrailingBlank() {
			for i := range fileChanges {
				if fileChanges[i].Kind == textedit.KindAppend {
					fileChanges[i].Lines = append([]string{""}, fileChanges[i].Lines...)
					separated = true
					break
				}
			}
		}

		lineCount := editor.LineCount()
		editor.Edit(fileChanges...)
		if err := editor.SaveChanges(""); err != nil {
			return fmt.Errorf("failed to save %s: %w", file, err)
		}

		l.refreshRanges(file, lineCount, fileChanges, changeIDs[file], separated)
	}

	for id, d := range l.changed {
		l.existing[id] = d
	}
	for id, d := range l.new {
		if d.Meta().SourceFile() == "" {
			d.Meta()[ast.MetaFilename] = l.mainFile
		}
		l.existing[id] = d
	}
	for id := range l.deleted {
		l.gen.Unregister(id)
	}

	// Source lines follow the refreshed ranges so the metadata keeps
	// matching the rewritten files.
	for _, file := range files {
		for _, id := range l.byFile[file] {
			if d, ok := l.existing[id]; ok {
				d.Meta().SetSource(file, l.ranges[id].Begin+1)
			}
		}
	}

	l.new = make(map[string]ast.Directive)
	l.changed = make(map[string]ast.Directive)
	l.deleted = make(map[string]ast.Directive)

	return nil
}

// refreshRanges recomputes a file's line ranges after its staged changes
// have been written, so further edits can be staged and saved without an
// intervening Load. Surviving entries shift by the line delta of every
// change above them, appended entries get ranges at the end of the file,
// and the file's new last entry extends to the end-of-file sentinel again.
func (l *Ledger) refreshRanges(file string, lineCount int, changes []textedit.Change, ids []string, separated bool) {
	replacedLen := make(map[string]int)
	removed := make(map[string]bool)
	var appended []string
	appendedLen := make(map[string]int)

	for i, c := range changes {
		switch c.Kind {
		case textedit.KindReplace:
			replacedLen[ids[i]] = len(c.Lines)
		case textedit.KindDelete:
			removed[ids[i]] = true
		case textedit.KindAppend:
			appended = append(appended, ids[i])
			appendedLen[ids[i]] = len(c.Lines)
		}
	}
	if separated && len(appended) > 0 {
		// The first append carries the blank separator line; it belongs to
		// the preceding entry's range, like any gap between entries.
		appendedLen[appended[0]]--
	}

	prior := l.byFile[file]
	order := make([]string, 0, len(prior)+len(appended))
	pos := lineCount
	if len(prior) > 0 {
		pos = l.ranges[prior[0]].Begin
	}

	for _, id := range prior {
		r := l.ranges[id]
		if removed[id] {
			delete(l.ranges, id)
			continue
		}
		end := r.End
		if end == EndOfFile {
			end = lineCount
		}
		length := end - r.Begin
		if n, ok := replacedLen[id]; ok {
			length = n
		}
		l.ranges[id] = LineRange{Begin: pos, End: pos + length}
		order = append(order, id)
		pos += length
	}

	if separated && len(appended) > 0 {
		if n := len(order); n > 0 {
			last := order[n-1]
			l.ranges[last] = LineRange{Begin: l.ranges[last].Begin, End: l.ranges[last].End + 1}
		}
		pos++
	}

	for _, id := range appended {
		l.ranges[id] = LineRange{Begin: pos, End: pos + appendedLen[id]}
		order = append(order, id)
		pos += appendedLen[id]
	}

	if n := len(order); n > 0 {
		last := order[n-1]
		l.ranges[last] = LineRange{Begin: l.ranges[last].Begin, End: EndOfFile}
	}

	l.byFile[file] = order
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

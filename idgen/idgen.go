// Package idgen mints and tracks the stable identity tokens directives
// carry in their metadata. A Generator never hands out a token twice while
// it is live, and callers can register tokens found on disk so freshly
// generated ones cannot collide with them.
//
// The Generator is safe for concurrent use; it is the one piece of the
// engine shared between a ledger and its sessions across goroutines.
package idgen

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// DefaultMaxAttempts bounds how often Generate retries on collision before
// giving up. Collisions are practically impossible for random tokens, so
// hitting the bound indicates a defect in the token source.
const DefaultMaxAttempts = 16

// DuplicateIDError is returned when registering a token that is already
// live.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("id %q is already registered", e.ID)
}

// ExhaustionError is returned when Generate fails to produce an unused
// token within the attempt bound.
type ExhaustionError struct {
	Attempts int
}

func (e *ExhaustionError) Error() string {
	return fmt.Sprintf("failed to generate an unused id after %d attempts", e.Attempts)
}

// Generator tracks issued identity tokens.
type Generator struct {
	mu          sync.Mutex
	issued      map[string]struct{}
	maxAttempts int
	newToken    func() string
}

// Option configures a Generator.
type Option func(*Generator)

// WithMaxAttempts overrides the collision retry bound.
func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		g.maxAttempts = n
	}
}

// WithTokenSource replaces the random token source. Intended for tests.
func WithTokenSource(fn func() string) Option {
	return func(g *Generator) {
		g.newToken = fn
	}
}

// New creates a Generator with no issued tokens.
func New(opts ...Option) *Generator {
	g := &Generator{
		issued:      make(map[string]struct{}),
		maxAttempts: DefaultMaxAttempts,
		newToken:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a fresh, never-issued token and marks it live.
func (g *Generator) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		id := g.newToken()
		if _, taken := g.issued[id]; taken {
			continue
		}
		g.issued[id] = struct{}{}
		return id, nil
	}
	return "", &ExhaustionError{Attempts: g.maxAttempts}
}

// Register marks an externally sourced token as live, typically one read
// from a directive's metadata at load time.
func (g *Generator) Register(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, taken := g.issued[id]; taken {
		return &DuplicateIDError{ID: id}
	}
	g.issued[id] = struct{}{}
	return nil
}

// Unregister releases a token for reuse. Reports whether it was live.
func (g *Generator) Unregister(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	_, taken := g.issued[id]
	delete(g.issued, id)
	return taken
}

// Exists reports whether a token is currently live.
func (g *Generator) Exists(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	_, taken := g.issued[id]
	return taken
}

// Len returns the number of live tokens.
func (g *Generator) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.issued)
}

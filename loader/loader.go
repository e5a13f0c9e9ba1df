// Package loader reads ledger files into the directive model, optionally
// following include directives. Included files are resolved relative to
// the directory of the including file and deduplicated, so a file included
// twice is only read once.
//
// Paths are made absolute before parsing so every directive's source
// metadata addresses exactly one file on disk, which the storage engine
// relies on when computing line ranges.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/beanbot-go/beanbot/ast"
	"github.com/beanbot-go/beanbot/parser"
)

// Loader reads and parses ledger files.
type Loader struct {
	// FollowIncludes controls whether include directives are resolved
	// recursively. When false, only the named file is parsed and its
	// includes are left in the returned file.
	FollowIncludes bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithFollowIncludes enables recursive include resolution.
func WithFollowIncludes() Option {
	return func(l *Loader) {
		l.FollowIncludes = true
	}
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load parses filename, following includes when configured. Parse errors
// from any file abort the load.
func (l *Loader) Load(ctx context.Context, filename string) (*ast.File, error) {
	if !l.FollowIncludes {
		return readFile(filename)
	}

	state := &loadState{visited: make(map[string]bool)}
	return state.loadRecursive(ctx, filename)
}

func readFile(filename string) (*ast.File, error) {
	absPath, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for %s: %w", filename, err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}

	return parser.ParseBytes(absPath, data)
}

type loadState struct {
	visited map[string]bool
}

func (s *loadState) loadRecursive(ctx context.Context, filename string) (*ast.File, error) {
	absPath, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for %s: %w", filename, err)
	}

	if s.visited[absPath] {
		return &ast.File{}, nil
	}
	s.visited[absPath] = true

	file, err := readFile(absPath)
	if err != nil {
		return nil, err
	}

	if len(file.Includes) == 0 {
		return file, nil
	}

	baseDir := filepath.Dir(absPath)
	merged := &ast.File{
		Directives: file.Directives,
		Options:    file.Options,
	}

	for _, inc := range file.Includes {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		includePath := inc.Filename
		if !filepath.IsAbs(includePath) {
			includePath = filepath.Join(baseDir, includePath)
		}

		included, err := s.loadRecursive(ctx, includePath)
		if err != nil {
			return nil, fmt.Errorf("in file %s: %w", filename, err)
		}

		merged.Directives = append(merged.Directives, included.Directives...)
		merged.Options = append(merged.Options, included.Options...)
	}

	return merged, nil
}

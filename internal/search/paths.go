package search

import (
	"context"
	"path"
	"strings"

	ncerrors "github.com/notecove/notecove/internal/errors"
	"github.com/notecove/notecove/internal/session"
)

// PathMatch is one indexed path within a corpus.
type PathMatch struct {
	CorpusID int64
	Path     string
}

// ListPaths returns the indexed paths in the session's live scope that
// match pattern, ordered by (corpus id, path). An empty pattern matches
// everything. Patterns without glob metacharacters name a file or a
// directory subtree: "docs" matches docs/a.md and docs/b/c.md alike.
// Patterns with metacharacters use glob matching against the full
// relative path.
func (s *Searcher) ListPaths(ctx context.Context, sess *session.Session, pattern string) ([]PathMatch, error) {
	match, err := compilePattern(pattern)
	if err != nil {
		return nil, err
	}

	scope, err := s.sessions.EffectiveScope(ctx, sess)
	if err != nil {
		return nil, err
	}
	if len(scope) == 0 {
		return nil, nil
	}

	byCorpus, err := s.store.PathsFor(ctx, scope)
	if err != nil {
		return nil, err
	}

	var matches []PathMatch
	for _, corpusID := range scope {
		for _, p := range byCorpus[corpusID] {
			if match(p) {
				matches = append(matches, PathMatch{CorpusID: corpusID, Path: p})
			}
		}
	}
	return matches, nil
}

// compilePattern turns a pattern into a path predicate. Malformed glob
// patterns are rejected up front rather than at first use.
func compilePattern(pattern string) (func(string) bool, error) {
	pattern = strings.TrimSuffix(path.Clean("/"+pattern), "/")
	pattern = strings.TrimPrefix(pattern, "/")

	if pattern == "" || pattern == "." {
		return func(string) bool { return true }, nil
	}

	if !strings.ContainsAny(pattern, "*?[\\") {
		prefix := pattern + "/"
		return func(p string) bool {
			return p == pattern || strings.HasPrefix(p, prefix)
		}, nil
	}

	if _, err := path.Match(pattern, ""); err != nil {
		return nil, ncerrors.Newf(ncerrors.ErrCodeInvalidInput, "malformed path pattern %q", pattern)
	}
	return func(p string) bool {
		ok, err := path.Match(pattern, p)
		return err == nil && ok
	}, nil
}

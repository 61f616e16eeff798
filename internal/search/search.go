// Package search runs similarity queries and path listings against the
// chunk store, scoped by a session. Ranking is exact and deterministic:
// every chunk in scope is scored and ties are broken by identity, so
// the same store and query always produce the same order.
package search

import (
	"context"
	"log/slog"
	"sort"

	ncerrors "github.com/notecove/notecove/internal/errors"
	"github.com/notecove/notecove/internal/session"
	"github.com/notecove/notecove/internal/store"
)

// Result is one scored chunk.
type Result struct {
	CorpusID   int64
	Path       string
	ChunkIndex int
	Text       string
	Score      float64
}

// Searcher answers queries against session scopes.
type Searcher struct {
	store    *store.Store
	sessions *session.Manager
	logger   *slog.Logger
}

// New creates a searcher over the given store and session manager.
func New(st *store.Store, sessions *session.Manager, logger *slog.Logger) *Searcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{store: st, sessions: sessions, logger: logger}
}

// Search scores every chunk in the session's live scope against the
// query vector and returns the top k by cosine similarity. Ties are
// broken by (corpus id, path, chunk index) ascending so rankings are
// reproducible. A non-positive k returns no results; a query vector
// whose dimension differs from the stored chunks is a fatal
// DIMENSION_MISMATCH.
func (s *Searcher) Search(ctx context.Context, sess *session.Session, query []float32, topK int) ([]Result, error) {
	if topK <= 0 {
		return nil, nil
	}

	scope, err := s.sessions.EffectiveScope(ctx, sess)
	if err != nil {
		return nil, err
	}
	if len(scope) == 0 {
		return nil, nil
	}

	chunks, err := s.store.ChunksFor(ctx, scope)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Vector) != len(query) {
			return nil, ncerrors.DimensionMismatch(len(c.Vector), len(query))
		}
		results = append(results, Result{
			CorpusID:   c.CorpusID,
			Path:       c.Path,
			ChunkIndex: c.Index,
			Text:       c.Text,
			Score:      dotProduct(query, c.Vector),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.CorpusID != b.CorpusID {
			return a.CorpusID < b.CorpusID
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.ChunkIndex < b.ChunkIndex
	})

	if len(results) > topK {
		results = results[:topK]
	}

	s.logger.Debug("search complete",
		"session", sess.ID,
		"corpora", len(scope),
		"scored", len(chunks),
		"returned", len(results))
	return results, nil
}

// dotProduct is cosine similarity for unit vectors; embeddings are
// normalized when generated.
func dotProduct(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Package engine wires the store, file cache, embedder, indexer,
// sessions, and search into one facade. The CLI talks only to this
// package; everything below it is a capability the engine owns.
package engine

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"github.com/notecove/notecove/internal/chunk"
	"github.com/notecove/notecove/internal/config"
	"github.com/notecove/notecove/internal/embed"
	ncerrors "github.com/notecove/notecove/internal/errors"
	"github.com/notecove/notecove/internal/fscache"
	"github.com/notecove/notecove/internal/index"
	"github.com/notecove/notecove/internal/search"
	"github.com/notecove/notecove/internal/session"
	"github.com/notecove/notecove/internal/store"
	"github.com/notecove/notecove/internal/watcher"
)

// storeFileName is the SQLite database inside the data directory.
const storeFileName = "notecove.db"

// Engine owns the full stack for one data directory.
type Engine struct {
	cfg      *config.Config
	logger   *slog.Logger
	lock     *flock.Flock
	store    *store.Store
	cache    *fscache.Cache
	embedder embed.Embedder
	indexer  *index.Indexer
	sessions *session.Manager
	searcher *search.Searcher
}

// Open locks the data directory and brings up the stack. A second
// process opening the same directory fails with LOCK_HELD.
func Open(cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, ncerrors.IOFailure(cfg.DataDir, err)
	}

	lock, err := acquireLock(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(filepath.Join(cfg.DataDir, storeFileName))
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	embedder, err := embed.New(embed.Options{
		Provider:       cfg.Embeddings.Provider,
		Timeout:        cfg.Embeddings.Timeout,
		QueryCacheSize: cfg.Embeddings.QueryCacheSize,
	})
	if err != nil {
		_ = st.Close()
		_ = lock.Unlock()
		return nil, err
	}

	cache := fscache.New()
	splitter := chunk.NewSplitter(cfg.Chunking.MaxChunkChars)
	sessions := session.NewManager(st, logger)

	return &Engine{
		cfg:      cfg,
		logger:   logger,
		lock:     lock,
		store:    st,
		cache:    cache,
		embedder: embedder,
		indexer:  index.New(st, cache, splitter, embedder, logger),
		sessions: sessions,
		searcher: search.New(st, sessions, logger),
	}, nil
}

// Close releases the embedder, store, and data-directory lock.
func (e *Engine) Close() error {
	var firstErr error
	if err := e.embedder.Close(); err != nil {
		firstErr = err
	}
	if err := e.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := e.lock.Unlock(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// CreateCorpus registers a directory of notes under a unique name.
func (e *Engine) CreateCorpus(ctx context.Context, name, root string) (*store.Corpus, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, ncerrors.IOFailure(root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, ncerrors.IOFailure(abs, err)
	}
	if !info.IsDir() {
		return nil, ncerrors.Newf(ncerrors.ErrCodeInvalidInput, "%s is not a directory", abs)
	}
	return e.store.CreateCorpus(ctx, name, abs)
}

// Corpora lists all registered corpora.
func (e *Engine) Corpora(ctx context.Context) ([]*store.Corpus, error) {
	return e.store.ListCorpora(ctx)
}

// Corpus resolves a corpus by id or name.
func (e *Engine) Corpus(ctx context.Context, key string) (*store.Corpus, error) {
	return e.store.ResolveCorpus(ctx, key)
}

// RemoveCorpus deletes a corpus and all its chunks. Sessions that
// included it survive with a narrower scope.
func (e *Engine) RemoveCorpus(ctx context.Context, key string) error {
	c, err := e.store.ResolveCorpus(ctx, key)
	if err != nil {
		return err
	}
	return e.store.DeleteCorpus(ctx, c.ID)
}

// IndexCorpus runs one indexing pass over the named corpus.
func (e *Engine) IndexCorpus(ctx context.Context, key string) (*index.Result, error) {
	c, err := e.store.ResolveCorpus(ctx, key)
	if err != nil {
		return nil, err
	}
	return e.indexer.IndexCorpus(ctx, c)
}

// IndexAll runs indexing passes over every corpus concurrently. Passes
// touch disjoint corpora, so the only shared state is the store, which
// serializes its own writes.
func (e *Engine) IndexAll(ctx context.Context) (map[string]*index.Result, error) {
	corpora, err := e.store.ListCorpora(ctx)
	if err != nil {
		return nil, err
	}

	results := make(map[string]*index.Result, len(corpora))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range corpora {
		g.Go(func() error {
			result, err := e.indexer.IndexCorpus(gctx, c)
			if err != nil {
				return err
			}
			mu.Lock()
			results[c.Name] = result
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// NewSession creates a session scoped to the given corpora, named by
// id or name.
func (e *Engine) NewSession(ctx context.Context, keys []string, tracked bool) (*session.Session, error) {
	scope := make([]int64, 0, len(keys))
	for _, key := range keys {
		c, err := e.store.ResolveCorpus(ctx, key)
		if err != nil {
			if ncerrors.IsNotFound(err) {
				return nil, ncerrors.InvalidScope("session scope names unknown corpus " + key)
			}
			return nil, err
		}
		scope = append(scope, c.ID)
	}
	return e.sessions.Create(ctx, scope, tracked)
}

// Session loads a tracked session by id.
func (e *Engine) Session(ctx context.Context, id string) (*session.Session, error) {
	return e.sessions.Get(ctx, id)
}

// DiscardSession deletes a tracked session.
func (e *Engine) DiscardSession(ctx context.Context, id string) error {
	return e.sessions.Discard(ctx, id)
}

// Sessions lists tracked session ids.
func (e *Engine) Sessions(ctx context.Context) ([]string, error) {
	return e.sessions.List(ctx)
}

// Query embeds the query text and returns the topK most similar chunks
// in the session's live scope. A topK of zero falls back to the
// configured default.
func (e *Engine) Query(ctx context.Context, sess *session.Session, text string, topK int) ([]search.Result, error) {
	if topK == 0 {
		topK = e.cfg.Search.MaxResults
	}
	vec, err := e.embedder.Embed(ctx, text)
	if err != nil {
		if ncerrors.IsEmbeddingFailure(err) {
			return nil, err
		}
		return nil, ncerrors.EmbeddingFailure("query", err)
	}
	return e.searcher.Search(ctx, sess, vec, topK)
}

// QueryVector searches with a caller-supplied vector.
func (e *Engine) QueryVector(ctx context.Context, sess *session.Session, vec []float32, topK int) ([]search.Result, error) {
	if topK == 0 {
		topK = e.cfg.Search.MaxResults
	}
	return e.searcher.Search(ctx, sess, vec, topK)
}

// Paths lists indexed paths in the session's live scope matching pattern.
func (e *Engine) Paths(ctx context.Context, sess *session.Session, pattern string) ([]search.PathMatch, error) {
	return e.searcher.ListPaths(ctx, sess, pattern)
}

// ClearFileCache drops all memoized file metadata and content. The
// next indexing pass re-stats everything.
func (e *Engine) ClearFileCache() {
	e.cache.Clear()
}

// CachedFiles returns the number of files with memoized metadata.
func (e *Engine) CachedFiles() int {
	return e.cache.Len()
}

// ChunkCount returns the number of stored chunks for a corpus.
func (e *Engine) ChunkCount(ctx context.Context, corpusID int64) (int, error) {
	return e.store.CountChunks(ctx, corpusID)
}

// Watch follows a corpus root and re-indexes after each debounced
// change batch. It blocks until the context is cancelled; onPass, if
// non-nil, observes each completed pass.
func (e *Engine) Watch(ctx context.Context, key string, onPass func(*index.Result)) error {
	c, err := e.store.ResolveCorpus(ctx, key)
	if err != nil {
		return err
	}

	w, err := watcher.New(e.cfg.Watch.Debounce, e.logger)
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	// Catch up before watching: changes made while not running are
	// invisible to fsnotify.
	if result, err := e.indexer.IndexCorpus(ctx, c); err != nil {
		return err
	} else if onPass != nil {
		onPass(result)
	}

	watchErr := make(chan error, 1)
	go func() { watchErr <- w.Start(ctx, c.RootPath) }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-watchErr:
			return err
		case batch, ok := <-w.Changes():
			if !ok {
				return nil
			}
			e.logger.Debug("change batch", "corpus", c.Name, "paths", len(batch))

			// Stale fingerprints would mask the changes just seen.
			e.cache.Clear()
			result, err := e.indexer.IndexCorpus(ctx, c)
			if err != nil {
				return err
			}
			if onPass != nil {
				onPass(result)
			}
		}
	}
}

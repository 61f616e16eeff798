// Package index walks a corpus root, chunks and embeds changed notes,
// and reconciles the chunk store with the filesystem. Unchanged files
// are detected by (modTime, size) fingerprint and skipped without a
// read or an embedding call.
package index

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/notecove/notecove/internal/chunk"
	"github.com/notecove/notecove/internal/embed"
	ncerrors "github.com/notecove/notecove/internal/errors"
	"github.com/notecove/notecove/internal/fscache"
	"github.com/notecove/notecove/internal/store"
)

// noteExtensions are the file types treated as notes during a walk.
var noteExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
}

// Result reports what one indexing pass did.
type Result struct {
	// Indexed is the number of files chunked, embedded, and stored.
	Indexed int
	// Skipped is the number of files left alone because their
	// fingerprint matched the stored one.
	Skipped int
	// Removed is the number of stored paths no longer on disk.
	Removed int
	// Failed maps relative paths to the error that kept them out of
	// the store this pass. Failures never abort the pass.
	Failed map[string]error
	// Duration is the wall time of the pass.
	Duration time.Duration
}

// Indexer drives indexing passes over corpora. Passes for the same
// corpus are serialized; passes for different corpora may overlap.
type Indexer struct {
	store    *store.Store
	cache    *fscache.Cache
	splitter *chunk.Splitter
	embedder embed.Embedder
	logger   *slog.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// New creates an indexer over the given store, file cache, and embedder.
func New(st *store.Store, cache *fscache.Cache, splitter *chunk.Splitter, embedder embed.Embedder, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		store:    st,
		cache:    cache,
		splitter: splitter,
		embedder: embedder,
		logger:   logger,
		locks:    make(map[int64]*sync.Mutex),
	}
}

// corpusLock returns the mutex serializing passes for one corpus.
func (ix *Indexer) corpusLock(corpusID int64) *sync.Mutex {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	lock, ok := ix.locks[corpusID]
	if !ok {
		lock = &sync.Mutex{}
		ix.locks[corpusID] = lock
	}
	return lock
}

// IndexCorpus reconciles the chunk store with the corpus root. Files
// whose fingerprint matches the stored one are skipped; changed and new
// files are re-chunked and re-embedded; stored paths missing from disk
// are removed. Per-file errors are collected in Result.Failed and do
// not stop the pass.
func (ix *Indexer) IndexCorpus(ctx context.Context, corpus *store.Corpus) (*Result, error) {
	lock := ix.corpusLock(corpus.ID)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	result := &Result{Failed: make(map[string]error)}

	paths, err := ix.walk(corpus.RootPath)
	if err != nil {
		return nil, err
	}

	stored, err := ix.store.Fingerprints(ctx, corpus.ID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(paths))
	failedWalked := 0
	for _, rel := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		seen[rel] = true

		if err := ix.indexFile(ctx, corpus, rel, stored, result); err != nil {
			result.Failed[rel] = err
			failedWalked++
			ix.logger.Warn("file skipped",
				"corpus", corpus.Name,
				"path", rel,
				"error", err)
		}
	}

	// Paths in the store but gone from disk.
	for rel := range stored {
		if seen[rel] {
			continue
		}
		if err := ix.store.DeletePath(ctx, corpus.ID, rel); err != nil {
			result.Failed[rel] = err
			continue
		}
		result.Removed++
	}

	// Failed may also hold deletion errors for vanished paths; only
	// failures among walked files reduce the note count.
	noteCount := len(paths) - failedWalked
	if err := ix.store.SetCorpusNoteCount(ctx, corpus.ID, noteCount); err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	ix.logger.Info("index pass complete",
		"corpus", corpus.Name,
		"indexed", result.Indexed,
		"skipped", result.Skipped,
		"removed", result.Removed,
		"failed", len(result.Failed),
		"duration_ms", result.Duration.Milliseconds())
	return result, nil
}

// indexFile brings one note up to date in the store.
func (ix *Indexer) indexFile(ctx context.Context, corpus *store.Corpus, rel string, stored map[string]store.Fingerprint, result *Result) error {
	abs := filepath.Join(corpus.RootPath, filepath.FromSlash(rel))

	meta, err := ix.cache.Metadata(abs)
	if err != nil {
		return err
	}
	fp := store.Fingerprint{ModTime: meta.ModTime, Size: meta.Size}

	if prev, ok := stored[rel]; ok && prev == fp {
		result.Skipped++
		return nil
	}

	content, err := ix.cache.Content(abs)
	if err != nil {
		return err
	}

	texts := ix.splitter.Split(content)
	if len(texts) == 0 {
		// An empty note has nothing to search; store no chunks but
		// drop any stale ones from a previous revision.
		if err := ix.store.DeletePath(ctx, corpus.ID, rel); err != nil {
			return err
		}
		result.Indexed++
		return nil
	}

	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		if ncerrors.IsEmbeddingFailure(err) {
			return err
		}
		return ncerrors.EmbeddingFailure(rel, err)
	}

	if err := ix.store.EnsureDimension(ctx, ix.embedder.Dimensions(), ix.embedder.ModelName()); err != nil {
		return err
	}

	chunks := make([]store.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = store.Chunk{
			Path:   rel,
			Index:  i,
			Text:   text,
			Vector: vectors[i],
		}
	}

	if err := ix.store.UpsertChunks(ctx, corpus.ID, rel, fp, chunks); err != nil {
		return err
	}
	result.Indexed++
	return nil
}

// walk lists the note files under root as sorted slash-separated paths
// relative to root. Hidden directories are not descended into.
func (ix *Indexer) walk(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return ncerrors.IOFailure(path, err)
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !noteExtensions[strings.ToLower(filepath.Ext(name))] {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notecove/notecove/internal/chunk"
	"github.com/notecove/notecove/internal/embed"
	ncerrors "github.com/notecove/notecove/internal/errors"
	"github.com/notecove/notecove/internal/fscache"
	"github.com/notecove/notecove/internal/store"
)

// countingEmbedder wraps the static embedder to count model calls and
// optionally fail for texts containing a marker.
type countingEmbedder struct {
	embed.Embedder
	calls    atomic.Int64
	failWord string
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls.Add(1)
	if c.failWord != "" {
		for _, text := range texts {
			if text == c.failWord {
				return nil, errors.New("model refused input")
			}
		}
	}
	return c.Embedder.EmbedBatch(ctx, texts)
}

type fixture struct {
	store    *store.Store
	cache    *fscache.Cache
	embedder *countingEmbedder
	indexer  *Indexer
	root     string
	corpus   *store.Corpus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "notecove.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	root := t.TempDir()
	corpus, err := st.CreateCorpus(context.Background(), "notes", root)
	require.NoError(t, err)

	cache := fscache.New()
	embedder := &countingEmbedder{Embedder: embed.NewStaticEmbedder()}
	indexer := New(st, cache, chunk.NewSplitter(2000), embedder, nil)

	return &fixture{
		store:    st,
		cache:    cache,
		embedder: embedder,
		indexer:  indexer,
		root:     root,
		corpus:   corpus,
	}
}

func (f *fixture) writeNote(t *testing.T, rel, content string) {
	t.Helper()
	abs := filepath.Join(f.root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
}

func TestIndexCorpusFirstPass(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.writeNote(t, "a.md", "First paragraph.\n\nSecond paragraph.")
	f.writeNote(t, "docs/b.md", "Only paragraph.")
	f.writeNote(t, "ignored.png", "binary-ish")

	result, err := f.indexer.IndexCorpus(ctx, f.corpus)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Indexed)
	assert.Zero(t, result.Skipped)
	assert.Zero(t, result.Removed)
	assert.Empty(t, result.Failed)

	chunks, err := f.store.ChunksFor(ctx, []int64{f.corpus.ID})
	require.NoError(t, err)
	assert.Len(t, chunks, 3)

	got, err := f.store.GetCorpus(ctx, f.corpus.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.NoteCount)
}

func TestIndexCorpusSkipsUnchanged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.writeNote(t, "a.md", "Stable content.")
	_, err := f.indexer.IndexCorpus(ctx, f.corpus)
	require.NoError(t, err)

	callsAfterFirst := f.embedder.calls.Load()

	// Fingerprints come from the file cache; a second pass in the same
	// process must not stat or embed again.
	result, err := f.indexer.IndexCorpus(ctx, f.corpus)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Zero(t, result.Indexed)
	assert.Equal(t, callsAfterFirst, f.embedder.calls.Load())
}

func TestIndexCorpusReindexesChanged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.writeNote(t, "a.md", "Old content.")
	_, err := f.indexer.IndexCorpus(ctx, f.corpus)
	require.NoError(t, err)

	// Force a distinct fingerprint; coarse mtime resolution could
	// otherwise make the rewrite invisible.
	abs := filepath.Join(f.root, "a.md")
	require.NoError(t, os.WriteFile(abs, []byte("New content entirely."), 0o644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(abs, future, future))

	// The process-lifetime cache must be cleared before the pass sees
	// the external change.
	f.cache.Clear()

	result, err := f.indexer.IndexCorpus(ctx, f.corpus)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Indexed)
	assert.Zero(t, result.Skipped)

	chunks, err := f.store.ChunksFor(ctx, []int64{f.corpus.ID})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "New content entirely.", chunks[0].Text)
}

func TestIndexCorpusReembedsOnTouch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.writeNote(t, "a.md", "Same words either way.")
	_, err := f.indexer.IndexCorpus(ctx, f.corpus)
	require.NoError(t, err)

	callsAfterFirst := f.embedder.calls.Load()

	// Touch without rewriting: the fingerprint is (modTime, size), so a
	// changed modTime alone must trigger re-embedding even though the
	// content is byte-identical.
	abs := filepath.Join(f.root, "a.md")
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(abs, future, future))
	f.cache.Clear()

	result, err := f.indexer.IndexCorpus(ctx, f.corpus)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Indexed)
	assert.Zero(t, result.Skipped)
	assert.Greater(t, f.embedder.calls.Load(), callsAfterFirst)
}

func TestIndexCorpusRemovesVanishedPaths(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.writeNote(t, "keep.md", "Kept.")
	f.writeNote(t, "gone.md", "Doomed.")
	_, err := f.indexer.IndexCorpus(ctx, f.corpus)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(f.root, "gone.md")))
	f.cache.Clear()

	result, err := f.indexer.IndexCorpus(ctx, f.corpus)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Removed)

	paths, err := f.store.PathsFor(ctx, []int64{f.corpus.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.md"}, paths[f.corpus.ID])
}

func TestIndexCorpusIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.embedder.failWord = "poison"

	f.writeNote(t, "bad.md", "poison")
	f.writeNote(t, "good.md", "Perfectly fine note.")

	result, err := f.indexer.IndexCorpus(ctx, f.corpus)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Indexed)
	require.Contains(t, result.Failed, "bad.md")
	assert.True(t, ncerrors.IsEmbeddingFailure(result.Failed["bad.md"]))

	// The healthy note made it into the store despite the failure.
	chunks, err := f.store.ChunksFor(ctx, []int64{f.corpus.ID})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "good.md", chunks[0].Path)

	// Failed files stay pending: a later pass with a healthy model
	// picks them up.
	f.embedder.failWord = ""
	result, err = f.indexer.IndexCorpus(ctx, f.corpus)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Indexed)
	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, result.Failed)
}

func TestIndexCorpusNoteCountCountsWalkedFailuresOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.writeNote(t, "bad.md", "poison")
	f.writeNote(t, "good.md", "Healthy note.")
	f.writeNote(t, "gone.md", "Doomed.")
	_, err := f.indexer.IndexCorpus(ctx, f.corpus)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(f.root, "gone.md")))
	f.cache.Clear()
	f.embedder.failWord = "poison"

	// Force bad.md back through embedding on the second pass.
	abs := filepath.Join(f.root, "bad.md")
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(abs, future, future))

	result, err := f.indexer.IndexCorpus(ctx, f.corpus)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Removed)
	require.Contains(t, result.Failed, "bad.md")

	// Two files walked, one of them failed: the note count reflects
	// walked files only, never entries Failed picked up elsewhere.
	got, err := f.store.GetCorpus(ctx, f.corpus.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.NoteCount)
}

func TestIndexCorpusEmptyNote(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.writeNote(t, "empty.md", "")

	result, err := f.indexer.IndexCorpus(ctx, f.corpus)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Indexed)

	n, err := f.store.CountChunks(ctx, f.corpus.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIndexCorpusSkipsHiddenDirs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.writeNote(t, ".obsidian/cache.md", "Editor internals.")
	f.writeNote(t, "visible.md", "Real note.")

	result, err := f.indexer.IndexCorpus(ctx, f.corpus)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Indexed)

	paths, err := f.store.PathsFor(ctx, []int64{f.corpus.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"visible.md"}, paths[f.corpus.ID])
}

func TestIndexCorpusMissingRoot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	orphan := &store.Corpus{ID: f.corpus.ID, Name: "notes", RootPath: filepath.Join(f.root, "nope")}
	_, err := f.indexer.IndexCorpus(ctx, orphan)
	assert.True(t, ncerrors.HasCode(err, ncerrors.ErrCodeIOFailure))
}

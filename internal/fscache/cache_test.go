package fscache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ncerrors "github.com/notecove/notecove/internal/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestMetadata_CachedAcrossExternalChange(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.md", "hello world")

	cache := New()
	first, err := cache.Metadata(path)
	require.NoError(t, err)
	assert.Equal(t, int64(len("hello world")), first.Size)

	// Change the file behind the cache's back. The cached entry must
	// survive: there is no expiry other than Clear.
	require.NoError(t, os.WriteFile(path, []byte("different length content"), 0o644))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))

	second, err := cache.Metadata(path)
	require.NoError(t, err)
	assert.Equal(t, first, second, "metadata must be served from cache")
}

func TestMetadata_ClearStartsNewEpoch(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.md", "hello")

	cache := New()
	first, err := cache.Metadata(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("much longer content now"), 0o644))
	cache.Clear()

	second, err := cache.Metadata(path)
	require.NoError(t, err)
	assert.NotEqual(t, first.Size, second.Size, "Clear must force a re-stat")
}

func TestContent_MemoizedIndependentlyOfMetadata(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.md", "original")

	cache := New()
	content, err := cache.Content(path)
	require.NoError(t, err)
	assert.Equal(t, "original", content)

	require.NoError(t, os.WriteFile(path, []byte("rewritten"), 0o644))

	again, err := cache.Content(path)
	require.NoError(t, err)
	assert.Equal(t, "original", again, "content must be served from cache")

	// Metadata was never requested; it sees the rewritten file.
	meta, err := cache.Metadata(path)
	require.NoError(t, err)
	assert.Equal(t, int64(len("rewritten")), meta.Size)
}

func TestMetadata_MissingFileIsIOFailure(t *testing.T) {
	cache := New()
	_, err := cache.Metadata(filepath.Join(t.TempDir(), "ghost.md"))
	require.Error(t, err)
	assert.Equal(t, ncerrors.ErrCodeIOFailure, ncerrors.GetCode(err))
}

func TestContent_MissingFileIsIOFailure(t *testing.T) {
	cache := New()
	_, err := cache.Content(filepath.Join(t.TempDir(), "ghost.md"))
	require.Error(t, err)
	assert.Equal(t, ncerrors.ErrCodeIOFailure, ncerrors.GetCode(err))
}

func TestCache_ConcurrentReadersShareOneResult(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.md", "shared")

	cache := New()
	var wg sync.WaitGroup
	results := make([]string, 16)

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			content, err := cache.Content(path)
			assert.NoError(t, err)
			results[i] = content
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "shared", r)
	}
	assert.Equal(t, 0, cache.Len(), "no metadata entries expected")
}

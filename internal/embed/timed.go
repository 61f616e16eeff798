package embed

import (
	"context"
	"time"

	ncerrors "github.com/notecove/notecove/internal/errors"
)

// TimedEmbedder bounds every model call with a timeout. A timed-out
// call surfaces as an EMBEDDING_TIMEOUT error; the indexer records it
// against the path being indexed and moves on without retrying until
// the next explicit re-index.
type TimedEmbedder struct {
	inner   Embedder
	timeout time.Duration
}

// NewTimedEmbedder wraps inner with a per-call timeout.
func NewTimedEmbedder(inner Embedder, timeout time.Duration) *TimedEmbedder {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &TimedEmbedder{inner: inner, timeout: timeout}
}

// Embed generates an embedding for a single text within the timeout.
func (t *TimedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	vec, err := t.inner.Embed(ctx, text)
	if err != nil {
		return nil, timedErr(ctx, err)
	}
	return vec, nil
}

// EmbedBatch generates embeddings for multiple texts within a single
// timeout window; one window covers the whole batch because the batch
// is the unit of failure during indexing.
func (t *TimedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	vecs, err := t.inner.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, timedErr(ctx, err)
	}
	return vecs, nil
}

// timedErr maps a context deadline into the timeout error code, keeping
// other model errors as-is.
func timedErr(ctx context.Context, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return ncerrors.Wrap(ncerrors.ErrCodeEmbeddingTimeout, err)
	}
	return err
}

// Dimensions returns the embedding dimension (passthrough to inner).
func (t *TimedEmbedder) Dimensions() int {
	return t.inner.Dimensions()
}

// ModelName returns the model identifier (passthrough to inner).
func (t *TimedEmbedder) ModelName() string {
	return t.inner.ModelName()
}

// Available checks if the embedder is ready (passthrough to inner).
func (t *TimedEmbedder) Available(ctx context.Context) bool {
	return t.inner.Available(ctx)
}

// Close releases resources and closes the inner embedder.
func (t *TimedEmbedder) Close() error {
	return t.inner.Close()
}

var _ Embedder = (*TimedEmbedder)(nil)

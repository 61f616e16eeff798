package embed

import (
	"time"

	ncerrors "github.com/notecove/notecove/internal/errors"
)

// Options configures embedder construction.
type Options struct {
	// Provider selects the backend. "static" is the offline default.
	Provider string
	// Timeout bounds every model call.
	Timeout time.Duration
	// QueryCacheSize is the LRU size for repeated query text.
	QueryCacheSize int
}

// New builds the configured embedder wrapped with the timeout and
// query-cache layers. The engine treats the result as a capability:
// any provider returning fixed-dimension vectors is acceptable.
func New(opts Options) (Embedder, error) {
	var inner Embedder
	switch opts.Provider {
	case "", "static":
		inner = NewStaticEmbedder()
	default:
		return nil, ncerrors.Newf(ncerrors.ErrCodeConfigInvalid,
			"unknown embedding provider %q", opts.Provider)
	}

	timed := NewTimedEmbedder(inner, opts.Timeout)
	return NewCachedEmbedder(timed, opts.QueryCacheSize), nil
}

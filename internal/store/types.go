// Package store provides the durable persistence layer for notecove:
// corpus records, chunk text and vectors, tracked sessions, and a
// small key-value state table, all in a single SQLite database.
package store

import (
	"time"
)

// State keys for the key-value state table.
const (
	// StateKeyDimension stores the embedding dimension used by the store.
	// Set on the first successful embed and enforced thereafter.
	StateKeyDimension = "embedding_dimension"
	// StateKeyModel stores the embedding model name used by the store.
	StateKeyModel = "embedding_model"
)

// Corpus is a named, user-created collection of notes under a root path.
// Corpora are the unit of organization and deletion; deleting one
// removes every chunk it owns.
type Corpus struct {
	ID        int64
	Name      string
	RootPath  string
	NoteCount int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Fingerprint is the (modTime, size) pair used as a cheap proxy for
// "content changed" without hashing full content. ModTime is
// nanoseconds since epoch.
type Fingerprint struct {
	ModTime int64
	Size    int64
}

// Chunk is a fragment of a note's text with its embedding vector, the
// unit of retrieval. Index is the chunk's 0-based position within the
// note's current fingerprint; chunk boundaries are not stable across
// re-indexing.
type Chunk struct {
	CorpusID    int64
	Path        string
	Index       int
	Text        string
	Vector      []float32
	Fingerprint Fingerprint
}

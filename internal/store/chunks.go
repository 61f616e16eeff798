package store

import (
	"context"
	"fmt"
	"time"
)

// UpsertChunks transactionally replaces the full chunk set for a path
// with the given chunks, all tagged with fingerprint. An empty chunks
// slice removes the path entirely. Readers never observe a mix of old
// and new chunks for the path: the delete and inserts commit together.
func (s *Store) UpsertChunks(ctx context.Context, corpusID int64, path string, fp Fingerprint, chunks []Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM chunks WHERE corpus_id = ? AND path = ?`, corpusID, path); err != nil {
		return fmt.Errorf("failed to clear prior chunks: %w", err)
	}

	if len(chunks) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO chunks (corpus_id, path, idx, text, vector, mod_time, size)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare chunk insert: %w", err)
		}
		defer stmt.Close()

		for i, c := range chunks {
			if _, err := stmt.ExecContext(ctx,
				corpusID, path, i, c.Text, encodeVector(c.Vector), fp.ModTime, fp.Size); err != nil {
				return fmt.Errorf("failed to insert chunk %d for %s: %w", i, path, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE corpora SET updated_at = ? WHERE id = ?`,
		time.Now().UnixNano(), corpusID); err != nil {
		return fmt.Errorf("failed to touch corpus: %w", err)
	}

	return tx.Commit()
}

// DeletePath removes all chunks for a note that no longer exists on disk.
func (s *Store) DeletePath(ctx context.Context, corpusID int64, path string) error {
	return s.UpsertChunks(ctx, corpusID, path, Fingerprint{}, nil)
}

// Fingerprints returns the stored fingerprint per path for a corpus.
// Every chunk of a path carries the same fingerprint, so one row per
// path suffices.
func (s *Store) Fingerprints(ctx context.Context, corpusID int64) (map[string]Fingerprint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT path, mod_time, size FROM chunks WHERE corpus_id = ? AND idx = 0`, corpusID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fingerprints: %w", err)
	}
	defer rows.Close()

	fps := make(map[string]Fingerprint)
	for rows.Next() {
		var path string
		var fp Fingerprint
		if err := rows.Scan(&path, &fp.ModTime, &fp.Size); err != nil {
			return nil, fmt.Errorf("failed to scan fingerprint: %w", err)
		}
		fps[path] = fp
	}
	return fps, rows.Err()
}

// ChunksFor returns every chunk belonging to any corpus in the given
// set, ordered by (corpus_id, path, idx). This is the read path used
// by similarity search; the ordering makes tie-breaks reproducible.
func (s *Store) ChunksFor(ctx context.Context, corpusIDs []int64) ([]*Chunk, error) {
	if len(corpusIDs) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT corpus_id, path, idx, text, vector, mod_time, size
		FROM chunks WHERE corpus_id IN (` + placeholders(len(corpusIDs)) + `)
		ORDER BY corpus_id, path, idx`
	rows, err := s.db.QueryContext(ctx, query, int64Args(corpusIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*Chunk
	for rows.Next() {
		var c Chunk
		var blob []byte
		if err := rows.Scan(&c.CorpusID, &c.Path, &c.Index, &c.Text, &blob,
			&c.Fingerprint.ModTime, &c.Fingerprint.Size); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, err
		}
		c.Vector = vec
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

// PathsFor returns the distinct note paths per corpus for the given
// set, the read path used by the path resolver.
func (s *Store) PathsFor(ctx context.Context, corpusIDs []int64) (map[int64][]string, error) {
	result := make(map[int64][]string)
	if len(corpusIDs) == 0 {
		return result, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT DISTINCT corpus_id, path
		FROM chunks WHERE corpus_id IN (` + placeholders(len(corpusIDs)) + `)
		ORDER BY corpus_id, path`
	rows, err := s.db.QueryContext(ctx, query, int64Args(corpusIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query paths: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var corpusID int64
		var path string
		if err := rows.Scan(&corpusID, &path); err != nil {
			return nil, fmt.Errorf("failed to scan path: %w", err)
		}
		result[corpusID] = append(result[corpusID], path)
	}
	return result, rows.Err()
}

// CountChunks returns the number of chunks owned by a corpus.
func (s *Store) CountChunks(ctx context.Context, corpusID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chunks WHERE corpus_id = ?`, corpusID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

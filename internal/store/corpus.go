package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	ncerrors "github.com/notecove/notecove/internal/errors"
)

// CreateCorpus registers a new corpus. Names are unique and immutable
// after create; a taken name fails with DUPLICATE_NAME.
func (s *Store) CreateCorpus(ctx context.Context, name, rootPath string) (*Corpus, error) {
	if name == "" {
		return nil, ncerrors.Newf(ncerrors.ErrCodeInvalidInput, "corpus name must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM corpora WHERE name = ?`, name).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check corpus name: %w", err)
	}
	if exists > 0 {
		return nil, ncerrors.DuplicateName(name)
	}

	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO corpora (name, root_path, note_count, created_at, updated_at)
		 VALUES (?, ?, 0, ?, ?)`,
		name, rootPath, now.UnixNano(), now.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to create corpus: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus id: %w", err)
	}

	return &Corpus{
		ID:        id,
		Name:      name,
		RootPath:  rootPath,
		NoteCount: 0,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GetCorpus fetches a corpus by id. Unknown ids fail with NOT_FOUND.
func (s *Store) GetCorpus(ctx context.Context, id int64) (*Corpus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getCorpusWhere(ctx, "id = ?", strconv.FormatInt(id, 10), id)
}

// GetCorpusByName fetches a corpus by name. Unknown names fail with
// NOT_FOUND.
func (s *Store) GetCorpusByName(ctx context.Context, name string) (*Corpus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getCorpusWhere(ctx, "name = ?", name, name)
}

// ResolveCorpus looks a corpus up by either of its two accepted keys:
// numeric id or name. Call sites that still speak of "projects" go
// through this; a project name is just a corpus name.
func (s *Store) ResolveCorpus(ctx context.Context, key string) (*Corpus, error) {
	if id, err := strconv.ParseInt(key, 10, 64); err == nil {
		c, err := s.GetCorpus(ctx, id)
		if err == nil {
			return c, nil
		}
		if !ncerrors.IsNotFound(err) {
			return nil, err
		}
		// Fall through: a corpus may be named "42".
	}
	return s.GetCorpusByName(ctx, key)
}

func (s *Store) getCorpusWhere(ctx context.Context, where, key string, arg any) (*Corpus, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, root_path, note_count, created_at, updated_at
		 FROM corpora WHERE `+where, arg)

	c, err := scanCorpus(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ncerrors.NotFound("corpus", key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}
	return c, nil
}

// ListCorpora returns all corpora ordered by id.
func (s *Store) ListCorpora(ctx context.Context) ([]*Corpus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, root_path, note_count, created_at, updated_at
		 FROM corpora ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list corpora: %w", err)
	}
	defer rows.Close()

	var corpora []*Corpus
	for rows.Next() {
		c, err := scanCorpus(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan corpus: %w", err)
		}
		corpora = append(corpora, c)
	}
	return corpora, rows.Err()
}

// DeleteCorpus removes a corpus and, via the schema cascade, every
// chunk it owns. Deleting an unknown or already-deleted id reports
// NOT_FOUND, never success.
func (s *Store) DeleteCorpus(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM corpora WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete corpus: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ncerrors.NotFound("corpus", strconv.FormatInt(id, 10))
	}
	return nil
}

// LiveCorpusIDs filters ids down to those referencing live corpora,
// preserving input order. Used by session resolution to silently drop
// deleted corpora from a scope.
func (s *Store) LiveCorpusIDs(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id FROM corpora WHERE id IN (` + placeholders(len(ids)) + `)`
	rows, err := s.db.QueryContext(ctx, query, int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query live corpora: %w", err)
	}
	defer rows.Close()

	live := make(map[int64]bool, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan corpus id: %w", err)
		}
		live[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []int64
	for _, id := range ids {
		if live[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

// SetCorpusNoteCount records the derived note count and bumps
// updated_at. Called by the indexer at the end of a pass.
func (s *Store) SetCorpusNoteCount(ctx context.Context, id int64, noteCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE corpora SET note_count = ?, updated_at = ? WHERE id = ?`,
		noteCount, time.Now().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("failed to update corpus stats: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ncerrors.NotFound("corpus", strconv.FormatInt(id, 10))
	}
	return nil
}

// scanner is the shared subset of sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCorpus(row scanner) (*Corpus, error) {
	var c Corpus
	var createdAt, updatedAt int64
	if err := row.Scan(&c.ID, &c.Name, &c.RootPath, &c.NoteCount, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	c.CreatedAt = time.Unix(0, createdAt)
	c.UpdatedAt = time.Unix(0, updatedAt)
	return &c, nil
}

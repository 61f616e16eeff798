package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	ncerrors "github.com/notecove/notecove/internal/errors"
)

// SaveSession persists a tracked session and its scope.
func (s *Store) SaveSession(ctx context.Context, id string, scope []int64, createdAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (id, created_at) VALUES (?, ?)`,
		id, createdAt.UnixNano()); err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	for _, corpusID := range scope {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO session_corpora (session_id, corpus_id) VALUES (?, ?)`,
			id, corpusID); err != nil {
			return fmt.Errorf("failed to insert session scope: %w", err)
		}
	}

	return tx.Commit()
}

// LoadSession returns the stored scope and creation time for a tracked
// session. Unknown ids fail with NOT_FOUND; the returned scope is the
// scope as created, including ids of corpora deleted since.
func (s *Store) LoadSession(ctx context.Context, id string) ([]int64, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at FROM sessions WHERE id = ?`, id).Scan(&createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, ncerrors.NotFound("session", id)
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to load session: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT corpus_id FROM session_corpora WHERE session_id = ? ORDER BY corpus_id`, id)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to load session scope: %w", err)
	}
	defer rows.Close()

	var scope []int64
	for rows.Next() {
		var corpusID int64
		if err := rows.Scan(&corpusID); err != nil {
			return nil, time.Time{}, fmt.Errorf("failed to scan session scope: %w", err)
		}
		scope = append(scope, corpusID)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, err
	}

	return scope, time.Unix(0, createdAt), nil
}

// DeleteSession discards a tracked session. Unknown ids fail with
// NOT_FOUND.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ncerrors.NotFound("session", id)
	}
	return nil
}

// ListSessions returns the ids of all tracked sessions, oldest first.
func (s *Store) ListSessions(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM sessions ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

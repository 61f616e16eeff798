package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	ncerrors "github.com/notecove/notecove/internal/errors"
)

// GetState returns the value for a state key, or ("", false) when the
// key has never been set.
func (s *Store) GetState(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read state %q: %w", key, err)
	}
	return value, true, nil
}

// SetState writes a state key, replacing any previous value.
func (s *Store) SetState(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO state (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("failed to write state %q: %w", key, err)
	}
	return nil
}

// EnsureDimension records the embedding dimension and model the store
// was built with, or verifies them against the recorded values. A store
// indexed at one dimension cannot be queried or extended at another;
// any drift is fatal.
func (s *Store) EnsureDimension(ctx context.Context, dims int, model string) error {
	stored, ok, err := s.GetState(ctx, StateKeyDimension)
	if err != nil {
		return err
	}
	if !ok {
		if err := s.SetState(ctx, StateKeyDimension, strconv.Itoa(dims)); err != nil {
			return err
		}
		return s.SetState(ctx, StateKeyModel, model)
	}

	recorded, err := strconv.Atoi(stored)
	if err != nil {
		return ncerrors.Newf(ncerrors.ErrCodeCorruptStore,
			"stored embedding dimension %q is not a number", stored)
	}
	if recorded != dims {
		return ncerrors.DimensionMismatch(recorded, dims)
	}

	storedModel, ok, err := s.GetState(ctx, StateKeyModel)
	if err != nil {
		return err
	}
	if ok && storedModel != model {
		return ncerrors.Newf(ncerrors.ErrCodeDimensionMismatch,
			"store was indexed with model %q, not %q", storedModel, model)
	}
	return nil
}

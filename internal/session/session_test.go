package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ncerrors "github.com/notecove/notecove/internal/errors"
	"github.com/notecove/notecove/internal/store"
)

func newManager(t *testing.T) (*Manager, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "notecove.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return NewManager(st, nil), st
}

func TestCreateEphemeralSession(t *testing.T) {
	ctx := context.Background()
	m, st := newManager(t)

	c, err := st.CreateCorpus(ctx, "notes", "/tmp/notes")
	require.NoError(t, err)

	sess, err := m.Create(ctx, []int64{c.ID}, false)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.False(t, sess.Tracked)
	assert.Equal(t, []int64{c.ID}, sess.Scope)

	// Ephemeral sessions are never persisted.
	_, err = m.Get(ctx, sess.ID)
	assert.True(t, ncerrors.IsNotFound(err))
}

func TestCreateTrackedSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	m, st := newManager(t)

	a, err := st.CreateCorpus(ctx, "a", "/tmp/a")
	require.NoError(t, err)
	b, err := st.CreateCorpus(ctx, "b", "/tmp/b")
	require.NoError(t, err)

	sess, err := m.Create(ctx, []int64{b.ID, a.ID, a.ID}, true)
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID, b.ID}, sess.Scope)

	got, err := m.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.Scope, got.Scope)
	assert.True(t, got.Tracked)

	ids, err := m.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{sess.ID}, ids)
}

func TestCreateSessionInvalidScope(t *testing.T) {
	ctx := context.Background()
	m, st := newManager(t)

	_, err := m.Create(ctx, nil, false)
	assert.True(t, ncerrors.IsInvalidScope(err))

	c, err := st.CreateCorpus(ctx, "notes", "/tmp/notes")
	require.NoError(t, err)

	// A scope naming any unknown corpus is rejected outright.
	_, err = m.Create(ctx, []int64{c.ID, 999}, false)
	assert.True(t, ncerrors.IsInvalidScope(err))
}

func TestEffectiveScopeDropsDeadCorpora(t *testing.T) {
	ctx := context.Background()
	m, st := newManager(t)

	a, err := st.CreateCorpus(ctx, "a", "/tmp/a")
	require.NoError(t, err)
	b, err := st.CreateCorpus(ctx, "b", "/tmp/b")
	require.NoError(t, err)

	sess, err := m.Create(ctx, []int64{a.ID, b.ID}, true)
	require.NoError(t, err)

	require.NoError(t, st.DeleteCorpus(ctx, a.ID))

	// The stored scope keeps the dead id; resolution drops it silently.
	got, err := m.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID, b.ID}, got.Scope)

	live, err := m.EffectiveScope(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID}, live)

	// Even a fully dead scope resolves without error.
	require.NoError(t, st.DeleteCorpus(ctx, b.ID))
	live, err = m.EffectiveScope(ctx, got)
	require.NoError(t, err)
	assert.Empty(t, live)
}

func TestDiscardSession(t *testing.T) {
	ctx := context.Background()
	m, st := newManager(t)

	c, err := st.CreateCorpus(ctx, "notes", "/tmp/notes")
	require.NoError(t, err)

	sess, err := m.Create(ctx, []int64{c.ID}, true)
	require.NoError(t, err)

	require.NoError(t, m.Discard(ctx, sess.ID))
	_, err = m.Get(ctx, sess.ID)
	assert.True(t, ncerrors.IsNotFound(err))

	err = m.Discard(ctx, sess.ID)
	assert.True(t, ncerrors.IsNotFound(err))
}

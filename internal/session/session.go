// Package session manages query sessions: named scopes over corpora
// that searches and path listings run against. Sessions come in two
// flavors. An ephemeral session is a plain value held by its creator
// and never stored; a tracked session is persisted and can be resolved
// by id across process restarts.
package session

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	ncerrors "github.com/notecove/notecove/internal/errors"
	"github.com/notecove/notecove/internal/store"
)

// Session is a query scope over one or more corpora. Scope holds the
// corpus ids as supplied at creation; corpora deleted afterwards stay
// in Scope and are dropped only when the scope is resolved for a query.
type Session struct {
	ID        string
	Scope     []int64
	Tracked   bool
	CreatedAt time.Time
}

// Manager creates, resolves, and discards sessions.
type Manager struct {
	store  *store.Store
	logger *slog.Logger
}

// NewManager creates a session manager over the given store.
func NewManager(st *store.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: st, logger: logger}
}

// Create builds a session scoped to the given corpora. Every corpus in
// the scope must exist at creation time; an empty or unknown scope is
// rejected with INVALID_SCOPE. Tracked sessions are persisted; ephemeral
// ones exist only in the returned value.
func (m *Manager) Create(ctx context.Context, scope []int64, tracked bool) (*Session, error) {
	if len(scope) == 0 {
		return nil, ncerrors.InvalidScope("session scope must name at least one corpus")
	}

	deduped := dedupe(scope)
	live, err := m.store.LiveCorpusIDs(ctx, deduped)
	if err != nil {
		return nil, err
	}
	if len(live) != len(deduped) {
		return nil, ncerrors.InvalidScope("session scope names corpora that do not exist").
			WithDetail("requested", strconv.Itoa(len(deduped))).
			WithDetail("found", strconv.Itoa(len(live)))
	}

	sess := &Session{
		ID:        uuid.NewString(),
		Scope:     deduped,
		Tracked:   tracked,
		CreatedAt: time.Now(),
	}

	if tracked {
		if err := m.store.SaveSession(ctx, sess.ID, sess.Scope, sess.CreatedAt); err != nil {
			return nil, err
		}
	}

	m.logger.Debug("session created",
		"session", sess.ID,
		"corpora", len(sess.Scope),
		"tracked", tracked)
	return sess, nil
}

// Get loads a tracked session by id. Ephemeral sessions are never
// stored, so their ids fail with NOT_FOUND like any unknown id.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	scope, createdAt, err := m.store.LoadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Session{ID: id, Scope: scope, Tracked: true, CreatedAt: createdAt}, nil
}

// EffectiveScope resolves a session to the corpora that still exist.
// Corpora deleted since the session was created are dropped without
// error; the result may be empty, in which case queries simply match
// nothing.
func (m *Manager) EffectiveScope(ctx context.Context, sess *Session) ([]int64, error) {
	live, err := m.store.LiveCorpusIDs(ctx, sess.Scope)
	if err != nil {
		return nil, err
	}
	if len(live) < len(sess.Scope) {
		m.logger.Debug("session scope narrowed",
			"session", sess.ID,
			"requested", len(sess.Scope),
			"live", len(live))
	}
	return live, nil
}

// Discard deletes a tracked session. Unknown ids fail with NOT_FOUND.
func (m *Manager) Discard(ctx context.Context, id string) error {
	return m.store.DeleteSession(ctx, id)
}

// List returns the ids of all tracked sessions.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.ListSessions(ctx)
}

// dedupe returns the sorted unique ids of a scope.
func dedupe(ids []int64) []int64 {
	set := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !set[id] {
			set[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

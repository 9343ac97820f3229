package session

import (
	"context"
	"sync"

	"github.com/codevia/codevia/internal/domain/shared"
	"github.com/codevia/codevia/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTRY
// ══════════════════════════════════════════════════════════════════════════════

// Registry keeps at most one open session per user id.
type Registry struct {
	mu       sync.Mutex
	deps     Deps
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry(deps Deps) *Registry {
	return &Registry{
		deps:     deps.withDefaults(),
		sessions: make(map[string]*Session),
	}
}

// Rules returns the rules sessions are opened with.
func (r *Registry) Rules() *Rules {
	return r.deps.Rules
}

// Open returns the user's session, loading the user from the directory when
// none is open. Returns shared.ErrUserNotFound for an unknown id.
func (r *Registry) Open(ctx context.Context, userID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[userID]; ok {
		return s, nil
	}
	if r.deps.Directory == nil {
		return nil, shared.ErrUserNotFound
	}

	u, ok := r.deps.Directory.FindByID(ctx, userID)
	if !ok {
		return nil, shared.ErrUserNotFound
	}

	s := New(r.deps, u)
	r.sessions[userID] = s
	r.deps.Logger.Debug("session opened", logger.UserID(userID))
	return s, nil
}

// Get returns the open session for userID.
func (r *Registry) Get(userID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[userID]
	return s, ok
}

// Close discards the user's session. It reports whether one was open.
func (r *Registry) Close(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[userID]; !ok {
		return false
	}
	delete(r.sessions, userID)
	r.deps.Logger.Debug("session closed", logger.UserID(userID))
	return true
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

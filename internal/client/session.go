package client

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/dukerupert/familypoints/internal/model"
)

// State is the session lifecycle. UNKNOWN lasts while identity is being
// resolved and must be rendered as neither signed in nor signed out.
type State string

const (
	StateUnknown       State = "UNKNOWN"
	StateAnonymous     State = "ANONYMOUS"
	StateAuthenticated State = "AUTHENTICATED"
)

// Session holds the principal and credential of one user of the client.
type Session struct {
	store  TokenStore
	logger *slog.Logger
	gen    Generation

	mu        sync.RWMutex
	state     State
	token     string
	principal *model.User
}

func NewSession(store TokenStore, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{store: store, logger: logger, state: StateUnknown}
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Principal returns the signed-in user, or nil unless AUTHENTICATED.
func (s *Session) Principal() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.principal
}

// Token returns the bearer credential attached to outbound requests.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// begin enters UNKNOWN for a new token and returns the resolve generation.
func (s *Session) begin(token string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.principal = nil
	s.state = StateUnknown
	return s.gen.Next()
}

// finish applies a resolve result unless a newer login or logout happened
// meanwhile. A failed resolve forgets the token.
func (s *Session) finish(gen uint64, u *model.User, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.gen.IsCurrent(gen) {
		return false
	}

	if err != nil {
		s.logger.Debug("identity resolve failed", "error", err)
		s.clearLocked()
		return true
	}
	s.principal = u
	s.state = StateAuthenticated
	return true
}

func (s *Session) anonymous() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen.Next()
	s.clearLocked()
}

func (s *Session) clearLocked() {
	s.token = ""
	s.principal = nil
	s.state = StateAnonymous
	if err := s.store.Delete(); err != nil {
		s.logger.Warn("delete stored token", "error", err)
	}
}

// Logout clears the token and principal. Any resolve still in flight is
// ignored when it returns.
func (s *Session) Logout() {
	s.anonymous()
}

// HandleError downgrades the session when err is an authentication failure
// and reports whether it did.
func (s *Session) HandleError(err error) bool {
	if !errors.Is(err, ErrUnauthorized) {
		return false
	}
	s.anonymous()
	return true
}

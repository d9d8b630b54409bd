package guard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pharmadesk/station/domain"
	"github.com/pharmadesk/station/repository"
)

// NowFunc returns the current time. It can be overridden in tests.
var NowFunc = time.Now

// Config controls the session lifecycle timings.
type Config struct {
	IdleTimeout      time.Duration
	CheckInterval    time.Duration
	RefreshThreshold time.Duration
}

func (c *Config) applyDefaults() {
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 20 * time.Minute
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = time.Minute
	}
	if c.RefreshThreshold <= 0 {
		c.RefreshThreshold = 5 * time.Minute
	}
}

// Guard owns the operator sessions at this gateway. It keeps access tokens
// fresh, enforces the inactivity logout for non-remember-me sessions, and
// fails closed: any refresh failure tears the session down immediately.
//
// The guard is the single writer of session state. Every credential mutation
// bumps the session version; a refresh response whose version no longer
// matches (because a logout or idle expiry won the race) is dropped.
type Guard struct {
	source TokenSource
	store  repository.SessionRepository
	cfg    Config
	logger *zap.Logger

	// OnExpired is invoked after a session is forcibly expired (idle timeout
	// or refresh failure). Optional.
	OnExpired func(session *domain.Session, reason string)

	mu       sync.Mutex
	sessions map[string]*domain.Session

	stopCh chan struct{}
	doneCh chan struct{}
}

// New builds a guard around the token source and session store.
func New(source TokenSource, store repository.SessionRepository, cfg Config, logger *zap.Logger) *Guard {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{
		source:   source,
		store:    store,
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*domain.Session),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Login authenticates against the pharmacy API and registers a new session.
func (g *Guard) Login(ctx context.Context, email, password string, rememberMe bool) (*domain.Session, error) {
	creds, err := g.source.Login(ctx, email, password, rememberMe)
	if err != nil {
		return nil, err
	}

	now := NowFunc()
	session := &domain.Session{
		ID:           uuid.NewString(),
		Operator:     creds.Operator,
		AccessToken:  creds.Access,
		RefreshToken: creds.Refresh,
		RememberMe:   rememberMe,
		Version:      1,
		LastActivity: now,
		CreatedAt:    now,
	}
	session.State = session.ActiveState()

	g.mu.Lock()
	g.sessions[session.ID] = session
	g.mu.Unlock()

	if err := g.store.Save(ctx, session); err != nil {
		g.logger.Warn("failed to persist session", zap.String("session_id", session.ID), zap.Error(err))
	}

	g.logger.Info("session opened",
		zap.String("session_id", session.ID),
		zap.String("operator", creds.Operator.Email),
		zap.Bool("remember_me", rememberMe))
	return snapshot(session), nil
}

// Logout tears the session down. Safe to call for unknown or already
// expired sessions.
func (g *Guard) Logout(ctx context.Context, sessionID string) error {
	g.mu.Lock()
	session, ok := g.sessions[sessionID]
	if ok {
		delete(g.sessions, sessionID)
		session.State = domain.StateExpired
		session.Version++
	}
	g.mu.Unlock()

	if err := g.store.Delete(ctx, sessionID); err != nil {
		g.logger.Warn("failed to delete persisted session", zap.String("session_id", sessionID), zap.Error(err))
	}
	if ok {
		g.logger.Info("session closed", zap.String("session_id", sessionID))
	}
	return nil
}

// Touch records qualifying operator activity, pushing the idle deadline
// forward. Activity is not a credential mutation and does not bump the
// session version.
func (g *Guard) Touch(sessionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if session, ok := g.sessions[sessionID]; ok && session.State != domain.StateExpired {
		session.LastActivity = NowFunc()
	}
}

// Get returns the current session if it is still active. Sessions persisted
// by a previous gateway process are recovered from the store on first sight.
func (g *Guard) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	if sessionID == "" {
		return nil, domain.ErrSessionNotFound
	}

	g.mu.Lock()
	if session, ok := g.sessions[sessionID]; ok {
		defer g.mu.Unlock()
		// A session mid-refresh still serves requests on its old token.
		if session.State == domain.StateExpired {
			return nil, domain.ErrSessionExpired
		}
		return snapshot(session), nil
	}
	g.mu.Unlock()

	stored, err := g.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !stored.IsActive() {
		return nil, domain.ErrSessionExpired
	}

	stored.LastActivity = NowFunc()

	g.mu.Lock()
	// Another request may have recovered it already; keep the first copy.
	if existing, ok := g.sessions[sessionID]; ok {
		g.mu.Unlock()
		return snapshot(existing), nil
	}
	g.sessions[sessionID] = stored
	g.mu.Unlock()

	g.logger.Info("session recovered from store", zap.String("session_id", sessionID))
	return snapshot(stored), nil
}

// AccessToken returns the current access token value for an active session.
// Used by the effects processor when dispatching queued notifications.
func (g *Guard) AccessToken(sessionID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	session, ok := g.sessions[sessionID]
	if !ok || session.State == domain.StateExpired {
		return "", domain.ErrSessionNotFound
	}
	return session.AccessToken.Value, nil
}

// snapshot copies a session so callers never share the guard's mutable state.
func snapshot(s *domain.Session) *domain.Session {
	copied := *s
	if s.RefreshToken != nil {
		token := *s.RefreshToken
		copied.RefreshToken = &token
	}
	return &copied
}

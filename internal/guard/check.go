package guard

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pharmadesk/station/domain"
)

// Expiry reasons passed to the OnExpired hook.
const (
	ReasonIdle           = "idle_timeout"
	ReasonRefreshFailed  = "refresh_failed"
	ReasonNoRefreshToken = "no_refresh_token"
)

// Start launches the periodic session check loop.
func (g *Guard) Start() {
	go g.loop()
}

// Stop terminates the check loop and waits for it to finish.
func (g *Guard) Stop() {
	close(g.stopCh)
	<-g.doneCh
}

func (g *Guard) loop() {
	defer close(g.doneCh)
	ticker := time.NewTicker(g.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), g.cfg.CheckInterval)
			g.CheckOnce(ctx)
			cancel()
		case <-g.stopCh:
			return
		}
	}
}

// CheckOnce runs a single sweep over all registered sessions: idle timeout
// first, then expired-token recovery, then proactive refresh for tokens
// inside the refresh threshold. One refresh attempt per session per sweep;
// a failed refresh expires the session rather than degrading silently.
func (g *Guard) CheckOnce(ctx context.Context) {
	now := NowFunc()

	type decision struct {
		session *domain.Session
		expire  string
		refresh bool
	}

	g.mu.Lock()
	decisions := make([]decision, 0, len(g.sessions))
	for _, session := range g.sessions {
		if !session.IsActive() {
			continue
		}

		if session.IsIdle(g.cfg.IdleTimeout, now) {
			decisions = append(decisions, decision{session: session, expire: ReasonIdle})
			continue
		}

		hasRefresh := session.RefreshToken != nil && session.RefreshToken.Value != ""
		accessExpired := session.AccessToken.IsExpired(now)
		expiringSoon := !accessExpired && session.AccessToken.TTL(now) <= g.cfg.RefreshThreshold

		switch {
		case accessExpired && !hasRefresh:
			decisions = append(decisions, decision{session: session, expire: ReasonNoRefreshToken})
		case accessExpired, expiringSoon && hasRefresh:
			decisions = append(decisions, decision{session: session, refresh: true})
		}
	}
	g.mu.Unlock()

	for _, d := range decisions {
		if d.expire != "" {
			g.expire(ctx, d.session, d.expire)
			continue
		}
		if d.refresh {
			g.refresh(ctx, d.session)
		}
	}
}

// refresh performs one refresh attempt for the session. The network call
// runs outside the lock; the result is installed only if the session version
// is unchanged, so a concurrent logout or idle expiry wins the race.
func (g *Guard) refresh(ctx context.Context, session *domain.Session) {
	g.mu.Lock()
	if !session.IsActive() {
		g.mu.Unlock()
		return
	}
	sessionID := session.ID
	version := session.Version
	refreshToken := session.RefreshToken.Value
	session.State = domain.StateRefreshing
	g.mu.Unlock()

	creds, err := g.source.Refresh(ctx, refreshToken)

	g.mu.Lock()
	current, ok := g.sessions[sessionID]
	if !ok || current.Version != version {
		g.mu.Unlock()
		g.logger.Warn("dropping stale refresh result", zap.String("session_id", sessionID))
		return
	}

	if err != nil {
		g.mu.Unlock()
		g.logger.Warn("token refresh failed", zap.String("session_id", sessionID), zap.Error(err))
		g.expire(ctx, current, ReasonRefreshFailed)
		return
	}

	current.AccessToken = creds.Access
	if creds.Refresh != nil {
		current.RefreshToken = creds.Refresh
	}
	current.Version++
	current.State = current.ActiveState()
	if !current.RememberMe {
		current.LastActivity = NowFunc()
	}
	persisted := snapshot(current)
	g.mu.Unlock()

	if err := g.store.Save(ctx, persisted); err != nil {
		g.logger.Warn("failed to persist refreshed session", zap.String("session_id", sessionID), zap.Error(err))
	}
	g.logger.Info("access token refreshed",
		zap.String("session_id", sessionID),
		zap.Time("expires_at", creds.Access.ExpiresAt))
}

// expire tears the session down and wipes the persisted copy. Terminal.
func (g *Guard) expire(ctx context.Context, session *domain.Session, reason string) {
	g.mu.Lock()
	current, ok := g.sessions[session.ID]
	if !ok || current.State == domain.StateExpired {
		g.mu.Unlock()
		return
	}
	delete(g.sessions, current.ID)
	current.State = domain.StateExpired
	current.Version++
	expired := snapshot(current)
	g.mu.Unlock()

	if err := g.store.Delete(ctx, expired.ID); err != nil {
		g.logger.Warn("failed to delete expired session", zap.String("session_id", expired.ID), zap.Error(err))
	}

	g.logger.Warn("session expired",
		zap.String("session_id", expired.ID),
		zap.String("reason", reason))

	if g.OnExpired != nil {
		g.OnExpired(expired, reason)
	}
}

package domain

import "time"

// SessionState tracks where a session sits in its lifecycle.
type SessionState string

const (
	StateActiveRemember SessionState = "active_remember"
	StateActiveTimed    SessionState = "active_timed"
	StateRefreshing     SessionState = "refreshing"
	StateExpired        SessionState = "expired"
)

// Token is a bearer credential issued by the pharmacy API.
type Token struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TTL returns the remaining lifetime of the token relative to reference.
func (t Token) TTL(reference time.Time) time.Duration {
	return t.ExpiresAt.Sub(reference)
}

// IsExpired reports whether the token is past its expiry.
func (t Token) IsExpired(reference time.Time) bool {
	if reference.IsZero() {
		reference = time.Now()
	}
	return !t.ExpiresAt.After(reference)
}

// Operator is the pharmacy staff identity returned by the login endpoint.
type Operator struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	FCMToken string `json:"fcm_token,omitempty"`
}

// Session holds the authenticated credentials for one operator.
//
// The guard is the single writer. Version increases on every mutation so a
// refresh response that raced a logout or idle expiry can be detected and
// dropped instead of resurrecting cleared credentials.
type Session struct {
	ID           string       `json:"id"`
	Operator     Operator     `json:"operator"`
	AccessToken  Token        `json:"access_token"`
	RefreshToken *Token       `json:"refresh_token,omitempty"`
	RememberMe   bool         `json:"remember_me"`
	State        SessionState `json:"state"`
	Version      uint64       `json:"version"`
	LastActivity time.Time    `json:"last_activity"`
	CreatedAt    time.Time    `json:"created_at"`
}

// IsActive reports whether the session is in either active state.
func (s *Session) IsActive() bool {
	if s == nil {
		return false
	}
	return s.State == StateActiveRemember || s.State == StateActiveTimed
}

// IsIdle reports whether the session has seen no activity for the given window.
// RememberMe sessions never go idle.
func (s *Session) IsIdle(window time.Duration, reference time.Time) bool {
	if s == nil || s.RememberMe {
		return false
	}
	if reference.IsZero() {
		reference = time.Now()
	}
	return reference.Sub(s.LastActivity) >= window
}

// ActiveState returns the state the session should occupy while healthy.
func (s *Session) ActiveState() SessionState {
	if s != nil && s.RememberMe {
		return StateActiveRemember
	}
	return StateActiveTimed
}

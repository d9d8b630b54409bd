package domain

import "time"

// Audit actions recorded by the gateway.
const (
	AuditLogin    = "login"
	AuditLogout   = "logout"
	AuditExpired  = "session_expired"
	AuditCheckout = "checkout"
)

// AuditEvent is a locally persisted trace of an operator action at the
// station. The upstream API keeps its own audit trail; this one covers what
// happened at this gateway.
type AuditEvent struct {
	ID        string            `json:"id"`
	SessionID string            `json:"session_id"`
	UserID    string            `json:"user_id"`
	Action    string            `json:"action"`
	Detail    map[string]string `json:"detail,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

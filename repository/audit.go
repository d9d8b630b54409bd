package repository

import (
	"context"

	"github.com/pharmadesk/station/domain"
)

// AuditFilter narrows an audit trail listing.
type AuditFilter struct {
	UserID string
	Action string
	Limit  int
	Offset int
}

// AuditRepository stores the gateway's local trace of operator actions.
type AuditRepository interface {
	Record(ctx context.Context, event *domain.AuditEvent) error
	List(ctx context.Context, filter AuditFilter) ([]domain.AuditEvent, error)
}

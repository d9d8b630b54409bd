package repository

import (
	"context"

	"github.com/pharmadesk/station/domain"
)

// SessionRepository persists operator sessions across gateway restarts.
// The guard is the single writer; writes are last-write-wins.
type SessionRepository interface {
	Get(ctx context.Context, id string) (*domain.Session, error)
	Save(ctx context.Context, session *domain.Session) error
	Delete(ctx context.Context, id string) error
}

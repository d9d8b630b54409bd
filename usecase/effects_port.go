package usecase

import (
	"context"

	"github.com/pharmadesk/station/domain"
)

// EffectQueue abstracts the post-commit effects processor so use cases stay
// storage-agnostic. Enqueued alerts are dispatched (and retried) outside the
// sale that produced them.
type EffectQueue interface {
	EnqueueAlert(ctx context.Context, sessionID string, alert domain.StockAlert) error
}

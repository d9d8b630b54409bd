package services

import (
	"context"
	"encoding/json"

	"github.com/pharmadesk/station/domain"
	"github.com/pharmadesk/station/internal/infrastructure/outbox"
	"github.com/pharmadesk/station/usecase"
)

// EffectsBridge turns one stock alert into the pair of effects the dashboard
// behaviour requires: a persisted notification record and, when the operator
// has a registered device, a push dispatch.
type EffectsBridge struct {
	processor *EffectsProcessor
}

func NewEffectsBridge(processor *EffectsProcessor) *EffectsBridge {
	return &EffectsBridge{processor: processor}
}

func (b *EffectsBridge) EnqueueAlert(ctx context.Context, sessionID string, alert domain.StockAlert) error {
	if b.processor == nil {
		return domain.ErrInvalidPayload
	}
	payload, err := json.Marshal(alert)
	if err != nil {
		return err
	}

	record := outbox.Effect{
		SessionID: sessionID,
		Kind:      outbox.KindRecord,
		Data:      payload,
		Priority:  3,
	}
	if err := b.processor.BufferEffect(ctx, record); err != nil {
		return err
	}

	if alert.FCMToken == "" {
		return nil
	}
	push := outbox.Effect{
		SessionID: sessionID,
		Kind:      outbox.KindPush,
		Data:      payload,
		Priority:  2,
	}
	return b.processor.BufferEffect(ctx, push)
}

var _ usecase.EffectQueue = (*EffectsBridge)(nil)

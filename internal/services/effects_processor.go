package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/pharmadesk/station/domain"
	"github.com/pharmadesk/station/internal/infrastructure/outbox"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// TokenProvider resolves the current access token for a session, so queued
// effects always dispatch with fresh credentials.
type TokenProvider interface {
	AccessToken(sessionID string) (string, error)
}

// AlertDispatcher is the slice of the pharmacy client the processor needs.
type AlertDispatcher interface {
	CreateNotification(ctx context.Context, accessToken string, alert domain.StockAlert) error
	DispatchPush(ctx context.Context, accessToken string, alert domain.StockAlert) error
}

// ProcessorConfig controls how frequently the outbox is drained.
type ProcessorConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
}

// EffectsProcessor delivers queued post-commit effects to the pharmacy API.
type EffectsProcessor struct {
	store   *outbox.Store
	monitor ConnectionHealth
	tokens  TokenProvider
	api     AlertDispatcher
	logger  *zap.Logger
	cron    *cron.Cron
	cfg     ProcessorConfig
}

func NewEffectsProcessor(
	store *outbox.Store,
	monitor ConnectionHealth,
	tokens TokenProvider,
	api AlertDispatcher,
	logger *zap.Logger,
	cfg ProcessorConfig,
) *EffectsProcessor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ep := &EffectsProcessor{
		store:   store,
		monitor: monitor,
		tokens:  tokens,
		api:     api,
		logger:  logger,
		cfg:     cfg,
		cron:    cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = ep.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := ep.Drain(ctx); err != nil {
			ep.logger.Error("effects drain failed", zap.Error(err))
		}
	})

	return ep
}

// Start launches the cron scheduler.
func (ep *EffectsProcessor) Start() {
	if ep == nil || ep.cron == nil {
		return
	}
	ep.cron.Start()
	ep.logger.Info("effects processor started")
}

// Stop gracefully stops the scheduler.
func (ep *EffectsProcessor) Stop(ctx context.Context) {
	if ep == nil || ep.cron == nil {
		return
	}
	stopCtx := ep.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	ep.logger.Info("effects processor stopped")
}

// Drain processes queued effects synchronously.
func (ep *EffectsProcessor) Drain(ctx context.Context) error {
	if ep == nil || ep.store == nil {
		return nil
	}
	if ep.monitor != nil && !ep.monitor.IsOnline() {
		ep.logger.Debug("skipping effects drain (offline)")
		return nil
	}

	effects, err := ep.store.GetBatch(ep.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, effect := range effects {
		if err := ep.processEffect(ctx, effect); err != nil {
			ep.logger.Error("failed to process effect",
				zap.String("effect_id", effect.ID),
				zap.String("kind", effect.Kind),
				zap.Error(err))

			effect.Retries++
			if effect.Retries >= ep.cfg.MaxRetries {
				ep.logger.Warn("dropping effect (max retries reached)", zap.String("effect_id", effect.ID))
				_ = ep.store.Remove(effect)
				continue
			}

			if err := ep.store.Remove(effect); err != nil {
				ep.logger.Warn("failed to remove effect", zap.Error(err))
			}
			if err := ep.store.Requeue(effect); err != nil {
				ep.logger.Error("failed to requeue effect", zap.Error(err))
			}
			continue
		}

		if err := ep.store.Remove(effect); err != nil {
			ep.logger.Warn("failed to purge processed effect", zap.Error(err))
		}
	}
	return nil
}

// BufferEffect attempts to dispatch the effect immediately and falls back to
// persisting it for the drain loop.
func (ep *EffectsProcessor) BufferEffect(ctx context.Context, effect outbox.Effect) error {
	if ep == nil || ep.store == nil {
		return fmt.Errorf("effects processor not configured")
	}

	if ep.monitor == nil || ep.monitor.IsOnline() {
		if err := ep.processEffect(ctx, effect); err == nil {
			return nil
		} else {
			ep.logger.Warn("immediate dispatch failed, queueing effect", zap.Error(err))
		}
	}
	return ep.store.Enqueue(effect)
}

// Size returns the number of queued effects.
func (ep *EffectsProcessor) Size() int {
	if ep == nil || ep.store == nil {
		return 0
	}
	size, err := ep.store.Size()
	if err != nil {
		return 0
	}
	return size
}

func (ep *EffectsProcessor) processEffect(ctx context.Context, effect outbox.Effect) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var alert domain.StockAlert
	if err := json.Unmarshal(effect.Data, &alert); err != nil {
		return err
	}

	token, err := ep.tokens.AccessToken(effect.SessionID)
	if err != nil {
		return fmt.Errorf("no active session for effect: %w", err)
	}

	switch effect.Kind {
	case outbox.KindRecord:
		return ep.api.CreateNotification(ctx, token, alert)
	case outbox.KindPush:
		return ep.api.DispatchPush(ctx, token, alert)
	default:
		return fmt.Errorf("unsupported effect kind %s", effect.Kind)
	}
}

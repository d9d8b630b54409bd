package services_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pharmadesk/station/domain"
	"github.com/pharmadesk/station/internal/infrastructure/outbox"
	"github.com/pharmadesk/station/internal/services"
)

type fakeHealth struct{ online bool }

func (f *fakeHealth) IsOnline() bool { return f.online }

type fakeTokens struct {
	token string
	err   error
}

func (f *fakeTokens) AccessToken(sessionID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.token, nil
}

type fakeDispatcher struct {
	mu      sync.Mutex
	records []domain.StockAlert
	pushes  []domain.StockAlert
	err     error
}

func (f *fakeDispatcher) CreateNotification(ctx context.Context, accessToken string, alert domain.StockAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, alert)
	return nil
}

func (f *fakeDispatcher) DispatchPush(ctx context.Context, accessToken string, alert domain.StockAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.pushes = append(f.pushes, alert)
	return nil
}

type processorFixture struct {
	store      *outbox.Store
	health     *fakeHealth
	dispatcher *fakeDispatcher
	processor  *services.EffectsProcessor
}

func setupProcessor(t *testing.T, maxRetries int) *processorFixture {
	t.Helper()

	store, err := outbox.Open(filepath.Join(t.TempDir(), "outbox.db"), "effects")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	health := &fakeHealth{online: true}
	dispatcher := &fakeDispatcher{}
	processor := services.NewEffectsProcessor(
		store,
		health,
		&fakeTokens{token: "access-1"},
		dispatcher,
		nil,
		services.ProcessorConfig{
			Interval:   time.Hour, // drains are driven manually in tests
			BatchSize:  10,
			MaxRetries: maxRetries,
		},
	)
	return &processorFixture{store: store, health: health, dispatcher: dispatcher, processor: processor}
}

func alertEffect(kind string) outbox.Effect {
	return outbox.Effect{
		SessionID: "s1",
		Kind:      kind,
		Data:      []byte(`{"medicine_id":"m1","brand_name":"Brand-m1","status":"low-stock","new_stock":2}`),
		Priority:  3,
	}
}

func TestBufferEffectDispatchesImmediatelyWhenOnline(t *testing.T) {
	f := setupProcessor(t, 3)

	require.NoError(t, f.processor.BufferEffect(context.Background(), alertEffect(outbox.KindRecord)))

	require.Len(t, f.dispatcher.records, 1)
	require.Equal(t, "m1", f.dispatcher.records[0].MedicineID)
	require.Equal(t, 0, f.processor.Size(), "dispatched effects are not queued")
}

func TestBufferEffectQueuesWhenOffline(t *testing.T) {
	f := setupProcessor(t, 3)
	f.health.online = false

	require.NoError(t, f.processor.BufferEffect(context.Background(), alertEffect(outbox.KindPush)))

	require.Empty(t, f.dispatcher.pushes)
	require.Equal(t, 1, f.processor.Size())
}

func TestBufferEffectQueuesOnDispatchFailure(t *testing.T) {
	f := setupProcessor(t, 3)
	f.dispatcher.err = errors.New("upstream 503")

	require.NoError(t, f.processor.BufferEffect(context.Background(), alertEffect(outbox.KindRecord)))
	require.Equal(t, 1, f.processor.Size())
}

func TestDrainDeliversQueuedEffects(t *testing.T) {
	f := setupProcessor(t, 3)
	f.health.online = false
	require.NoError(t, f.processor.BufferEffect(context.Background(), alertEffect(outbox.KindRecord)))
	require.NoError(t, f.processor.BufferEffect(context.Background(), alertEffect(outbox.KindPush)))

	f.health.online = true
	require.NoError(t, f.processor.Drain(context.Background()))

	require.Len(t, f.dispatcher.records, 1)
	require.Len(t, f.dispatcher.pushes, 1)
	require.Equal(t, 0, f.processor.Size())
}

func TestDrainSkipsWhenOffline(t *testing.T) {
	f := setupProcessor(t, 3)
	f.health.online = false
	require.NoError(t, f.processor.BufferEffect(context.Background(), alertEffect(outbox.KindRecord)))

	require.NoError(t, f.processor.Drain(context.Background()))
	require.Equal(t, 1, f.processor.Size())
	require.Empty(t, f.dispatcher.records)
}

func TestDrainDropsEffectAfterMaxRetries(t *testing.T) {
	f := setupProcessor(t, 2)
	f.health.online = false
	require.NoError(t, f.processor.BufferEffect(context.Background(), alertEffect(outbox.KindRecord)))

	f.health.online = true
	f.dispatcher.err = errors.New("persistent failure")

	require.NoError(t, f.processor.Drain(context.Background()))
	require.Equal(t, 1, f.processor.Size(), "first failure requeues")

	require.NoError(t, f.processor.Drain(context.Background()))
	require.Equal(t, 0, f.processor.Size(), "second failure hits the retry cap and drops")
}

func TestEffectsBridgeFansOut(t *testing.T) {
	f := setupProcessor(t, 3)
	bridge := services.NewEffectsBridge(f.processor)

	withDevice := domain.StockAlert{
		MedicineID: "m1",
		BrandName:  "Brand-m1",
		Status:     domain.StatusLowStock,
		NewStock:   2,
		FCMToken:   "fcm-1",
	}
	require.NoError(t, bridge.EnqueueAlert(context.Background(), "s1", withDevice))
	require.Len(t, f.dispatcher.records, 1)
	require.Len(t, f.dispatcher.pushes, 1)

	withoutDevice := withDevice
	withoutDevice.FCMToken = ""
	require.NoError(t, bridge.EnqueueAlert(context.Background(), "s1", withoutDevice))
	require.Len(t, f.dispatcher.records, 2)
	require.Len(t, f.dispatcher.pushes, 1, "no push without a registered device")
}

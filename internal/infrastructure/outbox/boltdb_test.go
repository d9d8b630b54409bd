package outbox_test

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pharmadesk/station/internal/infrastructure/outbox"
)

func openStore(t *testing.T) *outbox.Store {
	t.Helper()
	store, err := outbox.Open(filepath.Join(t.TempDir(), "outbox.db"), "effects")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func effect(sessionID, kind string, priority int, at time.Time) outbox.Effect {
	return outbox.Effect{
		SessionID: sessionID,
		Kind:      kind,
		Data:      json.RawMessage(`{"medicineId":"m1"}`),
		Priority:  priority,
		Timestamp: at,
	}
}

func TestEnqueueAndSize(t *testing.T) {
	store := openStore(t)

	size, err := store.Size()
	require.NoError(t, err)
	require.Equal(t, 0, size)

	require.NoError(t, store.Enqueue(effect("s1", outbox.KindRecord, 3, time.Now())))
	require.NoError(t, store.Enqueue(effect("s1", outbox.KindPush, 2, time.Now())))

	size, err = store.Size()
	require.NoError(t, err)
	require.Equal(t, 2, size)
}

func TestGetBatchOrdersByPriorityThenTime(t *testing.T) {
	store := openStore(t)
	base := time.Now()

	require.NoError(t, store.Enqueue(effect("s1", outbox.KindRecord, 3, base)))
	require.NoError(t, store.Enqueue(effect("s1", outbox.KindPush, 2, base.Add(time.Second))))
	require.NoError(t, store.Enqueue(effect("s2", outbox.KindPush, 2, base)))

	batch, err := store.GetBatch(10)
	require.NoError(t, err)
	require.Len(t, batch, 3)

	// Lower priority value drains first; within a priority, oldest first.
	require.Equal(t, outbox.KindPush, batch[0].Kind)
	require.Equal(t, "s2", batch[0].SessionID)
	require.Equal(t, "s1", batch[1].SessionID)
	require.Equal(t, outbox.KindRecord, batch[2].Kind)
}

func TestGetBatchRespectsLimit(t *testing.T) {
	store := openStore(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Enqueue(effect("s1", outbox.KindRecord, 3, time.Now().Add(time.Duration(i)*time.Millisecond))))
	}

	batch, err := store.GetBatch(2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
}

func TestRemoveDeletesEffect(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.Enqueue(effect("s1", outbox.KindRecord, 3, time.Now())))

	batch, err := store.GetBatch(1)
	require.NoError(t, err)
	require.Len(t, batch, 1)

	require.NoError(t, store.Remove(batch[0]))

	size, err := store.Size()
	require.NoError(t, err)
	require.Equal(t, 0, size)
}

func TestRequeuePreservesRetryCount(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.Enqueue(effect("s1", outbox.KindRecord, 3, time.Now())))

	batch, err := store.GetBatch(1)
	require.NoError(t, err)

	failed := batch[0]
	failed.Retries = 2
	require.NoError(t, store.Remove(failed))
	require.NoError(t, store.Requeue(failed))

	batch, err = store.GetBatch(1)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	require.Equal(t, 2, batch[0].Retries)
	require.Equal(t, failed.ID, batch[0].ID)
}

func TestSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outbox.db")

	store, err := outbox.Open(path, "effects")
	require.NoError(t, err)
	require.NoError(t, store.Enqueue(effect("s1", outbox.KindPush, 2, time.Now())))
	require.NoError(t, store.Close())

	reopened, err := outbox.Open(path, "effects")
	require.NoError(t, err)
	defer reopened.Close()

	size, err := reopened.Size()
	require.NoError(t, err)
	require.Equal(t, 1, size)
}

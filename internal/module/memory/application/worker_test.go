package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// recordingIndexer はDispatcherから受けた操作を記録するIndexer
type recordingIndexer struct {
	mu      sync.Mutex
	synced  []uuid.UUID
	removed []uuid.UUID
	syncErr error
	panicOn *uuid.UUID
	block   chan struct{}
}

func (i *recordingIndexer) SyncDiary(_ context.Context, diaryID uuid.UUID) error {
	if i.block != nil {
		<-i.block
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.panicOn != nil && *i.panicOn == diaryID {
		panic("boom")
	}
	i.synced = append(i.synced, diaryID)
	return i.syncErr
}

func (i *recordingIndexer) RemoveDiary(_ context.Context, diaryID uuid.UUID) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.removed = append(i.removed, diaryID)
	return nil
}

func (i *recordingIndexer) syncedIDs() []uuid.UUID {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]uuid.UUID(nil), i.synced...)
}

func (i *recordingIndexer) removedIDs() []uuid.UUID {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]uuid.UUID(nil), i.removed...)
}

func TestDispatcher_ProcessesJobs(t *testing.T) {
	indexer := &recordingIndexer{}
	d := NewDispatcher(indexer, 2, 16)

	syncID := uuid.New()
	removeID := uuid.New()

	d.EnqueueSync(syncID)
	d.EnqueueDelete(removeID)
	d.Close()

	assert.Equal(t, []uuid.UUID{syncID}, indexer.syncedIDs())
	assert.Equal(t, []uuid.UUID{removeID}, indexer.removedIDs())
}

func TestDispatcher_FailureDoesNotStopWorkers(t *testing.T) {
	indexer := &recordingIndexer{syncErr: errors.New("embedding api down")}
	d := NewDispatcher(indexer, 1, 16)

	first := uuid.New()
	second := uuid.New()

	d.EnqueueSync(first)
	d.EnqueueSync(second)
	d.Close()

	// 1件目の失敗後も2件目は処理される
	assert.Equal(t, []uuid.UUID{first, second}, indexer.syncedIDs())
}

func TestDispatcher_PanicRecovered(t *testing.T) {
	panicID := uuid.New()
	indexer := &recordingIndexer{panicOn: &panicID}
	d := NewDispatcher(indexer, 1, 16)

	okID := uuid.New()

	d.EnqueueSync(panicID)
	d.EnqueueSync(okID)
	d.Close()

	assert.Equal(t, []uuid.UUID{okID}, indexer.syncedIDs())
}

func TestDispatcher_FullQueueDropsJob(t *testing.T) {
	block := make(chan struct{})
	indexer := &recordingIndexer{block: block}
	d := NewDispatcher(indexer, 1, 1)

	inFlight := uuid.New()
	queued := uuid.New()
	dropped := uuid.New()

	// 1件目はワーカーが取り込んでブロック、2件目でキューが埋まる
	d.EnqueueSync(inFlight)
	waitForQueueDrain(t, d, 0)
	d.EnqueueSync(queued)
	d.EnqueueSync(dropped) // キュー満杯なので破棄される

	close(block)
	d.Close()

	synced := indexer.syncedIDs()
	assert.Len(t, synced, 2)
	assert.NotContains(t, synced, dropped)
}

func TestDispatcher_CloseIsIdempotent(t *testing.T) {
	d := NewDispatcher(&recordingIndexer{}, 1, 4)
	d.Close()
	assert.NotPanics(t, func() { d.Close() })
}

// waitForQueueDrain はワーカーがジョブを取り込んでキューが空くのを待つ
func waitForQueueDrain(t *testing.T, d *Dispatcher, want int) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		if len(d.jobs) == want {
			return
		}
		select {
		case <-deadline:
			t.Fatal("queue did not drain in time")
		case <-time.After(time.Millisecond):
		}
	}
}

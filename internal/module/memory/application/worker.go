package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Indexer はDispatcherが実行する同期操作のポートです
type Indexer interface {
	SyncDiary(ctx context.Context, diaryID uuid.UUID) error
	RemoveDiary(ctx context.Context, diaryID uuid.UUID) error
}

type jobKind int

const (
	jobSync jobKind = iota
	jobDelete
)

type job struct {
	kind    jobKind
	diaryID uuid.UUID
}

// Dispatcher は日記の保存・更新・削除を契機とするEmbedding同期を
// バックグラウンドで実行します。投入は非ブロッキングで、同期の失敗が
// 呼び出し元の操作に波及することはありません
type Dispatcher struct {
	indexer Indexer
	jobs    chan job
	timeout time.Duration
	logger  *slog.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// DispatcherOption はDispatcher構築時のオプション
type DispatcherOption func(*Dispatcher)

// WithJobTimeout は1ジョブあたりのタイムアウトを設定する
func WithJobTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.timeout = timeout
	}
}

// WithDispatcherLogger はDispatcherにロガーを設定する
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// NewDispatcher は新しいDispatcherを作成し、ワーカーを起動します
func NewDispatcher(indexer Indexer, workers, queueSize int, opts ...DispatcherOption) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}

	d := &Dispatcher{
		indexer: indexer,
		jobs:    make(chan job, queueSize),
		timeout: 60 * time.Second,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(d)
	}

	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}

	return d
}

// EnqueueSync は日記のEmbedding同期を予約します。
// キューが満杯の場合はブロックせずにジョブを破棄して警告を記録します
func (d *Dispatcher) EnqueueSync(diaryID uuid.UUID) {
	d.enqueue(job{kind: jobSync, diaryID: diaryID})
}

// EnqueueDelete は日記のEmbedding削除を予約します
func (d *Dispatcher) EnqueueDelete(diaryID uuid.UUID) {
	d.enqueue(job{kind: jobDelete, diaryID: diaryID})
}

func (d *Dispatcher) enqueue(j job) {
	select {
	case d.jobs <- j:
	default:
		d.logger.Warn("embedding job queue full, dropping job",
			"diaryID", j.diaryID,
		)
	}
}

// Close はキューを閉じ、残りのジョブの完了を待ちます
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.jobs)
	})
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.jobs {
		d.run(j)
	}
}

// run は1ジョブを実行します。panicもここで回収し、ワーカーを生かし続けます
func (d *Dispatcher) run(j job) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("embedding job panicked",
				"diaryID", j.diaryID,
				"panic", r,
			)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	var err error
	switch j.kind {
	case jobSync:
		err = d.indexer.SyncDiary(ctx, j.diaryID)
	case jobDelete:
		err = d.indexer.RemoveDiary(ctx, j.diaryID)
	}

	if err != nil {
		d.logger.Error("embedding job failed",
			"diaryID", j.diaryID,
			"error", err,
		)
	}
}

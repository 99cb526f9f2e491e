package application

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/jinford/dearme-rag/internal/module/memory/domain"
)

// stubEmbedder は呼び出し回数を数える固定ベクトルのEmbedder
type stubEmbedder struct {
	mu     sync.Mutex
	calls  int
	vector []float32
	err    error
}

func (e *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return e.vector, nil
}

func (e *stubEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// stubEmbeddingRepo はメモリ上のEmbeddingリポジトリ
type stubEmbeddingRepo struct {
	mu        sync.Mutex
	rows      map[uuid.UUID]*domain.DiaryEmbedding
	hits      []*domain.SearchHit
	searchErr error
	countErr  error

	upserts      int
	deletes      int
	lastTopK     int
	lastMinSim   float64
	searchCalled bool
}

func newStubEmbeddingRepo() *stubEmbeddingRepo {
	return &stubEmbeddingRepo{rows: make(map[uuid.UUID]*domain.DiaryEmbedding)}
}

func (r *stubEmbeddingRepo) Upsert(_ context.Context, diaryID uuid.UUID, vector []float32, fingerprint string) (*domain.DiaryEmbedding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts++
	row := &domain.DiaryEmbedding{
		ID:       uuid.New(),
		DiaryID:  diaryID,
		Vector:   vector,
		TextHash: fingerprint,
	}
	if existing, ok := r.rows[diaryID]; ok {
		row.ID = existing.ID
	}
	r.rows[diaryID] = row
	return row, nil
}

func (r *stubEmbeddingRepo) Delete(_ context.Context, diaryID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes++
	delete(r.rows, diaryID)
	return nil
}

func (r *stubEmbeddingRepo) GetByDiaryID(_ context.Context, diaryID uuid.UUID) (*domain.DiaryEmbedding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[diaryID]
	if !ok {
		return nil, domain.ErrEmbeddingNotFound
	}
	return row, nil
}

func (r *stubEmbeddingRepo) Search(_ context.Context, _ uuid.UUID, _ []float32, topK int, minSimilarity float64) ([]*domain.SearchHit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.searchCalled = true
	r.lastTopK = topK
	r.lastMinSim = minSimilarity
	if r.searchErr != nil {
		return nil, r.searchErr
	}
	return r.hits, nil
}

func (r *stubEmbeddingRepo) CountByOwner(_ context.Context, _ uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.countErr != nil {
		return 0, r.countErr
	}
	return int64(len(r.rows)), nil
}

func (r *stubEmbeddingRepo) ProbeDimension(_ context.Context) (int, error) {
	return 0, nil
}

// stubDiaryReader はメモリ上の日記リーダ
type stubDiaryReader struct {
	diaries map[uuid.UUID]*domain.DiaryEntry
}

func newStubDiaryReader(diaries ...*domain.DiaryEntry) *stubDiaryReader {
	r := &stubDiaryReader{diaries: make(map[uuid.UUID]*domain.DiaryEntry)}
	for _, d := range diaries {
		r.diaries[d.ID] = d
	}
	return r
}

func (r *stubDiaryReader) GetByID(_ context.Context, id uuid.UUID) (*domain.DiaryEntry, error) {
	diary, ok := r.diaries[id]
	if !ok {
		return nil, domain.ErrDiaryNotFound
	}
	return diary, nil
}

func (r *stubDiaryReader) ListByIDs(_ context.Context, ids []uuid.UUID) ([]*domain.DiaryEntry, error) {
	result := make([]*domain.DiaryEntry, 0, len(ids))
	for _, id := range ids {
		if diary, ok := r.diaries[id]; ok {
			result = append(result, diary)
		}
	}
	return result, nil
}

func (r *stubDiaryReader) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*domain.DiaryEntry, error) {
	result := make([]*domain.DiaryEntry, 0)
	for _, diary := range r.diaries {
		if diary.UserID == ownerID {
			result = append(result, diary)
		}
	}
	return result, nil
}

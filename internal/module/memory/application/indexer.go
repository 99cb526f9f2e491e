package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jinford/dearme-rag/internal/module/memory/domain"
)

// IndexService は日記のEmbedding生成・更新・削除のユースケースを提供します
type IndexService struct {
	diaries    domain.DiaryReader
	embeddings domain.EmbeddingRepository
	embedder   domain.Embedder
	logger     *slog.Logger
}

// IndexServiceOption はIndexService構築時のオプション
type IndexServiceOption func(*IndexService)

// WithIndexLogger はIndexServiceにロガーを設定する
func WithIndexLogger(logger *slog.Logger) IndexServiceOption {
	return func(s *IndexService) {
		s.logger = logger
	}
}

// NewIndexService は新しいIndexServiceを作成します
func NewIndexService(
	diaries domain.DiaryReader,
	embeddings domain.EmbeddingRepository,
	embedder domain.Embedder,
	opts ...IndexServiceOption,
) *IndexService {
	svc := &IndexService{
		diaries:    diaries,
		embeddings: embeddings,
		embedder:   embedder,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc
}

// SyncDiary は日記のEmbeddingを生成または更新します。
// 正規化テキストの指紋が保存済みの指紋と一致する場合は、Embedding計算も
// 書き込みも行わずにスキップします（updated_atも変化しない）
func (s *IndexService) SyncDiary(ctx context.Context, diaryID uuid.UUID) error {
	diary, err := s.diaries.GetByID(ctx, diaryID)
	if err != nil {
		return fmt.Errorf("failed to load diary for embedding: %w", err)
	}

	text := domain.EmbeddingText(diary)
	fingerprint := domain.Fingerprint(text)

	existing, err := s.embeddings.GetByDiaryID(ctx, diaryID)
	if err != nil && !errors.Is(err, domain.ErrEmbeddingNotFound) {
		return fmt.Errorf("failed to check existing embedding: %w", err)
	}

	if existing != nil && existing.TextHash == fingerprint {
		s.logger.Debug("diary embedding unchanged, skipping",
			"diaryID", diaryID,
		)
		return nil
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to embed diary text: %w", err)
	}

	if _, err := s.embeddings.Upsert(ctx, diaryID, vector, fingerprint); err != nil {
		return fmt.Errorf("failed to upsert diary embedding: %w", err)
	}

	if existing == nil {
		s.logger.Info("diary embedding created", "diaryID", diaryID)
	} else {
		s.logger.Info("diary embedding updated", "diaryID", diaryID)
	}

	return nil
}

// RemoveDiary は日記のEmbeddingを削除します。冪等
func (s *IndexService) RemoveDiary(ctx context.Context, diaryID uuid.UUID) error {
	if err := s.embeddings.Delete(ctx, diaryID); err != nil {
		return fmt.Errorf("failed to remove diary embedding: %w", err)
	}

	s.logger.Info("diary embedding removed", "diaryID", diaryID)
	return nil
}

// BackfillOwner は所有者の全日記のEmbeddingを同期します。
// 1件の失敗で全体を止めず、失敗件数を返します
func (s *IndexService) BackfillOwner(ctx context.Context, ownerID uuid.UUID) (synced, failed int, err error) {
	diaries, err := s.diaries.ListByOwner(ctx, ownerID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list diaries for backfill: %w", err)
	}

	for _, diary := range diaries {
		if err := s.SyncDiary(ctx, diary.ID); err != nil {
			s.logger.Error("backfill: failed to sync diary",
				"diaryID", diary.ID,
				"error", err,
			)
			failed++
			continue
		}
		synced++
	}

	return synced, failed, nil
}

package application

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/jinford/dearme-rag/internal/module/memory/domain"
)

// SearchDefaults は検索パラメータのデフォルト値（設定由来）
type SearchDefaults struct {
	TopK          int
	MinSimilarity float64
}

// searchOptions は1回の検索の実効パラメータ
type searchOptions struct {
	topK          int
	minSimilarity float64
}

// SearchOption は検索パラメータの呼び出し単位の上書き
type SearchOption func(*searchOptions)

// WithTopK は最大件数を上書きする
func WithTopK(topK int) SearchOption {
	return func(o *searchOptions) {
		if topK > 0 {
			o.topK = topK
		}
	}
}

// WithMinSimilarity は最小類似度を上書きする
func WithMinSimilarity(min float64) SearchOption {
	return func(o *searchOptions) {
		o.minSimilarity = min
	}
}

// RetrievalService は類似日記検索のユースケースを提供します。
// このサブシステム内部の失敗（Embedding生成・ストア障害）はこの境界で吸収され、
// 空の結果に変換されます。呼び出し側（チャットターン）がEmbedding障害を
// 特別扱いする必要はありません
type RetrievalService struct {
	embedder   domain.Embedder
	embeddings domain.EmbeddingRepository
	diaries    domain.DiaryReader
	defaults   SearchDefaults
	logger     *slog.Logger
}

// RetrievalServiceOption はRetrievalService構築時のオプション
type RetrievalServiceOption func(*RetrievalService)

// WithRetrievalLogger はRetrievalServiceにロガーを設定する
func WithRetrievalLogger(logger *slog.Logger) RetrievalServiceOption {
	return func(s *RetrievalService) {
		s.logger = logger
	}
}

// NewRetrievalService は新しいRetrievalServiceを作成します
func NewRetrievalService(
	embedder domain.Embedder,
	embeddings domain.EmbeddingRepository,
	diaries domain.DiaryReader,
	defaults SearchDefaults,
	opts ...RetrievalServiceOption,
) *RetrievalService {
	svc := &RetrievalService{
		embedder:   embedder,
		embeddings: embeddings,
		diaries:    diaries,
		defaults:   defaults,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc
}

// FindRelevant はクエリに類似する所有者の日記を類似度降順で返します。
// 該当なしは正常系の空リストです。Embedding済みの日記が1件もない所有者は
// ベクトルクエリ自体を実行せずに空リストを返します
func (s *RetrievalService) FindRelevant(ctx context.Context, query string, ownerID uuid.UUID, opts ...SearchOption) []*domain.SimilarityResult {
	if strings.TrimSpace(query) == "" {
		return nil
	}

	options := searchOptions{
		topK:          s.defaults.TopK,
		minSimilarity: s.defaults.MinSimilarity,
	}
	for _, opt := range opts {
		opt(&options)
	}

	count, err := s.embeddings.CountByOwner(ctx, ownerID)
	if err != nil {
		s.logger.Error("failed to count owner embeddings",
			"ownerID", ownerID,
			"error", err,
		)
		return nil
	}
	if count == 0 {
		s.logger.Debug("owner has no embedded diaries", "ownerID", ownerID)
		return nil
	}

	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.logger.Error("failed to embed query",
			"ownerID", ownerID,
			"error", err,
		)
		return nil
	}

	hits, err := s.embeddings.Search(ctx, ownerID, queryVector, options.topK, options.minSimilarity)
	if err != nil {
		s.logger.Error("diary similarity search failed",
			"ownerID", ownerID,
			"error", err,
		)
		return nil
	}

	if len(hits) == 0 {
		return nil
	}

	results, err := s.resolveDiaries(ctx, hits)
	if err != nil {
		s.logger.Error("failed to resolve diaries for search hits",
			"ownerID", ownerID,
			"error", err,
		)
		return nil
	}

	s.logger.Info("diary memory retrieved",
		"ownerID", ownerID,
		"hits", len(results),
	)

	return results
}

// resolveDiaries は検索ヒットを日記エントリに解決します。
// ヒットの類似度降順を維持し、削除済みなどで見つからない日記は読み飛ばします
func (s *RetrievalService) resolveDiaries(ctx context.Context, hits []*domain.SearchHit) ([]*domain.SimilarityResult, error) {
	ids := make([]uuid.UUID, 0, len(hits))
	for _, hit := range hits {
		ids = append(ids, hit.DiaryID)
	}

	diaries, err := s.diaries.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	diaryMap := make(map[uuid.UUID]*domain.DiaryEntry, len(diaries))
	for _, diary := range diaries {
		diaryMap[diary.ID] = diary
	}

	results := make([]*domain.SimilarityResult, 0, len(hits))
	for _, hit := range hits {
		diary, ok := diaryMap[hit.DiaryID]
		if !ok {
			s.logger.Warn("search hit without diary row, skipping", "diaryID", hit.DiaryID)
			continue
		}
		results = append(results, &domain.SimilarityResult{
			Diary:      diary,
			Similarity: hit.Similarity,
		})
	}

	return results, nil
}

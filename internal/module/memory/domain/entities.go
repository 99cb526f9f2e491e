package domain

import (
	"time"

	"github.com/google/uuid"
)

// ContextLevel はチャット応答に開示する日記情報の量を表します
type ContextLevel string

const (
	// ContextLevelMinimal は日付とタイトルのみを開示するレベル
	ContextLevelMinimal ContextLevel = "minimal"

	// ContextLevelStandard は日付・タイトル・気分を開示するレベル
	ContextLevelStandard ContextLevel = "standard"

	// ContextLevelDetailed は本文抜粋まで開示するレベル
	ContextLevelDetailed ContextLevel = "detailed"
)

// ParseContextLevel は文字列をContextLevelに解釈します。
// 不明な値の場合は fallback を返します
func ParseContextLevel(s string, fallback ContextLevel) ContextLevel {
	switch ContextLevel(s) {
	case ContextLevelMinimal, ContextLevelStandard, ContextLevelDetailed:
		return ContextLevel(s)
	default:
		return fallback
	}
}

// DiaryEntry は日記エントリを表します。
// 日記CRUDは外部コラボレータの責務であり、本サブシステムからは読み取り専用
type DiaryEntry struct {
	ID      uuid.UUID
	UserID  uuid.UUID
	Title   string
	Content string
	Mood    *string
	Weather *string
	Date    time.Time
}

// DiaryEmbedding は日記1件に対応するEmbeddingベクトルを表します（diary_idで一意）
type DiaryEmbedding struct {
	ID        uuid.UUID
	DiaryID   uuid.UUID
	Vector    []float32
	TextHash  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SearchHit はベクトル検索の生の結果（日記ID + 類似度）を表します
type SearchHit struct {
	DiaryID    uuid.UUID
	Similarity float64
}

// SimilarityResult は1クエリに対する日記と類似度の組を表します。
// 永続化されない一時データで、ContextAssemblerが即座に消費します
type SimilarityResult struct {
	Diary      *DiaryEntry
	Similarity float64
}

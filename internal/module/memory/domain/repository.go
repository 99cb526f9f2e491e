package domain

import (
	"context"

	"github.com/google/uuid"
)

// EmbeddingRepository は diary_embeddings の永続化ポートです。
// Embedding行を変更できるのはこのポートの実装のみです
type EmbeddingRepository interface {
	// Upsert は日記のEmbedding行を作成または更新します。
	// 既存行の指紋が一致する場合は何も書き込まず既存行を返します。
	// 指紋が異なる場合はベクトルと指紋を置き換え、updated_atを更新します
	Upsert(ctx context.Context, diaryID uuid.UUID, vector []float32, fingerprint string) (*DiaryEmbedding, error)

	// Delete は日記のEmbedding行を削除します。行が存在しなくてもエラーになりません
	Delete(ctx context.Context, diaryID uuid.UUID) error

	// GetByDiaryID は日記IDでEmbedding行を取得します。
	// 行が存在しない場合は ErrEmbeddingNotFound を返します
	GetByDiaryID(ctx context.Context, diaryID uuid.UUID) (*DiaryEmbedding, error)

	// Search は所有者スコープのコサイン類似度検索を実行します。
	// similarity >= minSimilarity の行を類似度降順で最大topK件返します。
	// 同点の場合は日記の date 降順、id 昇順で安定化します
	Search(ctx context.Context, ownerID uuid.UUID, queryVector []float32, topK int, minSimilarity float64) ([]*SearchHit, error)

	// CountByOwner は所有者のEmbedding済み日記件数を返します
	CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)

	// ProbeDimension は保存済みベクトルの次元数を返します。
	// 行が1件も存在しない場合は 0 を返します（起動時の次元検証用）
	ProbeDimension(ctx context.Context) (int, error)
}

// DiaryReader は日記エントリへの読み取り専用ポートです
type DiaryReader interface {
	// GetByID は日記をIDで取得します。存在しない場合は ErrDiaryNotFound
	GetByID(ctx context.Context, id uuid.UUID) (*DiaryEntry, error)

	// ListByIDs は複数の日記をまとめて取得します（検索結果の解決用）
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*DiaryEntry, error)

	// ListByOwner は所有者の全日記を取得します（バックフィル用）
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*DiaryEntry, error)
}

// PreferenceReader はユーザごとのContextLevel設定への読み取りポートです
type PreferenceReader interface {
	// ContextLevel はユーザの設定値を返します。未設定の場合は nil
	ContextLevel(ctx context.Context, userID uuid.UUID) (*string, error)
}

// Embedder はテキストをベクトルに変換するポートです
type Embedder interface {
	// Embed は単一テキストのEmbeddingを生成します
	Embed(ctx context.Context, text string) ([]float32, error)
}

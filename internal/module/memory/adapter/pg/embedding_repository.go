package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/jinford/dearme-rag/internal/module/memory/domain"
)

// DBTX はプールとトランザクションの両方を受け取るための最小インターフェース
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EmbeddingRepository は diary_embeddings の永続化アダプターです
type EmbeddingRepository struct {
	db DBTX
}

// NewEmbeddingRepository は新しいEmbeddingリポジトリを作成します
func NewEmbeddingRepository(db DBTX) *EmbeddingRepository {
	return &EmbeddingRepository{db: db}
}

// インターフェース実装の確認
var _ domain.EmbeddingRepository = (*EmbeddingRepository)(nil)

// Upsert は日記のEmbedding行を作成または更新します。
// ON CONFLICT の1文で実行するため、同一日記への並行upsertは last-writer-wins で
// 線形化され、中途半端な書き込みは発生しません。指紋が一致する場合は
// WHERE句によりUPDATEが抑止され、既存行をそのまま返します
func (r *EmbeddingRepository) Upsert(ctx context.Context, diaryID uuid.UUID, vector []float32, fingerprint string) (*domain.DiaryEmbedding, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO diary_embeddings (id, diary_id, embedding, text_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (diary_id) DO UPDATE
		SET embedding = EXCLUDED.embedding,
		    text_hash = EXCLUDED.text_hash,
		    updated_at = now()
		WHERE diary_embeddings.text_hash <> EXCLUDED.text_hash
		RETURNING id, diary_id, embedding, text_hash, created_at, updated_at
	`, UUIDToPgtype(uuid.New()), UUIDToPgtype(diaryID), pgvector.NewVector(vector), fingerprint)

	embedding, err := scanEmbedding(row)
	if err == nil {
		return embedding, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to upsert diary embedding: %w", err)
	}

	// 指紋一致でUPDATEが抑止された場合はRETURNINGが空になるため既存行を返す
	existing, err := r.GetByDiaryID(ctx, diaryID)
	if err != nil {
		return nil, fmt.Errorf("failed to load unchanged diary embedding: %w", err)
	}

	return existing, nil
}

// Delete は日記のEmbedding行を削除します。存在しない場合も成功扱い
func (r *EmbeddingRepository) Delete(ctx context.Context, diaryID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `
		DELETE FROM diary_embeddings WHERE diary_id = $1
	`, UUIDToPgtype(diaryID)); err != nil {
		return fmt.Errorf("failed to delete diary embedding: %w", err)
	}

	return nil
}

// GetByDiaryID は日記IDでEmbedding行を取得します
func (r *EmbeddingRepository) GetByDiaryID(ctx context.Context, diaryID uuid.UUID) (*domain.DiaryEmbedding, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, diary_id, embedding, text_hash, created_at, updated_at
		FROM diary_embeddings
		WHERE diary_id = $1
	`, UUIDToPgtype(diaryID))

	embedding, err := scanEmbedding(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEmbeddingNotFound
		}
		return nil, fmt.Errorf("failed to get diary embedding: %w", err)
	}

	return embedding, nil
}

// Search は所有者スコープのコサイン類似度検索を実行します。
// 類似度は 1 - cosine_distance（pgvectorの <=> 演算子）。
// 同点は日記の date 降順、id 昇順で安定化します
func (r *EmbeddingRepository) Search(ctx context.Context, ownerID uuid.UUID, queryVector []float32, topK int, minSimilarity float64) ([]*domain.SearchHit, error) {
	rows, err := r.db.Query(ctx, `
		SELECT de.diary_id, 1 - (de.embedding <=> $1) AS similarity
		FROM diary_embeddings de
		JOIN diaries d ON d.id = de.diary_id
		WHERE d.user_id = $2
		  AND 1 - (de.embedding <=> $1) >= $3
		ORDER BY de.embedding <=> $1, d.date DESC, d.id
		LIMIT $4
	`, pgvector.NewVector(queryVector), UUIDToPgtype(ownerID), minSimilarity, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search diary embeddings: %w", err)
	}
	defer rows.Close()

	hits := make([]*domain.SearchHit, 0, topK)
	for rows.Next() {
		var diaryID pgtype.UUID
		var similarity float64
		if err := rows.Scan(&diaryID, &similarity); err != nil {
			return nil, fmt.Errorf("failed to scan search hit: %w", err)
		}
		hits = append(hits, &domain.SearchHit{
			DiaryID:    PgtypeToUUID(diaryID),
			Similarity: similarity,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate search hits: %w", err)
	}

	return hits, nil
}

// CountByOwner は所有者のEmbedding済み日記件数を返します
func (r *EmbeddingRepository) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `
		SELECT count(*)
		FROM diary_embeddings de
		JOIN diaries d ON d.id = de.diary_id
		WHERE d.user_id = $1
	`, UUIDToPgtype(ownerID)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count diary embeddings: %w", err)
	}

	return count, nil
}

// ProbeDimension は保存済みベクトルの次元数を返します（行がなければ 0）
func (r *EmbeddingRepository) ProbeDimension(ctx context.Context) (int, error) {
	var dims int32
	err := r.db.QueryRow(ctx, `
		SELECT vector_dims(embedding) FROM diary_embeddings LIMIT 1
	`).Scan(&dims)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to probe embedding dimension: %w", err)
	}

	return int(dims), nil
}

// scanEmbedding は1行をdomain.DiaryEmbeddingに変換します
func scanEmbedding(row pgx.Row) (*domain.DiaryEmbedding, error) {
	var (
		id        pgtype.UUID
		diaryID   pgtype.UUID
		vector    pgvector.Vector
		textHash  string
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)

	if err := row.Scan(&id, &diaryID, &vector, &textHash, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	return &domain.DiaryEmbedding{
		ID:        PgtypeToUUID(id),
		DiaryID:   PgtypeToUUID(diaryID),
		Vector:    vector.Slice(),
		TextHash:  textHash,
		CreatedAt: PgtypeToTime(createdAt),
		UpdatedAt: PgtypeToTime(updatedAt),
	}, nil
}

package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/jinford/dearme-rag/internal/module/memory/domain"
)

// PreferenceRepository は users.rag_context_level への読み取り専用アダプターです
type PreferenceRepository struct {
	db DBTX
}

// NewPreferenceRepository は新しい設定リーダを作成します
func NewPreferenceRepository(db DBTX) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// インターフェース実装の確認
var _ domain.PreferenceReader = (*PreferenceRepository)(nil)

// ContextLevel はユーザのContextLevel設定を返します。
// ユーザが存在しない場合・カラムがNULLの場合は nil を返します
func (r *PreferenceRepository) ContextLevel(ctx context.Context, userID uuid.UUID) (*string, error) {
	var level pgtype.Text
	err := r.db.QueryRow(ctx, `
		SELECT rag_context_level FROM users WHERE id = $1
	`, UUIDToPgtype(userID)).Scan(&level)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get context level: %w", err)
	}

	return PgtextToStringPtr(level), nil
}

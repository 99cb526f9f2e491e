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

// DiaryRepository は日記CRUDコラボレータが所有する diaries テーブルへの
// 読み取り専用アダプターです。本サブシステムは日記行を一切変更しません
type DiaryRepository struct {
	db DBTX
}

// NewDiaryRepository は新しい日記リーダを作成します
func NewDiaryRepository(db DBTX) *DiaryRepository {
	return &DiaryRepository{db: db}
}

// インターフェース実装の確認
var _ domain.DiaryReader = (*DiaryRepository)(nil)

// GetByID は日記をIDで取得します
func (r *DiaryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.DiaryEntry, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, title, content, mood, weather, date
		FROM diaries
		WHERE id = $1
	`, UUIDToPgtype(id))

	diary, err := scanDiary(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDiaryNotFound
		}
		return nil, fmt.Errorf("failed to get diary: %w", err)
	}

	return diary, nil
}

// ListByIDs は複数の日記をまとめて取得します
func (r *DiaryRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.DiaryEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	pgIDs := make([]pgtype.UUID, 0, len(ids))
	for _, id := range ids {
		pgIDs = append(pgIDs, UUIDToPgtype(id))
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, title, content, mood, weather, date
		FROM diaries
		WHERE id = ANY($1)
	`, pgIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list diaries: %w", err)
	}
	defer rows.Close()

	return collectDiaries(rows)
}

// ListByOwner は所有者の全日記を日付昇順で取得します
func (r *DiaryRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.DiaryEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, title, content, mood, weather, date
		FROM diaries
		WHERE user_id = $1
		ORDER BY date, id
	`, UUIDToPgtype(ownerID))
	if err != nil {
		return nil, fmt.Errorf("failed to list diaries by owner: %w", err)
	}
	defer rows.Close()

	return collectDiaries(rows)
}

func collectDiaries(rows pgx.Rows) ([]*domain.DiaryEntry, error) {
	diaries := make([]*domain.DiaryEntry, 0)
	for rows.Next() {
		diary, err := scanDiary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan diary: %w", err)
		}
		diaries = append(diaries, diary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate diaries: %w", err)
	}

	return diaries, nil
}

func scanDiary(row pgx.Row) (*domain.DiaryEntry, error) {
	var (
		id      pgtype.UUID
		userID  pgtype.UUID
		title   string
		content string
		mood    pgtype.Text
		weather pgtype.Text
		date    pgtype.Date
	)

	if err := row.Scan(&id, &userID, &title, &content, &mood, &weather, &date); err != nil {
		return nil, err
	}

	return &domain.DiaryEntry{
		ID:      PgtypeToUUID(id),
		UserID:  PgtypeToUUID(userID),
		Title:   title,
		Content: content,
		Mood:    PgtextToStringPtr(mood),
		Weather: PgtextToStringPtr(weather),
		Date:    PgdateToTime(date),
	}, nil
}

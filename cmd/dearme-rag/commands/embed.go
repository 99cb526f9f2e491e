package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	memoryapp "github.com/jinford/dearme-rag/internal/module/memory/application"
	"github.com/jinford/dearme-rag/internal/platform/database"
)

// EmbedSyncAction は日記1件のEmbeddingを同期するコマンドのアクション
func EmbedSyncAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	diaryID, err := uuid.Parse(cmd.String("diary-id"))
	if err != nil {
		return fmt.Errorf("diary-idのパースに失敗: %w", err)
	}

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	slog.Info("日記Embeddingの同期を開始", "diaryID", diaryID)

	// --async 時はDispatcherに投入して完了を待つだけ。
	// アプリ本体で日記の保存イベントから呼ばれるのと同じ経路になる
	if cmd.Bool("async") {
		appCtx.Container.Dispatcher.EnqueueSync(diaryID)
		appCtx.Container.Dispatcher.Close()
		return nil
	}

	// 日記の読み取りからEmbeddingの書き込みまでを1トランザクションで実行する
	if _, err := database.Transact(ctx, appCtx.Container.TxProvider, func(a *database.Adapter) (struct{}, error) {
		svc := memoryapp.NewIndexService(
			a.Diaries,
			a.Embeddings,
			appCtx.Container.Embedder(),
			memoryapp.WithIndexLogger(appCtx.Logger()),
		)
		return struct{}{}, svc.SyncDiary(ctx, diaryID)
	}); err != nil {
		slog.Error("日記Embeddingの同期に失敗しました", "error", err)
		return err
	}

	slog.Info("日記Embeddingの同期が完了しました", "diaryID", diaryID)
	return nil
}

// EmbedDeleteAction は日記のEmbeddingを削除するコマンドのアクション
func EmbedDeleteAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	diaryID, err := uuid.Parse(cmd.String("diary-id"))
	if err != nil {
		return fmt.Errorf("diary-idのパースに失敗: %w", err)
	}

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if err := appCtx.Container.IndexService.RemoveDiary(ctx, diaryID); err != nil {
		slog.Error("日記Embeddingの削除に失敗しました", "error", err)
		return err
	}

	slog.Info("日記Embeddingを削除しました", "diaryID", diaryID)
	return nil
}

// EmbedBackfillAction はユーザの全日記のEmbeddingを一括同期するコマンドのアクション
func EmbedBackfillAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	userID, err := uuid.Parse(cmd.String("user-id"))
	if err != nil {
		return fmt.Errorf("user-idのパースに失敗: %w", err)
	}

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	slog.Info("Embeddingバックフィルを開始", "userID", userID)

	synced, failed, err := appCtx.Container.IndexService.BackfillOwner(ctx, userID)
	if err != nil {
		slog.Error("Embeddingバックフィルに失敗しました", "error", err)
		return err
	}

	slog.Info("Embeddingバックフィルが完了しました",
		"userID", userID,
		"synced", synced,
		"failed", failed,
	)

	fmt.Printf("synced: %d, failed: %d\n", synced, failed)
	return nil
}

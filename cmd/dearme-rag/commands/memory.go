package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	memoryapp "github.com/jinford/dearme-rag/internal/module/memory/application"
	memorydomain "github.com/jinford/dearme-rag/internal/module/memory/domain"
)

// MemorySearchAction は類似日記検索を実行するコマンドのアクション
func MemorySearchAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	query := cmd.String("query")
	topK := cmd.Int("top-k")
	minSimilarity := cmd.Float("min-similarity")

	userID, err := uuid.Parse(cmd.String("user-id"))
	if err != nil {
		return fmt.Errorf("user-idのパースに失敗: %w", err)
	}

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	var opts []memoryapp.SearchOption
	if topK > 0 {
		opts = append(opts, memoryapp.WithTopK(int(topK)))
	}
	if cmd.IsSet("min-similarity") {
		opts = append(opts, memoryapp.WithMinSimilarity(minSimilarity))
	}

	results := appCtx.Container.RetrievalService.FindRelevant(ctx, query, userID, opts...)
	if len(results) == 0 {
		fmt.Println("該当する日記はありませんでした")
		return nil
	}

	for _, r := range results {
		fmt.Printf("%.4f  [%s] %s\n", r.Similarity, r.Diary.Date.Format("2006-01-02"), r.Diary.Title)
	}
	return nil
}

// MemoryContextAction はコンテキストブロックの整形結果を表示するコマンドのアクション
func MemoryContextAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	query := cmd.String("query")
	levelStr := cmd.String("level")
	asFriend := cmd.Bool("as-friend")

	userID, err := uuid.Parse(cmd.String("user-id"))
	if err != nil {
		return fmt.Errorf("user-idのパースに失敗: %w", err)
	}

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	level := memorydomain.ParseContextLevel(levelStr, memorydomain.ContextLevelStandard)

	results := appCtx.Container.RetrievalService.FindRelevant(ctx, query, userID)
	block := appCtx.Container.Assembler.Assemble(results, level, !asFriend)

	slog.Info("コンテキストブロックを生成しました", "hits", len(results), "level", level)
	fmt.Println(block)
	return nil
}

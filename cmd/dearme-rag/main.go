package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/jinford/dearme-rag/cmd/dearme-rag/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 構造化ログの設定
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	app := &cli.Command{
		Name:  "dearme-rag",
		Usage: "日記の意味記憶検索とペルソナ対話コンテキスト生成",
		Commands: []*cli.Command{
			{
				Name:  "embed",
				Usage: "日記Embedding管理コマンド",
				Commands: []*cli.Command{
					{
						Name:  "sync",
						Usage: "日記1件のEmbeddingを生成または更新",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "diary-id",
								Usage:    "日記ID (UUID)",
								Required: true,
							},
							&cli.BoolFlag{
								Name:  "async",
								Usage: "バックグラウンドワーカー経由で同期（失敗しても終了コードは0）",
							},
						},
						Action: commands.EmbedSyncAction,
					},
					{
						Name:  "delete",
						Usage: "日記のEmbeddingを削除",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "diary-id",
								Usage:    "日記ID (UUID)",
								Required: true,
							},
						},
						Action: commands.EmbedDeleteAction,
					},
					{
						Name:  "backfill",
						Usage: "ユーザの全日記のEmbeddingを一括同期",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "user-id",
								Usage:    "ユーザID (UUID)",
								Required: true,
							},
						},
						Action: commands.EmbedBackfillAction,
					},
				},
			},
			{
				Name:  "memory",
				Usage: "日記記憶検索コマンド",
				Commands: []*cli.Command{
					{
						Name:  "search",
						Usage: "類似日記を検索",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "user-id",
								Usage:    "ユーザID (UUID)",
								Required: true,
							},
							&cli.StringFlag{
								Name:     "query",
								Usage:    "検索クエリ",
								Required: true,
							},
							&cli.IntFlag{
								Name:  "top-k",
								Usage: "最大件数（省略時は設定値）",
							},
							&cli.FloatFlag{
								Name:  "min-similarity",
								Usage: "最小コサイン類似度（省略時は設定値）",
							},
						},
						Action: commands.MemorySearchAction,
					},
					{
						Name:  "context",
						Usage: "コンテキストブロックの整形結果を表示",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "user-id",
								Usage:    "ユーザID (UUID)",
								Required: true,
							},
							&cli.StringFlag{
								Name:     "query",
								Usage:    "検索クエリ",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "level",
								Usage: "コンテキストレベル (minimal/standard/detailed)",
								Value: "standard",
							},
							&cli.BoolFlag{
								Name:  "as-friend",
								Usage: "所有者以外からの参照として整形",
							},
						},
						Action: commands.MemoryContextAction,
					},
				},
			},
			{
				Name:  "chat",
				Usage: "ペルソナ対話コマンド",
				Commands: []*cli.Command{
					{
						Name:  "ask",
						Usage: "ペルソナとの1対話ターンを実行",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "owner-id",
								Usage:    "ペルソナ所有者のユーザID (UUID)",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "requester-id",
								Usage: "対話する側のユーザID（省略時は所有者本人）",
							},
							&cli.StringFlag{
								Name:     "message",
								Usage:    "ユーザメッセージ",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "owner-name",
								Usage: "所有者の表示名",
								Value: "ユーザー",
							},
							&cli.StringFlag{
								Name:  "requester-name",
								Usage: "対話相手の表示名",
								Value: "友だち",
							},
							&cli.StringFlag{
								Name:  "persona-name",
								Usage: "ペルソナ名",
							},
							&cli.StringFlag{
								Name:  "personality",
								Usage: "ペルソナの性格",
							},
							&cli.StringFlag{
								Name:  "speaking-style",
								Usage: "ペルソナの話し方",
							},
							&cli.StringFlag{
								Name:  "traits",
								Usage: "特性（カンマ区切り）",
							},
							&cli.StringFlag{
								Name:  "interests",
								Usage: "関心事（カンマ区切り）",
							},
						},
						Action: commands.ChatAskAction,
					},
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

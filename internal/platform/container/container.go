package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkoukk/tiktoken-go"

	chatapp "github.com/jinford/dearme-rag/internal/module/chat/application"
	llmadapter "github.com/jinford/dearme-rag/internal/module/llm/adapter"
	llmdomain "github.com/jinford/dearme-rag/internal/module/llm/domain"
	memorypg "github.com/jinford/dearme-rag/internal/module/memory/adapter/pg"
	memoryapp "github.com/jinford/dearme-rag/internal/module/memory/application"
	memorydomain "github.com/jinford/dearme-rag/internal/module/memory/domain"
	"github.com/jinford/dearme-rag/internal/platform/config"
	"github.com/jinford/dearme-rag/internal/platform/database"
)

// ServiceContainer はアプリケーション全体の依存関係を保持します
type ServiceContainer struct {
	IndexService     *memoryapp.IndexService
	RetrievalService *memoryapp.RetrievalService
	Assembler        *memoryapp.ContextAssembler
	Dispatcher       *memoryapp.Dispatcher
	ChatService      *chatapp.ChatService
	TxProvider       *database.TransactionProvider

	Embeddings  memorydomain.EmbeddingRepository
	Diaries     memorydomain.DiaryReader
	Preferences memorydomain.PreferenceReader

	logger   *slog.Logger
	database *database.Database
	embedder memorydomain.Embedder
	closers  []func()
}

type containerOptions struct {
	logger    *slog.Logger
	embedder  llmdomain.Embedder
	llmClient llmdomain.Client
	skipProbe bool
}

// ContainerOption はServiceContainer構築時のオプション
type ContainerOption func(*containerOptions)

// WithContainerLogger はロガーを差し替える
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithContainerEmbedder はカスタムEmbedderを注入する
func WithContainerEmbedder(embedder llmdomain.Embedder) ContainerOption {
	return func(opts *containerOptions) {
		opts.embedder = embedder
	}
}

// WithContainerLLMClient はLLMクライアントを差し替える
func WithContainerLLMClient(client llmdomain.Client) ContainerOption {
	return func(opts *containerOptions) {
		opts.llmClient = client
	}
}

// WithoutDimensionProbe は起動時の次元検証を省略する（スキーマ未作成の環境用）
func WithoutDimensionProbe() ContainerOption {
	return func(opts *containerOptions) {
		opts.skipProbe = true
	}
}

// NewContainer は設定からコンテナを生成します
func NewContainer(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (*ServiceContainer, error) {
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("データベース初期化に失敗しました: %w", err)
	}

	c, err := NewContainerWithDB(ctx, cfg, db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// NewContainerWithDB は既存のDatabaseを受け取りコンテナを生成します
func NewContainerWithDB(ctx context.Context, cfg *config.Config, db *database.Database, opts ...ContainerOption) (*ServiceContainer, error) {
	options := containerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	logger := options.logger

	c := &ServiceContainer{
		logger:   logger,
		database: db,
	}

	// Embedder (OpenAI)。プロセス内で1つだけ構築し、全サービスで共有する
	embedder := options.embedder
	if embedder == nil {
		openaiEmbedder, err := llmadapter.NewOpenAIEmbedder(
			cfg.OpenAI.APIKey,
			cfg.OpenAI.EmbeddingModel,
			cfg.Memory.EmbeddingDimension,
		)
		if err != nil {
			return nil, fmt.Errorf("Embedder初期化に失敗しました: %w", err)
		}
		embedder = openaiEmbedder
	}

	// クエリEmbeddingのTTLキャッシュ
	if cfg.Memory.QueryCacheTTLSeconds > 0 {
		cached, err := llmadapter.NewCachedEmbedder(
			embedder,
			time.Duration(cfg.Memory.QueryCacheTTLSeconds)*time.Second,
		)
		if err != nil {
			return nil, fmt.Errorf("Embeddingキャッシュ初期化に失敗しました: %w", err)
		}
		embedder = cached
		c.closers = append(c.closers, cached.Close)
	}
	c.embedder = embedder

	// Repository (PostgreSQL)
	embeddings := memorypg.NewEmbeddingRepository(db.Pool)
	diaries := memorypg.NewDiaryRepository(db.Pool)
	preferences := memorypg.NewPreferenceRepository(db.Pool)
	c.Embeddings = embeddings
	c.Diaries = diaries
	c.Preferences = preferences
	c.TxProvider = database.NewTransactionProvider(db.Pool)

	// 保存済みベクトルとの次元不一致は起動時に検出する
	if !options.skipProbe {
		storedDim, err := embeddings.ProbeDimension(ctx)
		if err != nil {
			return nil, fmt.Errorf("ベクトル次元の検証に失敗しました: %w", err)
		}
		if storedDim != 0 && storedDim != cfg.Memory.EmbeddingDimension {
			return nil, fmt.Errorf(
				"%w: configured %d, stored %d",
				memorydomain.ErrDimensionMismatch,
				cfg.Memory.EmbeddingDimension,
				storedDim,
			)
		}
	}

	// IndexService
	indexService := memoryapp.NewIndexService(
		diaries,
		embeddings,
		embedder,
		memoryapp.WithIndexLogger(logger),
	)
	c.IndexService = indexService

	// RetrievalService
	retrievalService := memoryapp.NewRetrievalService(
		embedder,
		embeddings,
		diaries,
		memoryapp.SearchDefaults{
			TopK:          cfg.Memory.TopK,
			MinSimilarity: cfg.Memory.SimilarityThreshold,
		},
		memoryapp.WithRetrievalLogger(logger),
	)
	c.RetrievalService = retrievalService

	// ContextAssembler（トークン予算はtiktokenで計測）
	assemblerOpts := []memoryapp.ContextAssemblerOption{
		memoryapp.WithAssemblerLogger(logger),
	}
	if cfg.Memory.ContextTokenBudget > 0 {
		counter, err := newTokenCounter()
		if err != nil {
			// トークン計測は補助機能なので起動は止めない
			logger.Warn("token counter unavailable, context token budget disabled", "error", err)
		} else {
			assemblerOpts = append(assemblerOpts, memoryapp.WithTokenBudget(cfg.Memory.ContextTokenBudget, counter))
		}
	}
	c.Assembler = memoryapp.NewContextAssembler(cfg.Memory.ExcerptRunes, assemblerOpts...)

	// Dispatcher（日記の保存・削除を契機とする非同期同期）
	c.Dispatcher = memoryapp.NewDispatcher(
		indexService,
		cfg.Memory.Workers,
		cfg.Memory.QueueSize,
		memoryapp.WithDispatcherLogger(logger),
	)
	c.closers = append(c.closers, c.Dispatcher.Close)

	// LLMClient (OpenAI)
	llmClient := options.llmClient
	if llmClient == nil {
		openaiClient, err := llmadapter.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.ChatModel)
		if err != nil {
			return nil, fmt.Errorf("OpenAI LLMクライアント初期化に失敗しました: %w", err)
		}
		llmClient = openaiClient
	}

	// ChatService
	c.ChatService = chatapp.NewChatService(
		retrievalService,
		c.Assembler,
		preferences,
		llmClient,
		memorydomain.ParseContextLevel(cfg.Memory.DefaultContextLevel, memorydomain.ContextLevelStandard),
		chatapp.WithChatLogger(logger),
	)

	// Embedding APIのウォームアップ（失敗しても起動は続行する）
	c.WarmUp(ctx)

	return c, nil
}

// WarmUp はEmbedding APIへの疎通を確認します。
// 失敗しても起動は続行し、最初の検索ターンで再試行されます
func (c *ServiceContainer) WarmUp(ctx context.Context) {
	if _, err := c.embedder.Embed(ctx, "warmup"); err != nil {
		c.logger.Warn("embedding warm-up failed, continuing without warm cache", "error", err)
	}
}

// Close は内部リソースを解放します。Dispatcherの残ジョブ完了を待ってから
// データベース接続を閉じます
func (c *ServiceContainer) Close() {
	if c == nil {
		return
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	if c.database != nil {
		c.database.Close()
	}
}

// Logger はロガーを返します
func (c *ServiceContainer) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// Database はデータベースを返します
func (c *ServiceContainer) Database() *database.Database {
	if c == nil {
		return nil
	}
	return c.database
}

// Embedder は共有Embedderを返します
func (c *ServiceContainer) Embedder() memorydomain.Embedder {
	if c == nil {
		return nil
	}
	return c.embedder
}

// tokenCounter はtiktokenを利用したTokenCounter実装
type tokenCounter struct {
	encoding *tiktoken.Tiktoken
}

func newTokenCounter() (*tokenCounter, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding: %w", err)
	}
	return &tokenCounter{encoding: enc}, nil
}

// Count はテキストのトークン数を返す
// memoryapp.TokenCounterインターフェースを実装
func (t *tokenCounter) Count(text string) (int, error) {
	if t.encoding == nil {
		return 0, errors.New("tiktoken encoding not initialized")
	}
	return len(t.encoding.Encode(text, nil, nil)), nil
}

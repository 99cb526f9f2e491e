package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	llmdomain "github.com/jinford/dearme-rag/internal/module/llm/domain"
	memoryapp "github.com/jinford/dearme-rag/internal/module/memory/application"
	memorydomain "github.com/jinford/dearme-rag/internal/module/memory/domain"
)

// MemoryRetriever は日記の記憶検索へのポートです
type MemoryRetriever interface {
	FindRelevant(ctx context.Context, query string, ownerID uuid.UUID, opts ...memoryapp.SearchOption) []*memorydomain.SimilarityResult
}

// ContextBuilder は検索結果をプロンプト用ブロックへ整形するポートです
type ContextBuilder interface {
	Assemble(results []*memorydomain.SimilarityResult, level memorydomain.ContextLevel, isOwner bool) string
}

// ChatService はペルソナとの対話ターンを組み立てるユースケースです。
// ユーザーメッセージをクエリとして日記の記憶を検索し、ContextLevelに従って
// 整形したブロックをシステムプロンプトに織り込んでからLLMに渡します
type ChatService struct {
	retriever    MemoryRetriever
	assembler    ContextBuilder
	preferences  memorydomain.PreferenceReader
	llm          llmdomain.Client
	defaultLevel memorydomain.ContextLevel
	logger       *slog.Logger
}

// ChatServiceOption はChatService構築時のオプション
type ChatServiceOption func(*ChatService)

// WithChatLogger はChatServiceにロガーを設定する
func WithChatLogger(logger *slog.Logger) ChatServiceOption {
	return func(s *ChatService) {
		s.logger = logger
	}
}

// NewChatService は新しいChatServiceを作成します
func NewChatService(
	retriever MemoryRetriever,
	assembler ContextBuilder,
	preferences memorydomain.PreferenceReader,
	llm llmdomain.Client,
	defaultLevel memorydomain.ContextLevel,
	opts ...ChatServiceOption,
) *ChatService {
	svc := &ChatService{
		retriever:    retriever,
		assembler:    assembler,
		preferences:  preferences,
		llm:          llm,
		defaultLevel: defaultLevel,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc
}

// ReplyInput は1対話ターンの入力
type ReplyInput struct {
	Persona       PersonaProfile
	OwnerID       uuid.UUID
	RequesterID   uuid.UUID
	RequesterName string
	Message       string
	History       []llmdomain.Message
}

// Reply は1対話ターンを実行し、ペルソナの応答を返します。
// 記憶検索の失敗はターンを止めず、記憶なしとして続行します
func (s *ChatService) Reply(ctx context.Context, in ReplyInput) (string, error) {
	isOwner := in.OwnerID == in.RequesterID

	results := s.retriever.FindRelevant(ctx, in.Message, in.OwnerID)

	level := s.resolveContextLevel(ctx, in.OwnerID)
	memoryBlock := s.assembler.Assemble(results, level, isOwner)

	var systemPrompt string
	if isOwner {
		systemPrompt = buildSelfChatPrompt(in.Persona, memoryBlock)
	} else {
		systemPrompt = buildFriendChatPrompt(in.Persona, in.RequesterName, memoryBlock)
	}

	resp, err := s.llm.GenerateCompletion(ctx, llmdomain.CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   in.Message,
		History:      in.History,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate persona reply: %w", err)
	}

	s.logger.Info("persona reply generated",
		"ownerID", in.OwnerID,
		"isOwner", isOwner,
		"memories", len(results),
		"tokensUsed", resp.TokensUsed,
	)

	return resp.Content, nil
}

// resolveContextLevel は所有者のContextLevel設定を解決します。
// 未設定・不正値・読み取り失敗はデフォルトレベルに落とします
func (s *ChatService) resolveContextLevel(ctx context.Context, ownerID uuid.UUID) memorydomain.ContextLevel {
	raw, err := s.preferences.ContextLevel(ctx, ownerID)
	if err != nil {
		s.logger.Warn("failed to read context level preference, using default",
			"ownerID", ownerID,
			"error", err,
		)
		return s.defaultLevel
	}
	if raw == nil {
		return s.defaultLevel
	}
	return memorydomain.ParseContextLevel(*raw, s.defaultLevel)
}

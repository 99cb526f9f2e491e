package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmdomain "github.com/jinford/dearme-rag/internal/module/llm/domain"
	memoryapp "github.com/jinford/dearme-rag/internal/module/memory/application"
	memorydomain "github.com/jinford/dearme-rag/internal/module/memory/domain"
)

type stubRetriever struct {
	results   []*memorydomain.SimilarityResult
	lastQuery string
	lastOwner uuid.UUID
}

func (r *stubRetriever) FindRelevant(_ context.Context, query string, ownerID uuid.UUID, _ ...memoryapp.SearchOption) []*memorydomain.SimilarityResult {
	r.lastQuery = query
	r.lastOwner = ownerID
	return r.results
}

type stubAssembler struct {
	block       string
	lastLevel   memorydomain.ContextLevel
	lastIsOwner bool
}

func (a *stubAssembler) Assemble(_ []*memorydomain.SimilarityResult, level memorydomain.ContextLevel, isOwner bool) string {
	a.lastLevel = level
	a.lastIsOwner = isOwner
	return a.block
}

type stubPreferences struct {
	level *string
	err   error
}

func (p *stubPreferences) ContextLevel(_ context.Context, _ uuid.UUID) (*string, error) {
	return p.level, p.err
}

type stubLLM struct {
	resp      llmdomain.CompletionResponse
	err       error
	lastReq   llmdomain.CompletionRequest
	callCount int
}

func (c *stubLLM) GenerateCompletion(_ context.Context, req llmdomain.CompletionRequest) (llmdomain.CompletionResponse, error) {
	c.lastReq = req
	c.callCount++
	if c.err != nil {
		return llmdomain.CompletionResponse{}, c.err
	}
	return c.resp, nil
}

func strPtr(s string) *string {
	return &s
}

func testPersona(ownerName string) PersonaProfile {
	return PersonaProfile{
		Name:          "ユキ",
		OwnerName:     ownerName,
		Personality:   "穏やかで好奇心旺盛",
		Traits:        []string{"読書好き", "朝型"},
		SpeakingStyle: "柔らかい口調",
		Summary:       "日常を丁寧に記録する人",
		Interests:     []string{"読書", "散歩"},
	}
}

func memoryResults() []*memorydomain.SimilarityResult {
	return []*memorydomain.SimilarityResult{
		{
			Diary: &memorydomain.DiaryEntry{
				ID:    uuid.New(),
				Title: "初雪",
				Date:  time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			},
			Similarity: 0.9,
		},
	}
}

func TestChatService_Reply(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()

	t.Run("本人との対話は自己ペルソナプロンプトを使う", func(t *testing.T) {
		retriever := &stubRetriever{results: memoryResults()}
		assembler := &stubAssembler{block: "- [2024-01-15] 初雪"}
		llm := &stubLLM{resp: llmdomain.CompletionResponse{Content: "雪の日のこと、覚えてるよ"}}

		svc := NewChatService(retriever, assembler, &stubPreferences{}, llm, memorydomain.ContextLevelStandard)

		reply, err := svc.Reply(ctx, ReplyInput{
			Persona:     testPersona("ハナ"),
			OwnerID:     ownerID,
			RequesterID: ownerID,
			Message:     "雪の日のことを覚えてる?",
		})
		require.NoError(t, err)
		assert.Equal(t, "雪の日のこと、覚えてるよ", reply)

		assert.True(t, assembler.lastIsOwner)
		assert.Contains(t, llm.lastReq.SystemPrompt, "内面の声")
		assert.Contains(t, llm.lastReq.SystemPrompt, "- [2024-01-15] 初雪")
		assert.Equal(t, "雪の日のことを覚えてる?", llm.lastReq.UserPrompt)
	})

	t.Run("友人との対話は友人ペルソナプロンプトを使う", func(t *testing.T) {
		retriever := &stubRetriever{results: memoryResults()}
		assembler := &stubAssembler{block: "memory"}
		llm := &stubLLM{resp: llmdomain.CompletionResponse{Content: "たぶんそうだと思う"}}

		svc := NewChatService(retriever, assembler, &stubPreferences{}, llm, memorydomain.ContextLevelStandard)

		_, err := svc.Reply(ctx, ReplyInput{
			Persona:       testPersona("ハナ"),
			OwnerID:       ownerID,
			RequesterID:   uuid.New(),
			RequesterName: "タロウ",
			Message:       "ハナは何が好き?",
		})
		require.NoError(t, err)

		assert.False(t, assembler.lastIsOwner)
		assert.Contains(t, llm.lastReq.SystemPrompt, "実際のハナさんではありません")
		assert.Contains(t, llm.lastReq.SystemPrompt, "対話相手: タロウさん")
	})

	t.Run("検索クエリはユーザーメッセージそのもの", func(t *testing.T) {
		retriever := &stubRetriever{}
		svc := NewChatService(retriever, &stubAssembler{}, &stubPreferences{}, &stubLLM{}, memorydomain.ContextLevelStandard)

		_, err := svc.Reply(ctx, ReplyInput{
			Persona:     testPersona("ハナ"),
			OwnerID:     ownerID,
			RequesterID: ownerID,
			Message:     "最近の楽しかったこと",
		})
		require.NoError(t, err)
		assert.Equal(t, "最近の楽しかったこと", retriever.lastQuery)
		assert.Equal(t, ownerID, retriever.lastOwner)
	})

	t.Run("設定されたContextLevelがアセンブラに渡る", func(t *testing.T) {
		assembler := &stubAssembler{}
		prefs := &stubPreferences{level: strPtr("detailed")}
		svc := NewChatService(&stubRetriever{}, assembler, prefs, &stubLLM{}, memorydomain.ContextLevelStandard)

		_, err := svc.Reply(ctx, ReplyInput{Persona: testPersona("ハナ"), OwnerID: ownerID, RequesterID: ownerID, Message: "m"})
		require.NoError(t, err)
		assert.Equal(t, memorydomain.ContextLevelDetailed, assembler.lastLevel)
	})

	t.Run("設定未登録ならデフォルトレベル", func(t *testing.T) {
		assembler := &stubAssembler{}
		svc := NewChatService(&stubRetriever{}, assembler, &stubPreferences{}, &stubLLM{}, memorydomain.ContextLevelStandard)

		_, err := svc.Reply(ctx, ReplyInput{Persona: testPersona("ハナ"), OwnerID: ownerID, RequesterID: ownerID, Message: "m"})
		require.NoError(t, err)
		assert.Equal(t, memorydomain.ContextLevelStandard, assembler.lastLevel)
	})

	t.Run("設定の読み取り失敗はデフォルトレベルに落ちる", func(t *testing.T) {
		assembler := &stubAssembler{}
		prefs := &stubPreferences{err: errors.New("db down")}
		svc := NewChatService(&stubRetriever{}, assembler, prefs, &stubLLM{}, memorydomain.ContextLevelMinimal)

		_, err := svc.Reply(ctx, ReplyInput{Persona: testPersona("ハナ"), OwnerID: ownerID, RequesterID: ownerID, Message: "m"})
		require.NoError(t, err)
		assert.Equal(t, memorydomain.ContextLevelMinimal, assembler.lastLevel)
	})

	t.Run("不正な設定値はデフォルトレベルに落ちる", func(t *testing.T) {
		assembler := &stubAssembler{}
		prefs := &stubPreferences{level: strPtr("everything")}
		svc := NewChatService(&stubRetriever{}, assembler, prefs, &stubLLM{}, memorydomain.ContextLevelStandard)

		_, err := svc.Reply(ctx, ReplyInput{Persona: testPersona("ハナ"), OwnerID: ownerID, RequesterID: ownerID, Message: "m"})
		require.NoError(t, err)
		assert.Equal(t, memorydomain.ContextLevelStandard, assembler.lastLevel)
	})

	t.Run("LLMの失敗はエラーとして返す", func(t *testing.T) {
		llm := &stubLLM{err: errors.New("rate limited")}
		svc := NewChatService(&stubRetriever{}, &stubAssembler{}, &stubPreferences{}, llm, memorydomain.ContextLevelStandard)

		_, err := svc.Reply(ctx, ReplyInput{Persona: testPersona("ハナ"), OwnerID: ownerID, RequesterID: ownerID, Message: "m"})
		assert.Error(t, err)
	})

	t.Run("会話履歴がLLMへ引き継がれる", func(t *testing.T) {
		llm := &stubLLM{}
		svc := NewChatService(&stubRetriever{}, &stubAssembler{}, &stubPreferences{}, llm, memorydomain.ContextLevelStandard)

		history := []llmdomain.Message{
			{Role: "user", Content: "こんにちは"},
			{Role: "assistant", Content: "こんにちは!"},
		}

		_, err := svc.Reply(ctx, ReplyInput{Persona: testPersona("ハナ"), OwnerID: ownerID, RequesterID: ownerID, Message: "m", History: history})
		require.NoError(t, err)
		assert.Equal(t, history, llm.lastReq.History)
	})
}

func TestPersonaProfile_DisplayName(t *testing.T) {
	assert.Equal(t, "ユキ", PersonaProfile{Name: "ユキ", OwnerName: "ハナ"}.DisplayName())
	assert.Equal(t, "ハナの分身", PersonaProfile{OwnerName: "ハナ"}.DisplayName())
}

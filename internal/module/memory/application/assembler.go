package application

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jinford/dearme-rag/internal/module/memory/domain"
)

// NoMemorySentinel は関連する記憶が1件もないときにコンテキストブロックの
// 代わりに返される固定文字列です。プロンプトテンプレート側はこの文字列に
// 依存するため変更しないこと
const NoMemorySentinel = "(関連する日記の記憶はありません)"

// TokenCounter はテキストのトークン数を数えるポートです
type TokenCounter interface {
	Count(text string) (int, error)
}

// ContextAssembler は検索結果をLLMプロンプトに埋め込むテキストブロックへ
// 整形します。詳細度はContextLevelで制御され、所有者以外からの参照では
// detailedはstandardへ強制的に引き下げられます
type ContextAssembler struct {
	excerptRunes int
	tokenBudget  int
	counter      TokenCounter
	logger       *slog.Logger
}

// ContextAssemblerOption はContextAssembler構築時のオプション
type ContextAssemblerOption func(*ContextAssembler)

// WithTokenBudget はコンテキストブロックのトークン上限を設定する。
// 0以下で無制限
func WithTokenBudget(budget int, counter TokenCounter) ContextAssemblerOption {
	return func(a *ContextAssembler) {
		a.tokenBudget = budget
		a.counter = counter
	}
}

// WithAssemblerLogger はContextAssemblerにロガーを設定する
func WithAssemblerLogger(logger *slog.Logger) ContextAssemblerOption {
	return func(a *ContextAssembler) {
		a.logger = logger
	}
}

// NewContextAssembler は新しいContextAssemblerを作成します。
// excerptRunesはdetailedで本文から切り出す最大文字数（ルーン単位）
func NewContextAssembler(excerptRunes int, opts ...ContextAssemblerOption) *ContextAssembler {
	asm := &ContextAssembler{
		excerptRunes: excerptRunes,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(asm)
	}

	return asm
}

// Assemble は検索結果を1つのコンテキストブロックへ整形します。
// resultsが空の場合は NoMemorySentinel を返します。
// isOwnerがfalseの場合、detailedはstandardとして扱われます
func (a *ContextAssembler) Assemble(results []*domain.SimilarityResult, level domain.ContextLevel, isOwner bool) string {
	if len(results) == 0 {
		return NoMemorySentinel
	}

	if level == domain.ContextLevelDetailed && !isOwner {
		a.logger.Debug("context level downgraded for non-owner access")
		level = domain.ContextLevelStandard
	}

	entries := make([]string, 0, len(results))
	for _, result := range results {
		entries = append(entries, a.renderEntry(result, level))
	}

	block := a.render(entries)

	if a.tokenBudget > 0 && a.counter != nil {
		block = a.trimToBudget(block, entries)
	}

	return block
}

func (a *ContextAssembler) render(entries []string) string {
	var b strings.Builder
	b.WriteString("以下はユーザーの過去の日記から検索された関連する記憶です:\n")
	for _, entry := range entries {
		b.WriteString(entry)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderEntry は1件の検索結果をContextLevelに応じた行に整形します
func (a *ContextAssembler) renderEntry(result *domain.SimilarityResult, level domain.ContextLevel) string {
	diary := result.Diary
	date := diary.Date.Format("2006-01-02")

	var b strings.Builder
	fmt.Fprintf(&b, "- [%s] %s", date, diary.Title)

	if level == domain.ContextLevelMinimal {
		return b.String()
	}

	if diary.Mood != nil && *diary.Mood != "" {
		fmt.Fprintf(&b, "\n  気分: %s", *diary.Mood)
	}

	if level == domain.ContextLevelDetailed {
		fmt.Fprintf(&b, "\n  本文: %s", excerpt(diary.Content, a.excerptRunes))
	}

	return b.String()
}

// trimToBudget はブロックがトークン予算を超える場合、類似度の低い側から
// エントリを落として収めます。トークン計測に失敗した場合は予算を無効化し、
// ブロック全体をそのまま返します
func (a *ContextAssembler) trimToBudget(block string, entries []string) string {
	for len(entries) > 0 {
		tokens, err := a.counter.Count(block)
		if err != nil {
			a.logger.Warn("token counting failed, budget disabled", "error", err)
			return block
		}
		if tokens <= a.tokenBudget {
			return block
		}
		entries = entries[:len(entries)-1]
		if len(entries) == 0 {
			break
		}
		block = a.render(entries)
	}

	a.logger.Warn("context block exceeds token budget even with a single entry")
	return block
}

// excerpt は本文の先頭maxRunes文字を切り出します。
// 切り捨てが発生した場合は末尾に「…」を付けます
func excerpt(content string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(content)
	if len(runes) <= maxRunes {
		return content
	}
	return string(runes[:maxRunes]) + "…"
}

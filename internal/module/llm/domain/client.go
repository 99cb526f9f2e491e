package domain

import "context"

// Message はチャット履歴の1メッセージを表す
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// CompletionRequest はテキスト生成のリクエスト
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	History      []Message
	Temperature  float64
	MaxTokens    int
}

// CompletionResponse はテキスト生成のレスポンス
type CompletionResponse struct {
	Content    string
	TokensUsed int
	Model      string
}

// Client はテキスト生成コラボレータへのインターフェース。
// プロンプトを受け取りテキストを返す不透明な外部協調者として扱う
type Client interface {
	GenerateCompletion(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

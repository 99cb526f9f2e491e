package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Database設定
	Database DatabaseConfig

	// OpenAI設定（Embeddings + チャット応答）
	OpenAI OpenAIConfig

	// 記憶検索（RAG）設定
	Memory MemoryConfig
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// OpenAIConfig はOpenAI API設定
type OpenAIConfig struct {
	APIKey         string
	EmbeddingModel string
	ChatModel      string
}

// MemoryConfig は日記記憶検索サブシステムの設定
type MemoryConfig struct {
	// EmbeddingDimension はベクトル次元数。スキーマの vector(D) と一致する必要がある
	EmbeddingDimension int
	// TopK は検索結果の最大件数デフォルト
	TopK int
	// SimilarityThreshold は最小コサイン類似度デフォルト
	SimilarityThreshold float64
	// ExcerptRunes は detailed ティアの本文抜粋長（rune数）
	ExcerptRunes int
	// ContextTokenBudget はコンテキストブロック全体のトークン上限（0で無効）
	ContextTokenBudget int
	// DefaultContextLevel は users.rag_context_level 未設定時のレベル
	DefaultContextLevel string
	// QueryCacheTTLSeconds はクエリEmbeddingキャッシュのTTL（0でキャッシュ無効）
	QueryCacheTTLSeconds int
	// Workers はバックグラウンドEmbeddingワーカ数
	Workers int
	// QueueSize はバックグラウンドジョブキューの容量
	QueueSize int
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "dearme"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "dearme"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		OpenAI: OpenAIConfig{
			APIKey:         getEnv("OPENAI_API_KEY", ""),
			EmbeddingModel: getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			ChatModel:      getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
		},
		Memory: MemoryConfig{
			EmbeddingDimension:   getEnvAsInt("RAG_EMBEDDING_DIMENSION", 768),
			TopK:                 getEnvAsInt("RAG_TOP_K", 3),
			SimilarityThreshold:  getEnvAsFloat("RAG_SIMILARITY_THRESHOLD", 0.3),
			ExcerptRunes:         getEnvAsInt("RAG_EXCERPT_RUNES", 150),
			ContextTokenBudget:   getEnvAsInt("RAG_CONTEXT_TOKEN_BUDGET", 1200),
			DefaultContextLevel:  getEnv("RAG_DEFAULT_CONTEXT_LEVEL", "standard"),
			QueryCacheTTLSeconds: getEnvAsInt("RAG_QUERY_CACHE_TTL_SECONDS", 60),
			Workers:              getEnvAsInt("RAG_WORKERS", 2),
			QueueSize:            getEnvAsInt("RAG_QUEUE_SIZE", 64),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate は設定値の静的検証を行います。次元数の誤設定は起動時エラーとする
func (c *Config) validate() error {
	if c.Memory.EmbeddingDimension <= 0 {
		return fmt.Errorf("RAG_EMBEDDING_DIMENSION must be positive, got %d", c.Memory.EmbeddingDimension)
	}
	if c.Memory.TopK <= 0 {
		return fmt.Errorf("RAG_TOP_K must be positive, got %d", c.Memory.TopK)
	}
	if c.Memory.SimilarityThreshold < -1 || c.Memory.SimilarityThreshold > 1 {
		return fmt.Errorf("RAG_SIMILARITY_THRESHOLD must be in [-1, 1], got %f", c.Memory.SimilarityThreshold)
	}
	return nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat は環境変数を浮動小数点数として取得します
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

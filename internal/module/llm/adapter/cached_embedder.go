package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/jinford/dearme-rag/internal/module/llm/domain"
)

const (
	// cacheNumCounters はristrettoの頻度カウンタ数（キャッシュ容量の約10倍）
	cacheNumCounters = 10_000

	// cacheMaxCost はキャッシュの最大コスト（ベクトルのバイト数合計）
	cacheMaxCost = 16 << 20 // 16MiB

	// cacheBufferItems はristretto推奨のバッファサイズ
	cacheBufferItems = 64
)

// CachedEmbedder はクエリEmbeddingをTTL付きでキャッシュするデコレータ。
// チャットの連続ターンで同じクエリを再ベクトル化しないために使う。
// 日記本体のEmbeddingは指紋によるスキップがあるためキャッシュ対象にしない
type CachedEmbedder struct {
	inner domain.Embedder
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewCachedEmbedder はEmbedderをキャッシュ付きでラップします
func NewCachedEmbedder(inner domain.Embedder, ttl time.Duration) (*CachedEmbedder, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cacheNumCounters,
		MaxCost:     cacheMaxCost,
		BufferItems: cacheBufferItems,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}

	return &CachedEmbedder{
		inner: inner,
		cache: cache,
		ttl:   ttl,
	}, nil
}

// Embed はキャッシュを確認してからテキストのEmbeddingを生成する
// domain.Embedderインターフェースを実装
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := e.cache.Get(text); ok {
		if vector, ok := cached.([]float32); ok {
			return vector, nil
		}
	}

	vector, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	// コストはベクトルのバイト数（float32 = 4バイト）
	e.cache.SetWithTTL(text, vector, int64(len(vector)*4), e.ttl)

	return vector, nil
}

// Dimension はEmbeddingベクトルの次元数を返す
// domain.Embedderインターフェースを実装
func (e *CachedEmbedder) Dimension() int {
	return e.inner.Dimension()
}

// Wait はキャッシュへの書き込みが反映されるまで待機します（テスト用）
func (e *CachedEmbedder) Wait() {
	e.cache.Wait()
}

// Close はキャッシュのリソースを解放します
func (e *CachedEmbedder) Close() {
	e.cache.Close()
}

// インターフェース実装の確認
var _ domain.Embedder = (*CachedEmbedder)(nil)

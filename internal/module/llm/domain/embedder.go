package domain

import "context"

// Embedder はテキストをベクトル表現に変換するインターフェース。
// 実装はプロセス内で1インスタンスを共有し、初期化後は不変であること
type Embedder interface {
	// Embed はテキストからEmbeddingベクトルを生成する
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension はEmbeddingベクトルの次元数を返す
	Dimension() int
}

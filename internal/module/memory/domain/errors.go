package domain

import "errors"

var (
	// ErrDiaryNotFound は対象の日記が存在しない場合のエラー
	ErrDiaryNotFound = errors.New("diary not found")

	// ErrEmbeddingNotFound は対象のEmbedding行が存在しない場合のエラー
	ErrEmbeddingNotFound = errors.New("diary embedding not found")

	// ErrDimensionMismatch は設定の次元数と保存済みベクトルの次元数が一致しない場合のエラー。
	// 起動時の設定エラーとして扱い、切り詰めやパディングで握り潰してはならない
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

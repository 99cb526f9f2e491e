package domain

import "strings"

// EmbeddingText は日記エントリからEmbedding対象の文字列を決定的に導出します。
// この関数の出力が指紋計算とEmbedding生成の単位になるため、出力形式を変更すると
// 保存済みの全指紋が無効になります。形式はユニットテストで固定されています
func EmbeddingText(diary *DiaryEntry) string {
	parts := []string{diary.Title, diary.Content}
	if diary.Mood != nil && *diary.Mood != "" {
		parts = append(parts, "mood: "+*diary.Mood)
	}
	if diary.Weather != nil && *diary.Weather != "" {
		parts = append(parts, "weather: "+*diary.Weather)
	}
	return strings.Join(parts, " ")
}

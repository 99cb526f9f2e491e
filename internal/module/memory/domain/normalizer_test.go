package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string {
	return &s
}

func TestEmbeddingText(t *testing.T) {
	tests := []struct {
		name  string
		diary *DiaryEntry
		want  string
	}{
		{
			name: "タイトルと本文のみ",
			diary: &DiaryEntry{
				Title:   "散歩",
				Content: "公園まで歩いた",
			},
			want: "散歩 公園まで歩いた",
		},
		{
			name: "気分あり",
			diary: &DiaryEntry{
				Title:   "散歩",
				Content: "公園まで歩いた",
				Mood:    strPtr("happy"),
			},
			want: "散歩 公園まで歩いた mood: happy",
		},
		{
			name: "気分と天気あり",
			diary: &DiaryEntry{
				Title:   "散歩",
				Content: "公園まで歩いた",
				Mood:    strPtr("happy"),
				Weather: strPtr("sunny"),
			},
			want: "散歩 公園まで歩いた mood: happy weather: sunny",
		},
		{
			name: "天気のみ",
			diary: &DiaryEntry{
				Title:   "散歩",
				Content: "公園まで歩いた",
				Weather: strPtr("rainy"),
			},
			want: "散歩 公園まで歩いた weather: rainy",
		},
		{
			name: "空文字のオプション項目は含めない",
			diary: &DiaryEntry{
				Title:   "散歩",
				Content: "公園まで歩いた",
				Mood:    strPtr(""),
				Weather: strPtr(""),
			},
			want: "散歩 公園まで歩いた",
		},
		{
			name: "タイトルも本文も空",
			diary: &DiaryEntry{
				Title:   "",
				Content: "",
			},
			want: " ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EmbeddingText(tt.diary))
		})
	}
}

func TestEmbeddingText_Deterministic(t *testing.T) {
	diary := &DiaryEntry{
		Title:   "雨の日",
		Content: "一日中読書をした",
		Mood:    strPtr("calm"),
		Weather: strPtr("rainy"),
	}

	first := EmbeddingText(diary)
	second := EmbeddingText(diary)

	assert.Equal(t, first, second)
}

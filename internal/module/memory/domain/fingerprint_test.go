package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint(t *testing.T) {
	t.Run("既知の値と一致する", func(t *testing.T) {
		// sha256("hello") の16進表現
		want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
		assert.Equal(t, want, Fingerprint("hello"))
	})

	t.Run("64文字の16進文字列を返す", func(t *testing.T) {
		hash := Fingerprint("散歩 公園まで歩いた mood: happy")
		assert.Len(t, hash, 64)
		assert.Regexp(t, "^[0-9a-f]{64}$", hash)
	})

	t.Run("同じ入力には同じ指紋", func(t *testing.T) {
		assert.Equal(t, Fingerprint("同じテキスト"), Fingerprint("同じテキスト"))
	})

	t.Run("空白1文字の違いでも指紋が変わる", func(t *testing.T) {
		assert.NotEqual(t, Fingerprint("A"), Fingerprint("A "))
	})

	t.Run("空文字列でも指紋を返す", func(t *testing.T) {
		assert.Len(t, Fingerprint(""), 64)
	})
}

func TestParseContextLevel(t *testing.T) {
	tests := []struct {
		input string
		want  ContextLevel
	}{
		{"minimal", ContextLevelMinimal},
		{"standard", ContextLevelStandard},
		{"detailed", ContextLevelDetailed},
		{"", ContextLevelStandard},
		{"unknown", ContextLevelStandard},
		{"DETAILED", ContextLevelStandard},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseContextLevel(tt.input, ContextLevelStandard))
		})
	}
}

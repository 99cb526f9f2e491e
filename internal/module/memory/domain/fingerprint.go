package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint は正規化済みテキストの変更検知用指紋を計算します。
// UTF-8バイト列のSHA-256を小文字16進数64文字で返します。
// アルゴリズムの変更は全コーパスの再Embeddingを要求するため、永続的に固定
func Fingerprint(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Key derives a cache key from the synthesis request. Requests differing in
// any field get distinct keys; rate and pitch are rounded to two decimals so
// float noise does not fragment the cache.
func Key(text, language, voice string, rate, pitch float64) string {
	data := fmt.Sprintf("%s|%s|%s|%.2f|%.2f", text, language, voice, rate, pitch)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:16])
}

package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// Fingerprint derives the cache key for a query. Two requests share an entry
// only when the normalized query text, resolved language, and generation
// model all match.
func Fingerprint(query, langCode, model string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(query))), " ")
	h := sha1.Sum([]byte(normalized + "|" + langCode + "|" + model))
	return "chat:response:" + hex.EncodeToString(h[:])
}

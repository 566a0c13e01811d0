package recommend

import (
	"strconv"
	"strings"
)

// DefaultKeyPrefix namespaces response cache entries.
const DefaultKeyPrefix = "search"

// Normalize maps query text and top_k to the response cache key
// "<prefix>:<lower(trim(text))>:<topK>". Case and surrounding whitespace
// variants of the same text share a key.
func Normalize(prefix, text string, topK int) string {
	normalized := strings.ToLower(strings.TrimSpace(text))

	var b strings.Builder
	b.Grow(len(prefix) + len(normalized) + 8)
	b.WriteString(prefix)
	b.WriteByte(':')
	b.WriteString(normalized)
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(topK))
	return b.String()
}

package probe

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	maxTagKeyBytes   = 256
	maxTagValueBytes = 4 * 1024
)

// toValidUTF8 replaces any invalid byte sequence with the Unicode
// replacement character (spec.md §4.2 "All string fields pass through
// a UTF-8-replacing filter").
func toValidUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "�")
}

// sanitizeTagsInto case-folds tag keys and drops any key/value pair
// that exceeds the configured length caps, appending a warning for each
// drop (spec.md §4.2).
func sanitizeTagsInto(dst map[string]string, src map[string]string, warnings *[]string) {
	for k, v := range src {
		key := strings.ToLower(toValidUTF8(k))
		if len(key) > maxTagKeyBytes {
			*warnings = append(*warnings, fmt.Sprintf("tag key %q exceeds %d bytes, dropped", truncateForLog(key), maxTagKeyBytes))
			continue
		}
		value := toValidUTF8(v)
		if len(value) > maxTagValueBytes {
			*warnings = append(*warnings, fmt.Sprintf("tag %q value exceeds %d bytes, dropped", key, maxTagValueBytes))
			continue
		}
		dst[key] = value
	}
}

func truncateForLog(s string) string {
	if len(s) <= 64 {
		return s
	}
	return s[:64] + "..."
}

package extract

import (
	"encoding/json"
	"time"
)

// getString reads m[key] as a string. Numeric values come back in decimal
// form because LinkedIn sends some ids as bare numbers.
func getString(m map[string]interface{}, key string) string {
	return asString(m[key])
}

// getMap reads m[key] as a nested object. Returns nil when absent, which is
// safe to read from.
func getMap(m map[string]interface{}, key string) map[string]interface{} {
	v, _ := m[key].(map[string]interface{})
	return v
}

// digString walks nested objects and reads the final key as a string.
func digString(m map[string]interface{}, keys ...string) string {
	for _, key := range keys[:len(keys)-1] {
		m = getMap(m, key)
	}
	return getString(m, keys[len(keys)-1])
}

// digNumber walks nested objects and reads the final key as an int64.
func digNumber(m map[string]interface{}, keys ...string) int64 {
	for _, key := range keys[:len(keys)-1] {
		m = getMap(m, key)
	}
	return asInt64(m[keys[len(keys)-1]])
}

func asString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	}
	return ""
}

func asInt64(v interface{}) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int:
		return int64(val)
	case float64:
		return int64(val)
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

// truthy approximates JSON truthiness: absent values, empty strings, empty
// collections, zero, and false are all false.
func truthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case bool:
		return val
	case map[string]interface{}:
		return len(val) > 0
	case []interface{}:
		return len(val) > 0
	case json.Number:
		return val.String() != "" && val.String() != "0"
	case float64:
		return val != 0
	}
	return true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// truncate cuts s to at most n runes. Counting runes keeps multi-byte text
// (post bodies are frequently non-ASCII) from being split mid-character.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// formatTime renders epoch milliseconds as RFC 3339 UTC, or "" for zero.
func formatTime(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

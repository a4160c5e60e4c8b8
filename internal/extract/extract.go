// Package extract locates a usable media reference inside an arbitrarily shaped
// provider response.
package extract

import (
	"regexp"
	"sort"
	"strings"
)

// priorityKeys are probed in order before any other mapping entry.
var priorityKeys = []string{"url", "b64_json", "image", "img", "link", "content", "data"}

var (
	markdownImage = regexp.MustCompile(`(?i)!\[.*?\]\((https?://[^\s"'<>)]+)\)`)
	embeddedURL   = regexp.MustCompile(`(?i)(https?://[^\s"'<>]+)`)
)

// FindMediaURL searches v depth-first and returns the first media URL or data URI.
// v is expected to be a decoded JSON value: nil, bool, float64, string, []any or
// map[string]any. The input is never modified. ok is false when nothing matched.
func FindMediaURL(v any) (url string, ok bool) {
	switch val := v.(type) {
	case string:
		return fromString(val)
	case []any:
		for _, item := range val {
			if found, ok := FindMediaURL(item); ok {
				return found, true
			}
		}
	case map[string]any:
		return fromMap(val)
	}
	return "", false
}

func fromString(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", false
	}
	if m := markdownImage.FindStringSubmatch(trimmed); m != nil {
		return m[1], true
	}
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		if !strings.ContainsAny(trimmed, " \t\r\n") {
			return trimmed, true
		}
	}
	if strings.HasPrefix(lower, "data:image") {
		return trimmed, true
	}
	if m := embeddedURL.FindStringSubmatch(trimmed); m != nil {
		return m[1], true
	}
	return "", false
}

func fromMap(m map[string]any) (string, bool) {
	probed := make(map[string]bool, len(priorityKeys))
	for _, key := range priorityKeys {
		probed[key] = true
		val, exists := m[key]
		if !exists || val == nil {
			continue
		}
		if found, ok := FindMediaURL(val); ok {
			return found, true
		}
	}

	// Remaining keys are visited in sorted order so the result is stable.
	rest := make([]string, 0, len(m))
	for key := range m {
		if !probed[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)

	for _, key := range rest {
		switch m[key].(type) {
		case string, []any, map[string]any:
			if found, ok := FindMediaURL(m[key]); ok {
				return found, true
			}
		}
	}
	return "", false
}

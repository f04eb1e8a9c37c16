// Package textnorm provides the string coercion, cleanup and comparison helpers shared by
// planning, search and narration. Every function here is pure and total.
package textnorm

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DefaultSnippetLimit caps sanitized search snippets.
const DefaultSnippetLimit = 420

var (
	markdownImagePattern = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)
	markdownLinkPattern  = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	htmlTagPattern       = regexp.MustCompile(`<[^>]+>`)
	fencedCodePattern    = regexp.MustCompile("(?s)```.*?```")
	inlineCodePattern    = regexp.MustCompile("`[^`]*`")
	bareURLPattern       = regexp.MustCompile(`\bhttps?://\S+`)
	whitespacePattern    = regexp.MustCompile(`[\s\p{Z}]+`)
	markupSymbolPattern  = regexp.MustCompile(`[#*_>|{}\[\]]`)
	comparePunctPattern  = regexp.MustCompile(`[?.!,]`)
)

// String returns v when it is a string and "" for every other type.
func String(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// CollapseSpaces folds whitespace runs into single spaces and trims the ends.
func CollapseSpaces(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

// Truncate keeps at most n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// Ellipsize truncates s to maxLen runes, replacing the last kept rune with "…" when cut.
func Ellipsize(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return Truncate(s, maxLen-1) + "…"
}

// SanitizeSearchText strips markdown, HTML, code and bare URLs from provider snippets and
// caps the result at maxLen runes. A non-positive maxLen selects DefaultSnippetLimit.
func SanitizeSearchText(text string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultSnippetLimit
	}

	cleaned := markdownImagePattern.ReplaceAllString(text, "${1}")
	cleaned = markdownLinkPattern.ReplaceAllString(cleaned, "${1}")
	cleaned = htmlTagPattern.ReplaceAllString(cleaned, " ")
	cleaned = fencedCodePattern.ReplaceAllString(cleaned, " ")
	cleaned = inlineCodePattern.ReplaceAllString(cleaned, " ")
	cleaned = bareURLPattern.ReplaceAllString(cleaned, " ")
	cleaned = markupSymbolPattern.ReplaceAllString(cleaned, " ")
	cleaned = CollapseSpaces(cleaned)
	if cleaned == "" {
		return ""
	}

	return Ellipsize(cleaned, maxLen)
}

// NormalizeForCompare lowercases s, turns sentence punctuation into spaces and collapses
// whitespace. Two queries that normalize equal are treated as the same query.
func NormalizeForCompare(s string) string {
	lowered := strings.ToLower(s)
	return CollapseSpaces(comparePunctPattern.ReplaceAllString(lowered, " "))
}

// Number converts v the way a loosely typed JSON consumer would: numbers pass through,
// booleans become 0/1, numeric strings are parsed. ok is false for anything else.
func Number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		trimmed := strings.TrimSpace(n)
		if trimmed == "" {
			return 0, true
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Int truncates v toward zero, returning fallback when v is not numeric.
func Int(v any, fallback int) int {
	f, ok := Number(v)
	if !ok {
		return fallback
	}
	return int(math.Trunc(f))
}

// ClampInt coerces v to an int within [min, max]; non-numeric input yields min.
func ClampInt(v any, min, max int) int {
	n := Int(v, min)
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

// Truthy reports whether v would be considered true by a loosely typed consumer.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0 && !math.IsNaN(t)
	case int:
		return t != 0
	case json.Number:
		f, ok := Number(t)
		return ok && f != 0
	default:
		return true
	}
}

// FirstPresent returns the first value in keys that exists in m with a non-nil value.
func FirstPresent(m map[string]any, keys ...string) (any, bool) {
	for _, key := range keys {
		if v, ok := m[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

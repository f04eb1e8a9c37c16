package textnorm

import (
	"regexp"
	"strings"
)

const (
	// DuplicateWindow is how many recent lines a candidate is compared against.
	DuplicateWindow = 6
	// DuplicateThreshold is the Dice coefficient at which two lines count as the same.
	DuplicateThreshold = 0.6
)

var (
	nonWordPattern = regexp.MustCompile(`[^0-9a-z가-힣\s]`)
	anySpace       = regexp.MustCompile(`[\s\p{Z}]+`)
)

// NormalizeForMatch lowercases s and keeps only digits, latin letters, Hangul and spaces.
func NormalizeForMatch(s string) string {
	lowered := strings.ToLower(s)
	lowered = bareURLPattern.ReplaceAllString(lowered, " ")
	lowered = nonWordPattern.ReplaceAllString(lowered, " ")
	return CollapseSpaces(lowered)
}

// Bigrams returns the character bigrams of s after normalization with spaces removed.
// A single remaining character is its own bigram.
func Bigrams(s string) []string {
	src := []rune(anySpace.ReplaceAllString(NormalizeForMatch(s), ""))
	if len(src) == 0 {
		// Symbol-only text still compares equal to itself.
		src = []rune(anySpace.ReplaceAllString(strings.ToLower(s), ""))
	}
	switch len(src) {
	case 0:
		return nil
	case 1:
		return []string{string(src)}
	}
	grams := make([]string, 0, len(src)-1)
	for i := 0; i < len(src)-1; i++ {
		grams = append(grams, string(src[i:i+2]))
	}
	return grams
}

// DiceSimilarity returns the Sørensen–Dice coefficient over the bigram multisets of a and b.
func DiceSimilarity(a, b string) float64 {
	aa := Bigrams(a)
	bb := Bigrams(b)
	if len(aa) == 0 || len(bb) == 0 {
		return 0
	}

	counts := make(map[string]int, len(aa))
	for _, gram := range aa {
		counts[gram]++
	}
	overlap := 0
	for _, gram := range bb {
		if counts[gram] > 0 {
			overlap++
			counts[gram]--
		}
	}
	return float64(2*overlap) / float64(len(aa)+len(bb))
}

// IsNearDuplicate reports whether text is too similar to any of the last DuplicateWindow
// entries of history.
func IsNearDuplicate(text string, history []string) bool {
	recent := history
	if len(recent) > DuplicateWindow {
		recent = recent[len(recent)-DuplicateWindow:]
	}
	for _, prev := range recent {
		if DiceSimilarity(prev, text) >= DuplicateThreshold {
			return true
		}
	}
	return false
}

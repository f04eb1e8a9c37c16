package planner

import (
	"regexp"
	"strings"

	"github.com/scoutline/scoutline/internal/core"
	"github.com/scoutline/scoutline/internal/textnorm"
)

// QueryRound selects the disambiguating suffix used when a rewrite would echo the user.
type QueryRound string

const (
	QueryRoundPrimary  QueryRound = "primary"
	QueryRoundFollowup QueryRound = "followup"
)

func (r QueryRound) suffix() string {
	if r == QueryRoundFollowup {
		return " 심화"
	}
	return " 최신 정보"
}

var (
	quotePattern          = regexp.MustCompile("[“”\"'`]")
	trailingPunctPattern  = regexp.MustCompile(`[?.!]+$`)
	politePhrasePattern   = regexp.MustCompile(`(?i)\b(please|tell me|show me|help me|can you|could you)\b`)
	requestEndingPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(알려줘|알려주세요|찾아줘|검색해줘|정리해줘|요약해줘|설명해줘|만들어줘|추천해줘|해줘|해주세요)$`),
		regexp.MustCompile(`(해줄래|해줄 수 있어|부탁해)$`),
	}
)

// Keywordize turns a conversational request into a keyword-style search phrase by removing
// quotes, trailing punctuation, polite phrasing and request endings.
func Keywordize(text string) string {
	q := textnorm.CollapseSpaces(quotePattern.ReplaceAllString(text, ""))
	q = strings.TrimSpace(trailingPunctPattern.ReplaceAllString(q, ""))
	q = textnorm.CollapseSpaces(politePhrasePattern.ReplaceAllString(q, " "))
	for _, pattern := range requestEndingPatterns {
		q = strings.TrimSpace(pattern.ReplaceAllString(q, ""))
	}
	q = textnorm.CollapseSpaces(q)
	if q == "" {
		return ""
	}
	return strings.TrimSpace(textnorm.Truncate(q, core.MaxQueryLength))
}

// EnforceQueryQuality keywordizes candidate queries, caps them at MaxQueryLength and makes
// sure none of them is just the user's sentence repeated back.
func EnforceQueryQuality(queries []string, userQuery string, round QueryRound, maxQueries int) []string {
	source := NormalizeQueries(queries, maxQueries)
	userNorm := textnorm.NormalizeForCompare(userQuery)

	adjusted := make([]string, 0, len(source))
	for _, query := range source {
		next := Keywordize(query)
		if next == "" || textnorm.NormalizeForCompare(next) == "" {
			next = query
		}

		if textnorm.NormalizeForCompare(next) == userNorm {
			base := Keywordize(userQuery)
			if base == "" {
				base = next
			}
			if textnorm.NormalizeForCompare(base) != userNorm {
				next = base
			} else {
				suffix := round.suffix()
				room := core.MaxQueryLength - len([]rune(suffix))
				next = strings.TrimSpace(textnorm.Truncate(base, room)) + suffix
			}
		}

		adjusted = append(adjusted, strings.TrimSpace(textnorm.Truncate(next, core.MaxQueryLength)))
	}

	return NormalizeQueries(adjusted, maxQueries)
}

package planner

import (
	"regexp"
	"strings"

	"github.com/scoutline/scoutline/internal/core"
)

var noSearchHints = []*regexp.Regexp{
	regexp.MustCompile(`(?i)translate|translation|proofread|rewrite|summarize|summarise|paraphrase`),
	regexp.MustCompile(`(?i)번역|요약|교정|맞춤법|문장 다듬`),
	regexp.MustCompile(`(?i)write a poem|story|creative writing|brainstorm names`),
	regexp.MustCompile(`(?i)시를 써|소설 써|창작|아이디어만`),
}

var searchHints = []*regexp.Regexp{
	regexp.MustCompile(`(?i)latest|today|current|news|price|stock|release|version|update|official docs?`),
	regexp.MustCompile(`(?i)recommend|comparison|compare|vs|best|top \d+`),
	regexp.MustCompile(`(?i)최신|오늘|현재|뉴스|가격|주가|환율|업데이트|버전|공식 문서|추천|비교|리뷰`),
	regexp.MustCompile(`(?i)설치|세팅|가이드|준비물|requirements|prerequisite`),
}

var multiTopicHint = regexp.MustCompile(`(?i)\b(vs|versus|compare|comparison)\b|비교|차이|장단점|및|그리고`)

// HeuristicPlan decides search/no-search from surface cues alone. The result is not yet
// normalized; pass it through NormalizePlan before use.
func HeuristicPlan(userQuery string) core.SearchPlan {
	query := strings.TrimSpace(userQuery)
	if query == "" {
		return core.SearchPlan{Mode: core.SearchModeNone, PrimaryQueries: []string{}, Reason: "Empty query."}
	}

	if matchesAny(noSearchHints, query) && !matchesAny(searchHints, query) {
		return core.SearchPlan{
			Mode:           core.SearchModeNone,
			PrimaryQueries: []string{},
			Reason:         "Heuristic: pure writing/editing request.",
		}
	}

	if multiTopicHint.MatchString(query) {
		return core.SearchPlan{
			ShouldSearch:       true,
			Mode:               core.SearchModeMulti,
			PrimaryQueries:     []string{query},
			PrimaryResultCount: core.PrimaryDefaultMulti,
			Reason:             "Heuristic: likely multi-topic factual request.",
		}
	}

	return core.SearchPlan{
		ShouldSearch:       true,
		Mode:               core.SearchModeSingle,
		PrimaryQueries:     []string{query},
		PrimaryResultCount: core.PrimaryDefaultSingle,
		Reason:             "Heuristic: factual/procedural request; search recommended.",
	}
}

// MergeWithHeuristic substitutes the heuristic plan when a model plan ended up with no
// queries while the heuristic found something worth searching.
func MergeWithHeuristic(modelPlan, heuristic core.SearchPlan) core.SearchPlan {
	if len(modelPlan.PrimaryQueries) > 0 || len(heuristic.PrimaryQueries) == 0 {
		return modelPlan
	}
	merged := heuristic
	merged.PrimaryQueries = append([]string(nil), heuristic.PrimaryQueries...)
	return merged
}

func matchesAny(patterns []*regexp.Regexp, s string) bool {
	for _, pattern := range patterns {
		if pattern.MatchString(s) {
			return true
		}
	}
	return false
}

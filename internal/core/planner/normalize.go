// Package planner turns untrusted planner output into bounded search plans and supplies the
// deterministic fallbacks used when no model is available.
package planner

import (
	"strings"

	"github.com/scoutline/scoutline/internal/core"
	"github.com/scoutline/scoutline/internal/textnorm"
)

// NormalizeQueries trims queries, drops empty ones, removes duplicates that differ only in
// case or spacing, and keeps at most max entries (max <= 0 keeps all).
func NormalizeQueries(raw []string, max int) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, q := range raw {
		trimmed := strings.TrimSpace(q)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(textnorm.CollapseSpaces(trimmed))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}

// NormalizePlan converts raw planner output into a SearchPlan whose mode, queries and result
// count are mutually consistent. It never fails: malformed input degrades to searching for
// the user's own query, or to no search when that query is empty.
func NormalizePlan(raw any, userQuery string) core.SearchPlan {
	safeQuery := strings.TrimSpace(userQuery)

	obj, ok := planObject(raw)
	if !ok {
		if safeQuery == "" {
			return noSearchPlan(core.PlanFallbackReason)
		}
		return core.SearchPlan{
			ShouldSearch:       true,
			Mode:               core.SearchModeSingle,
			PrimaryQueries:     []string{safeQuery},
			PrimaryResultCount: core.PrimaryDefaultSingle,
			Reason:             core.PlanFallbackReason,
		}
	}

	reason := strings.TrimSpace(textnorm.String(obj["reason"]))
	if reason == "" {
		reason = core.PlanFallbackReason
	}

	shouldSearch := textnorm.Truthy(obj["shouldSearch"])
	mode := core.SearchMode(textnorm.String(obj["mode"]))
	if !mode.Valid() {
		mode = core.SearchModeNone
		if shouldSearch {
			mode = core.SearchModeSingle
		}
	}

	queries := NormalizeQueries(stringList(obj["primaryQueries"]), 0)
	if shouldSearch && len(queries) == 0 && safeQuery != "" {
		queries = []string{safeQuery}
	}
	if !shouldSearch || len(queries) == 0 {
		return noSearchPlan(reason)
	}

	if mode == core.SearchModeMulti {
		if len(queries) > core.MaxPrimaryQueries {
			queries = queries[:core.MaxPrimaryQueries]
		}
		if len(queries) < 2 {
			mode = core.SearchModeSingle
		}
	} else {
		queries = queries[:1]
		mode = core.SearchModeSingle
	}

	defaultCount := core.PrimaryDefaultSingle
	if mode == core.SearchModeMulti {
		defaultCount = core.PrimaryDefaultMulti
	}
	count, present := textnorm.FirstPresent(obj, "primaryResultCount", "primaryMaxResults", "resultCount")
	if !present {
		count = defaultCount
	}

	return core.SearchPlan{
		ShouldSearch:       true,
		Mode:               mode,
		PrimaryQueries:     queries,
		PrimaryResultCount: textnorm.ClampInt(count, core.PrimaryMinResults, core.PrimaryMaxResults),
		Reason:             reason,
	}
}

// NormalizeDecision converts raw completeness-check output into a SecondSearchDecision.
// A follow-up round is requested only when at least one refined query survives.
func NormalizeDecision(raw any) core.SecondSearchDecision {
	obj, ok := decisionObject(raw)
	if !ok {
		return core.NoFollowUp()
	}

	var refined []string
	if list, isList := obj["refinedQueries"]; isList && isArray(list) {
		refined = stringList(list)
	} else if single := strings.TrimSpace(textnorm.String(obj["refinedQuery"])); single != "" {
		refined = []string{single}
	}
	for i, q := range refined {
		refined[i] = strings.TrimSpace(textnorm.Truncate(strings.TrimSpace(q), core.MaxQueryLength))
	}
	unique := NormalizeQueries(refined, core.MaxRefinedQueries)

	reason := strings.TrimSpace(textnorm.String(obj["reason"]))
	if reason == "" {
		reason = core.DecisionFallbackReason
	}

	needsMore := textnorm.Truthy(obj["needsMore"]) && len(unique) > 0
	if !needsMore {
		return core.SecondSearchDecision{
			NeedsMore:      false,
			RefinedQueries: []string{},
			Reason:         reason,
		}
	}

	count, present := textnorm.FirstPresent(obj, "additionalResultCount", "additionalMaxResults", "maxResults", "resultCount")
	if !present {
		count = core.FollowupDefaultResult
	}

	return core.SecondSearchDecision{
		NeedsMore:             true,
		RefinedQueries:        unique,
		AdditionalResultCount: textnorm.ClampInt(count, core.FollowupMinResults, core.FollowupMaxResults),
		Reason:                reason,
	}
}

func noSearchPlan(reason string) core.SearchPlan {
	return core.SearchPlan{
		ShouldSearch:       false,
		Mode:               core.SearchModeNone,
		PrimaryQueries:     []string{},
		PrimaryResultCount: core.PrimaryDefaultSingle,
		Reason:             reason,
	}
}

func planObject(raw any) (map[string]any, bool) {
	switch v := raw.(type) {
	case map[string]any:
		return v, v != nil
	case core.SearchPlan:
		return planFields(v), true
	case *core.SearchPlan:
		if v == nil {
			return nil, false
		}
		return planFields(*v), true
	default:
		return nil, false
	}
}

func planFields(p core.SearchPlan) map[string]any {
	queries := make([]any, 0, len(p.PrimaryQueries))
	for _, q := range p.PrimaryQueries {
		queries = append(queries, q)
	}
	fields := map[string]any{
		"shouldSearch":   p.ShouldSearch,
		"mode":           string(p.Mode),
		"primaryQueries": queries,
		"reason":         p.Reason,
	}
	if p.PrimaryResultCount > 0 {
		fields["primaryResultCount"] = p.PrimaryResultCount
	}
	return fields
}

func decisionObject(raw any) (map[string]any, bool) {
	switch v := raw.(type) {
	case map[string]any:
		return v, v != nil
	case core.SecondSearchDecision:
		queries := make([]any, 0, len(v.RefinedQueries))
		for _, q := range v.RefinedQueries {
			queries = append(queries, q)
		}
		fields := map[string]any{
			"needsMore":      v.NeedsMore,
			"refinedQueries": queries,
			"reason":         v.Reason,
		}
		if v.AdditionalResultCount > 0 {
			fields["additionalResultCount"] = v.AdditionalResultCount
		}
		return fields, true
	default:
		return nil, false
	}
}

func isArray(v any) bool {
	switch v.(type) {
	case []any, []string:
		return true
	default:
		return false
	}
}

// QueriesFrom reads a loosely typed JSON list of queries. Non-string items become "".
func QueriesFrom(raw any) []string {
	return stringList(raw)
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...)
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, textnorm.String(item))
		}
		return out
	default:
		return nil
	}
}

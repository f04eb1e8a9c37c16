package engine

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/scoutline/scoutline/internal/core"
	"github.com/scoutline/scoutline/internal/core/planner"
	"github.com/scoutline/scoutline/internal/metrics"
	"github.com/scoutline/scoutline/internal/textnorm"
)

// Prompt slugs used by the orchestrator.
const (
	slugPlanner        = "planner"
	slugQueryOptimizer = "query-optimizer"
	slugSecondSearch   = "second-search"
	slugNarration      = "narration"
	slugThinkingIntro  = "thinking-intro"
	slugFollowUps      = "follow-ups"
)

// Call purposes reported in metrics and logs.
const (
	purposePlanner   = "planner"
	purposeOptimizer = "optimizer"
	purposeDecision  = "decision"
	purposeNarration = "narration"
	purposeIntro     = "intro"
	purposeFollowUps = "follow_ups"
)

const (
	introTopicLength  = 56
	introMaxLines     = 7
	followUpAnswerCap = 900
)

var bulletLinePattern = regexp.MustCompile(`(?m)^-\s`)

// buildPlan decides whether to search. The heuristic plan is authoritative without a
// model and is the fallback whenever the planner call fails.
func (o *Orchestrator) buildPlan(ctx context.Context, userQuery string, messages []core.ChatMessage) core.SearchPlan {
	heuristic := planner.NormalizePlan(planner.HeuristicPlan(userQuery), userQuery)
	if !o.llmConfigured() {
		return heuristic
	}

	raw, err := o.LLM.Structured(ctx, slugPlanner, map[string]string{
		"user_query": userQuery,
		"history":    plannerHistory(messages),
	})
	o.recordCall(purposePlanner, err)
	if err != nil {
		metrics.RecordLLMFallback(purposePlanner)
		return heuristic
	}

	return planner.MergeWithHeuristic(planner.NormalizePlan(raw, userQuery), heuristic)
}

// optimizePlan rewrites the primary queries of a searching plan.
func (o *Orchestrator) optimizePlan(ctx context.Context, userQuery string, plan core.SearchPlan) core.SearchPlan {
	if !plan.ShouldSearch || len(plan.PrimaryQueries) == 0 {
		return plan
	}
	optimized := o.optimizeQueries(ctx, userQuery, plan.PrimaryQueries, planner.QueryRoundPrimary, plan.MaxQueries())
	if len(optimized) == 0 {
		return plan
	}
	return plan.WithQueries(optimized)
}

// optimizeQueries turns candidates into keyword-style search phrases, preferring the
// model's rewrite and falling back to deterministic keyword extraction.
func (o *Orchestrator) optimizeQueries(ctx context.Context, userQuery string, candidates []string, round planner.QueryRound, maxQueries int) []string {
	fallback := planner.NormalizeQueries(candidates, maxQueries)
	qualityFallback := planner.EnforceQueryQuality(fallback, userQuery, round, maxQueries)
	if len(fallback) == 0 || !o.llmConfigured() {
		return qualityFallback
	}

	raw, err := o.LLM.Structured(ctx, slugQueryOptimizer, map[string]string{
		"user_query":  textnorm.Truncate(userQuery, 240),
		"round":       string(round),
		"max_queries": strconv.Itoa(maxQueries),
		"candidates":  strings.Join(fallback, " | "),
	})
	o.recordCall(purposeOptimizer, err, zap.String("round", string(round)))
	if err != nil {
		metrics.RecordLLMFallback(purposeOptimizer)
		return qualityFallback
	}

	optimized := planner.EnforceQueryQuality(planner.QueriesFrom(raw["queries"]), userQuery, round, maxQueries)
	if len(optimized) == 0 {
		metrics.RecordLLMFallback(purposeOptimizer)
		return qualityFallback
	}
	return optimized
}

// decideSecondSearch asks whether round one left major gaps. Refined queries are
// optimized the same way primary queries are.
func (o *Orchestrator) decideSecondSearch(ctx context.Context, userQuery string, plan core.SearchPlan, first []core.SearchRoundEntry) core.SecondSearchDecision {
	if !o.llmConfigured() || len(first) == 0 {
		return core.NoFollowUp()
	}

	raw, err := o.LLM.Structured(ctx, slugSecondSearch, map[string]string{
		"user_query": userQuery,
		"mode":       string(plan.Mode),
		"digest":     decisionDigest(first),
	})
	o.recordCall(purposeDecision, err)
	if err != nil {
		metrics.RecordLLMFallback(purposeDecision)
		return core.NoFollowUp()
	}

	decision := planner.NormalizeDecision(raw)
	if decision.NeedsMore && len(decision.RefinedQueries) > 0 {
		refined := o.optimizeQueries(ctx, userQuery, decision.RefinedQueries, planner.QueryRoundFollowup, core.MaxRefinedQueries)
		if len(refined) > 0 {
			decision.RefinedQueries = refined
		}
	}
	return decision
}

// thinkingIntro writes the opening plan shown in the thinking panel.
func (o *Orchestrator) thinkingIntro(ctx context.Context, userQuery string, plan core.SearchPlan) string {
	fallback := introFallback(userQuery, plan)
	if !o.llmConfigured() {
		return fallback
	}

	mode := string(plan.Mode)
	if mode == "" {
		mode = string(core.SearchModeNone)
	}
	raw, err := o.LLM.Text(ctx, slugThinkingIntro, map[string]string{
		"user_query":    textnorm.Truncate(userQuery, 280),
		"should_search": strconv.FormatBool(plan.ShouldSearch),
		"search_mode":   mode,
		"queries":       textnorm.Truncate(strings.Join(plan.PrimaryQueries, " | "), 220),
	})
	o.recordCall(purposeIntro, err)
	if err != nil {
		metrics.RecordLLMFallback(purposeIntro)
		return fallback
	}

	intro := introLines(raw)
	if intro == "" || !bulletLinePattern.MatchString(intro) {
		metrics.RecordLLMFallback(purposeIntro)
		return fallback
	}
	return intro
}

func introLines(raw string) string {
	lines := make([]string, 0, introMaxLines)
	for _, line := range strings.Split(fencedBlockPattern.ReplaceAllString(raw, ""), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		lines = append(lines, trimmed)
		if len(lines) == introMaxLines {
			break
		}
	}
	return strings.Join(lines, "\n")
}

func introFallback(userQuery string, plan core.SearchPlan) string {
	topic := planner.Keywordize(userQuery)
	if topic == "" {
		topic = textnorm.CollapseSpaces(userQuery)
	}
	if topic == "" {
		topic = "현재 질문"
	}
	topic = strings.TrimSpace(textnorm.Truncate(topic, introTopicLength))

	lines := []string{
		"사용자께서 " + topic + " 관련 답변을 요청하고 있습니다.",
		"답변을 위해 아래 순서로 진행하겠습니다.",
	}
	if plan.ShouldSearch {
		lines = append(lines,
			"- 질문을 검색 단위로 나누어 확인 계획 수립",
			"- 항목별 최신 정보 웹검색",
			"- 확보한 근거를 바탕으로 답변 작성",
			"우선 웹검색으로 최신 정보를 확인하겠습니다.",
		)
	} else {
		lines = append(lines,
			"- 요청 의도와 답변 목적 정리",
			"- 핵심 개념별 설명 흐름 설계",
			"- 바로 활용 가능한 답변 작성",
			"검색 없이 보유 지식을 바탕으로 답변을 준비하겠습니다.",
		)
	}
	return strings.Join(lines, "\n")
}

// followUps proposes next questions based on the finished answer.
func (o *Orchestrator) followUps(ctx context.Context, userQuery, answer string) []string {
	fallback := planner.FollowUpFallback(userQuery)
	if !o.llmConfigured() {
		return fallback
	}

	raw, err := o.LLM.Structured(ctx, slugFollowUps, map[string]string{
		"user_query": textnorm.Truncate(userQuery, 240),
		"answer":     textnorm.Truncate(textnorm.CollapseSpaces(answer), followUpAnswerCap),
	})
	o.recordCall(purposeFollowUps, err)
	if err != nil {
		metrics.RecordLLMFallback(purposeFollowUps)
		return fallback
	}

	questions := planner.NormalizeFollowUps(raw["questions"], userQuery)
	if len(questions) == 0 {
		metrics.RecordLLMFallback(purposeFollowUps)
		return fallback
	}
	return questions
}

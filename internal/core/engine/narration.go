package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/scoutline/scoutline/internal/core"
	"github.com/scoutline/scoutline/internal/metrics"
	"github.com/scoutline/scoutline/internal/textnorm"
)

// Narration stages select the canned fallback sentence and are reported to the model.
const (
	narrateAnalyzeIntent = "analyze_intent"
	narrateDecideSearch  = "decide_search"
	narratePlanQueries   = "plan_queries"
	narrateSearching     = "searching"
	narrateSearchResults = "search_results"
	narrateAnalyzing     = "analyzing"
	narrateSearching2    = "searching_2"
	narrateSynthesize    = "synthesize"
	narrateThinking      = "thinking"
	narrateError         = "error"
)

const (
	narrationHistoryLimit = 12
	narrationPromptLines  = 4
)

var fencedBlockPattern = regexp.MustCompile("(?s)```.*?```")

// narrationFacts carries whatever the current stage knows. Nil pointers are omitted from
// the fact sheet.
type narrationFacts struct {
	Plan        *core.SearchPlan
	Decision    *core.SecondSearchDecision
	SourceCount *int
	MaxResults  *int
	Domains     string
	Round       int
	Error       string
}

// narrationState is the per-turn memory of emitted lines and keys.
type narrationState struct {
	history []string
	emitted map[string]struct{}
}

func newNarrationState() *narrationState {
	return &narrationState{emitted: make(map[string]struct{})}
}

func (s *narrationState) seen(key string) bool {
	_, ok := s.emitted[key]
	return ok
}

func (s *narrationState) record(key, text string) {
	s.history = append(s.history, text)
	if len(s.history) > narrationHistoryLimit {
		s.history = s.history[len(s.history)-narrationHistoryLimit:]
	}
	s.emitted[key] = struct{}{}
}

// narrate emits one thinking line for stage unless key was already narrated this turn or
// the line nearly repeats a recent one.
func (t *turn) narrate(stage, key string, facts narrationFacts) {
	if key == "" {
		key = stage
	}
	if t.narration.seen(key) {
		metrics.RecordNarrationSuppressed("repeat_key")
		return
	}

	text := t.o.narration(t, stage, facts)
	if text == "" {
		return
	}
	if textnorm.IsNearDuplicate(text, t.narration.history) {
		metrics.RecordNarrationSuppressed("near_duplicate")
		return
	}

	t.narration.record(key, text)
	t.send(core.EventThinkingText, text)
}

func (o *Orchestrator) narration(t *turn, stage string, facts narrationFacts) string {
	fallback := fallbackNarration(stage, facts)
	if !o.llmConfigured() {
		return fallback
	}

	raw, err := o.LLM.Text(t.ctx, slugNarration, map[string]string{
		"facts": factSheet(stage, t.userQuery, facts, t.narration.history),
	})
	o.recordCall(purposeNarration, err, zap.String("turn_id", t.id), zap.String("stage", stage))
	if err != nil {
		metrics.RecordLLMFallback(purposeNarration)
		return fallback
	}

	if line := firstLine(raw); line != "" {
		return line
	}
	metrics.RecordLLMFallback(purposeNarration)
	return fallback
}

// factSheet is the model input for narration: one "key: value" pair per line.
func factSheet(stage, userQuery string, facts narrationFacts, previous []string) string {
	lines := []string{
		"stage: " + stage,
		"user_query: " + textnorm.Truncate(userQuery, 240),
	}

	if p := facts.Plan; p != nil {
		lines = append(lines,
			"search_should: "+strconv.FormatBool(p.ShouldSearch),
			"search_mode: "+string(p.Mode),
			"primary_result_count: "+strconv.Itoa(p.PrimaryResultCount),
			"search_reason: "+textnorm.Truncate(p.Reason, 200),
			"primary_queries: "+textnorm.Truncate(strings.Join(p.PrimaryQueries, " | "), 240),
		)
	}

	if d := facts.Decision; d != nil {
		lines = append(lines,
			"needs_more: "+strconv.FormatBool(d.NeedsMore),
			"additional_result_count: "+strconv.Itoa(d.AdditionalResultCount),
			"decision_reason: "+textnorm.Truncate(d.Reason, 200),
		)
	}

	if facts.SourceCount != nil {
		lines = append(lines, "source_count: "+strconv.Itoa(*facts.SourceCount))
	}
	if facts.MaxResults != nil {
		lines = append(lines, "max_results_per_query: "+strconv.Itoa(*facts.MaxResults))
	}
	if facts.Domains != "" {
		lines = append(lines, "top_domains: "+facts.Domains)
	}
	if len(previous) > 0 {
		recent := previous
		if len(recent) > narrationPromptLines {
			recent = recent[len(recent)-narrationPromptLines:]
		}
		lines = append(lines, "previous_lines: "+strings.Join(recent, " || "))
	}
	if facts.Round > 0 {
		lines = append(lines, "round: "+strconv.Itoa(facts.Round))
	}
	if facts.Error != "" {
		lines = append(lines, "error: "+textnorm.Truncate(facts.Error, 200))
	}

	return strings.Join(lines, "\n")
}

// fallbackNarration is the canned sentence for stage.
func fallbackNarration(stage string, facts narrationFacts) string {
	shouldSearch := facts.Plan != nil && facts.Plan.ShouldSearch

	switch stage {
	case narrateAnalyzeIntent:
		return "질문의 핵심 의도를 먼저 정리하고 있습니다."
	case narrateDecideSearch:
		if shouldSearch {
			return "정확한 답변을 위해 최신 정보를 확인할 웹검색이 필요하다고 판단했습니다."
		}
		return "웹검색 없이도 답변 가능한 요청으로 판단했습니다."
	case narratePlanQueries:
		if shouldSearch {
			return "검색에 사용할 쿼리와 확인 순서를 정리하고 있습니다."
		}
		return "검색 단계는 건너뛰고 답변 준비로 바로 넘어갑니다."
	case narrateSearching:
		return "신뢰 가능한 근거를 확보하기 위해 웹검색을 실행하고 있습니다."
	case narrateSearchResults:
		count := 0
		if facts.SourceCount != nil {
			count = *facts.SourceCount
		}
		domains := facts.Domains
		if domains == "" {
			domains = "핵심 도메인"
		}
		return fmt.Sprintf("웹검색 결과에서 출처 %d개를 확보했고 %s를 우선 검토하겠습니다.", count, domains)
	case narrateAnalyzing:
		return "검색 결과를 검토해 누락 정보와 신뢰도를 확인하고 있습니다."
	case narrateSearching2:
		return "누락 정보를 보강하기 위해 추가 웹검색을 실행하고 있습니다."
	case narrateSynthesize:
		return "검색 결과를 바탕으로 답변을 정리하고 있습니다."
	case narrateThinking:
		return "답변 초안을 마무리하고 곧 전달하겠습니다."
	case narrateError:
		msg := facts.Error
		if msg == "" {
			msg = "알 수 없는 오류"
		}
		return "진행 중 오류가 발생했습니다: " + msg
	default:
		return "응답 준비를 진행하고 있습니다."
	}
}

// firstLine drops fenced code and returns the first non-blank line of raw.
func firstLine(raw string) string {
	for _, line := range strings.Split(fencedBlockPattern.ReplaceAllString(raw, ""), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

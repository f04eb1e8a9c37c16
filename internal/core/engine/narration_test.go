package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scoutline/scoutline/internal/core"
)

func TestFactSheet(t *testing.T) {
	plan := core.SearchPlan{
		ShouldSearch:       true,
		Mode:               core.SearchModeMulti,
		PrimaryQueries:     []string{"go 1.25 release", "go generics"},
		PrimaryResultCount: 4,
		Reason:             "fresh facts",
	}
	sources := 7
	sheet := factSheet("search_results", "Go 뉴스", narrationFacts{
		Plan:        &plan,
		SourceCount: &sources,
		MaxResults:  intPtr(4),
		Domains:     "go.dev, github.com",
		Round:       1,
	}, []string{"a", "b", "c", "d", "e"})

	require.Equal(t, strings.Join([]string{
		"stage: search_results",
		"user_query: Go 뉴스",
		"search_should: true",
		"search_mode: multi",
		"primary_result_count: 4",
		"search_reason: fresh facts",
		"primary_queries: go 1.25 release | go generics",
		"source_count: 7",
		"max_results_per_query: 4",
		"top_domains: go.dev, github.com",
		"previous_lines: b || c || d || e",
		"round: 1",
	}, "\n"), sheet)

	minimal := factSheet("error", strings.Repeat("가", 300), narrationFacts{Error: "boom"}, nil)
	require.Equal(t, "stage: error\nuser_query: "+strings.Repeat("가", 240)+"\nerror: boom", minimal)
}

func TestFallbackNarration(t *testing.T) {
	searching := &core.SearchPlan{ShouldSearch: true}
	sources := 6

	require.Equal(t, "정확한 답변을 위해 최신 정보를 확인할 웹검색이 필요하다고 판단했습니다.",
		fallbackNarration(narrateDecideSearch, narrationFacts{Plan: searching}))
	require.Equal(t, "웹검색 없이도 답변 가능한 요청으로 판단했습니다.",
		fallbackNarration(narrateDecideSearch, narrationFacts{}))
	require.Equal(t, "검색 단계는 건너뛰고 답변 준비로 바로 넘어갑니다.",
		fallbackNarration(narratePlanQueries, narrationFacts{}))
	require.Equal(t, "웹검색 결과에서 출처 6개를 확보했고 go.dev를 우선 검토하겠습니다.",
		fallbackNarration(narrateSearchResults, narrationFacts{SourceCount: &sources, Domains: "go.dev"}))
	require.Equal(t, "웹검색 결과에서 출처 0개를 확보했고 핵심 도메인를 우선 검토하겠습니다.",
		fallbackNarration(narrateSearchResults, narrationFacts{}))
	require.Equal(t, "진행 중 오류가 발생했습니다: 알 수 없는 오류",
		fallbackNarration(narrateError, narrationFacts{}))
	require.Equal(t, "응답 준비를 진행하고 있습니다.", fallbackNarration("mystery", narrationFacts{}))
}

func TestFirstLine(t *testing.T) {
	require.Equal(t, "첫 문장입니다.", firstLine("\n\n  첫 문장입니다.  \n둘째"))
	require.Equal(t, "after", firstLine("```json\n{\"x\":1}\n```\nafter"))
	require.Equal(t, "", firstLine("```only```\n   "))
}

func TestNarrateSkipsRepeatedKeysAndNearDuplicates(t *testing.T) {
	llm := &fakeLLM{text: func(string, map[string]string) (string, error) {
		return "", errors.New("timeout")
	}}
	out := &recordingEmitter{}
	tr := &turn{
		o:         &Orchestrator{LLM: llm},
		ctx:       context.Background(),
		out:       out,
		userQuery: "q",
		narration: newNarrationState(),
	}

	tr.narrate(narrateAnalyzeIntent, "", narrationFacts{})
	tr.narrate(narrateAnalyzeIntent, "", narrationFacts{})
	tr.narrate(narrateSearchResults, roundResultsKey(1), narrationFacts{SourceCount: intPtr(3), Domains: "a.com"})
	tr.narrate(narrateSearchResults, roundResultsKey(2), narrationFacts{SourceCount: intPtr(9), Domains: "b.org, c.net"})

	thinking := out.ofType(core.EventThinkingText)
	require.Len(t, thinking, 2)
	require.Equal(t, "질문의 핵심 의도를 먼저 정리하고 있습니다.", thinking[0].Data)
	require.Equal(t, "웹검색 결과에서 출처 3개를 확보했고 a.com를 우선 검토하겠습니다.", thinking[1].Data)
	require.Len(t, tr.narration.history, 2)
	require.False(t, tr.narration.seen(roundResultsKey(2)))
}

func TestNarrationHistoryIsBounded(t *testing.T) {
	s := newNarrationState()
	for i := 0; i < 20; i++ {
		s.record(string(rune('a'+i)), string(rune('a'+i)))
	}
	require.Len(t, s.history, narrationHistoryLimit)
	require.Equal(t, "t", s.history[len(s.history)-1])
	require.True(t, s.seen("a"))
}

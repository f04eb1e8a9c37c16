package engine

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scoutline/scoutline/internal/ailink/content"
	"github.com/scoutline/scoutline/internal/ailink/driver"
	"github.com/scoutline/scoutline/internal/core"
	"github.com/scoutline/scoutline/internal/core/search"
)

type event struct {
	Type string
	Data any
}

type recordingEmitter struct {
	events []event
	done   int
}

func (r *recordingEmitter) Send(eventType string, data any) error {
	r.events = append(r.events, event{Type: eventType, Data: data})
	return nil
}

func (r *recordingEmitter) Done() error {
	r.done++
	return nil
}

func (r *recordingEmitter) ofType(t core.EventType) []event {
	var out []event
	for _, e := range r.events {
		if e.Type == string(t) {
			out = append(out, e)
		}
	}
	return out
}

func (r *recordingEmitter) statuses() []string {
	var out []string
	for _, e := range r.ofType(core.EventStatus) {
		out = append(out, e.Data.(string))
	}
	return out
}

func (r *recordingEmitter) content() string {
	var b strings.Builder
	for _, e := range r.ofType(core.EventContent) {
		b.WriteString(e.Data.(string))
	}
	return b.String()
}

func (r *recordingEmitter) indexOf(t core.EventType) int {
	for i, e := range r.events {
		if e.Type == string(t) {
			return i
		}
	}
	return -1
}

type sliceStream struct {
	deltas []string
	err    error
	pos    int
}

func (s *sliceStream) Recv() (string, error) {
	if s.pos < len(s.deltas) {
		s.pos++
		return s.deltas[s.pos-1], nil
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

func (s *sliceStream) Close() error { return nil }

// skippingStream reports malformed frames dropped by the decoder.
type skippingStream struct {
	sliceStream
	skipped int
}

func (s *skippingStream) Skipped() int { return s.skipped }

type fakeLLM struct {
	mu         sync.Mutex
	structured map[string]func(vars map[string]string) (map[string]any, error)
	text       func(slug string, vars map[string]string) (string, error)
	stream     func() (driver.Stream, error)
	calls      []string
	history    []content.Message
	evidence   string
}

func (f *fakeLLM) Configured() bool { return true }

func (f *fakeLLM) Structured(_ context.Context, slug string, vars map[string]string) (map[string]any, error) {
	f.record(slug)
	if fn, ok := f.structured[slug]; ok {
		return fn(vars)
	}
	return nil, errors.New("no structured fake for " + slug)
}

func (f *fakeLLM) Text(_ context.Context, slug string, vars map[string]string) (string, error) {
	f.record(slug)
	if f.text != nil {
		return f.text(slug, vars)
	}
	return "", errors.New("no text fake")
}

func (f *fakeLLM) StreamAnswer(_ context.Context, evidence string, history []content.Message) (driver.Stream, error) {
	f.record("answer")
	f.evidence = evidence
	f.history = history
	if f.stream != nil {
		return f.stream()
	}
	return &sliceStream{deltas: []string{"ok"}}, nil
}

func (f *fakeLLM) record(slug string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, slug)
}

func (f *fakeLLM) called(slug string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == slug {
			return true
		}
	}
	return false
}

type fakeSearcher struct {
	mu    sync.Mutex
	fail  map[string]bool
	seen  map[string]int
	calls int
}

func (f *fakeSearcher) Search(_ context.Context, query string, maxResults int) (*core.SearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.seen == nil {
		f.seen = make(map[string]int)
	}
	f.seen[query] = maxResults
	if f.fail[query] {
		return nil, errors.New("Tavily API error: 502")
	}
	return &core.SearchResponse{
		Answer: "answer: " + query,
		Results: []core.SearchResult{
			{Title: query + " one", URL: "https://" + strings.ReplaceAll(query, " ", "-") + ".example.com/a", Content: "snippet"},
		},
	}, nil
}

func userTurn(text string) []core.ChatMessage {
	return []core.ChatMessage{{Role: core.RoleUser, Content: text}}
}

func multiPlanLLM() *fakeLLM {
	return &fakeLLM{
		structured: map[string]func(map[string]string) (map[string]any, error){
			slugPlanner: func(map[string]string) (map[string]any, error) {
				return map[string]any{
					"shouldSearch":       true,
					"mode":               "multi",
					"primaryQueries":     []any{"alpha news", "beta news", "gamma news"},
					"primaryResultCount": 4.0,
					"reason":             "three topics",
				}, nil
			},
			slugSecondSearch: func(map[string]string) (map[string]any, error) {
				return map[string]any{"needsMore": false, "refinedQueries": []any{}, "reason": "enough"}, nil
			},
			slugFollowUps: func(map[string]string) (map[string]any, error) {
				return map[string]any{"questions": []any{"alpha 일정은 어떻게 되나요?", "beta 영향은?"}}, nil
			},
		},
		stream: func() (driver.Stream, error) {
			return &sliceStream{deltas: []string{"Hel", "", "lo"}}, nil
		},
	}
}

func TestValidateMessages(t *testing.T) {
	require.ErrorIs(t, ValidateMessages(nil), ErrMessagesRequired)
	require.ErrorIs(t, ValidateMessages([]core.ChatMessage{
		{Role: core.RoleUser, Content: "hi"},
		{Role: core.RoleAssistant, Content: "hello"},
	}), ErrLastMessageNotUser)
	require.NoError(t, ValidateMessages(userTurn("hi")))

	out := &recordingEmitter{}
	_, err := (&Orchestrator{}).Run(context.Background(), nil, out)
	require.ErrorIs(t, err, ErrMessagesRequired)
	require.Empty(t, out.events)
	require.Zero(t, out.done)
}

func TestRunWithoutModelOrSearchKey(t *testing.T) {
	query := "파이썬 리스트와 튜플의 차이를 알려줘"
	out := &recordingEmitter{}
	o := &Orchestrator{Searcher: &search.TavilyClient{}}

	outcome, err := o.Run(context.Background(), userTurn(query), out)
	require.NoError(t, err)

	require.Equal(t, []string{
		"analyze_intent", "decide_search", "plan_queries", "search_skipped",
		"synthesize", "thinking", "streaming",
	}, out.statuses())
	require.Equal(t, string(core.EventStatus), out.events[0].Type)
	require.Equal(t, "analyze_intent", out.events[0].Data)

	require.True(t, outcome.Plan.ShouldSearch)
	failures := out.ofType(core.EventSearchError)
	require.Len(t, failures, 1)
	failure := failures[0].Data.(core.SearchFailure)
	require.Equal(t, 1, failure.Round)
	require.Equal(t, MissingSearchKeyMessage, failure.Error)
	require.Equal(t, outcome.Plan.PrimaryQueries[0], failure.Query)

	require.NotEmpty(t, out.content())
	require.True(t, outcome.Degraded)

	followUps := out.ofType(core.EventFollowUps)
	require.Len(t, followUps, 1)
	questions := followUps[0].Data.([]string)
	require.NotEmpty(t, questions)
	require.LessOrEqual(t, len(questions), 3)
	for _, q := range questions {
		require.NotEmpty(t, q)
		require.NotEqual(t, query, q)
	}

	require.Equal(t, string(core.EventFollowUps), out.events[len(out.events)-1].Type)
	require.Equal(t, 1, out.done)

	thinking := out.ofType(core.EventThinkingText)
	require.NotEmpty(t, thinking)
	require.Equal(t, "질문의 핵심 의도를 먼저 정리하고 있습니다.", thinking[0].Data)
	require.Len(t, out.ofType(core.EventThinkingIntro), 1)
}

func TestRunNoSearchRequestSkipsSearchWithoutError(t *testing.T) {
	out := &recordingEmitter{}
	searcher := &fakeSearcher{}
	o := &Orchestrator{Searcher: searcher}

	outcome, err := o.Run(context.Background(), userTurn("이 문장 번역해줘: Hello world"), out)
	require.NoError(t, err)

	require.False(t, outcome.Plan.ShouldSearch)
	require.Equal(t, core.SearchModeNone, outcome.Plan.Mode)
	require.Contains(t, out.statuses(), "search_skipped")
	require.Empty(t, out.ofType(core.EventSearchError))
	require.Zero(t, searcher.calls)

	intro := out.ofType(core.EventThinkingIntro)[0].Data.(string)
	require.True(t, strings.HasSuffix(intro, "검색 없이 보유 지식을 바탕으로 답변을 준비하겠습니다."))
}

func TestRunPartialSearchFailure(t *testing.T) {
	llm := multiPlanLLM()
	searcher := &fakeSearcher{fail: map[string]bool{"beta news": true}}
	out := &recordingEmitter{}
	o := &Orchestrator{LLM: llm, Searcher: searcher}

	outcome, err := o.Run(context.Background(), userTurn("alpha beta gamma 비교"), out)
	require.NoError(t, err)

	searches := out.ofType(core.EventSearch)
	require.Len(t, searches, 2)
	require.Equal(t, "alpha news", searches[0].Data.(core.SearchRoundEntry).Query)
	require.Equal(t, "gamma news", searches[1].Data.(core.SearchRoundEntry).Query)

	errs := out.ofType(core.EventSearchError)
	require.Len(t, errs, 1)
	require.Equal(t, "beta news", errs[0].Data.(core.SearchFailure).Query)
	require.Equal(t, 1, errs[0].Data.(core.SearchFailure).Round)

	require.Len(t, outcome.Entries, 2)
	require.Equal(t, 4, searcher.seen["alpha news"])
	require.Contains(t, out.statuses(), "synthesize")
	require.Equal(t, "Hello", out.content())
	require.Equal(t, "Hello", outcome.Answer)
	require.False(t, outcome.Degraded)

	require.Contains(t, llm.evidence, "Search block 1")
	require.Contains(t, llm.evidence, "Query: gamma news")
	require.NotContains(t, llm.evidence, "beta news one")

	require.NotNil(t, outcome.Decision)
	require.False(t, outcome.Decision.NeedsMore)
	require.NotContains(t, out.statuses(), "searching_2")
	require.Equal(t, []string{"alpha 일정은 어떻게 되나요?", "beta 영향은?"}, outcome.FollowUps)
}

func TestRunSecondRound(t *testing.T) {
	llm := multiPlanLLM()
	llm.structured[slugSecondSearch] = func(vars map[string]string) (map[string]any, error) {
		require.Contains(t, vars["digest"], "[Primary #1] query=alpha news")
		return map[string]any{
			"needsMore":             true,
			"refinedQueries":        []any{"delta specs", "delta specs"},
			"additionalResultCount": 12.0,
			"reason":                "missing specs",
		}, nil
	}
	searcher := &fakeSearcher{}
	out := &recordingEmitter{}
	o := &Orchestrator{LLM: llm, Searcher: searcher}

	outcome, err := o.Run(context.Background(), userTurn("alpha beta gamma 비교"), out)
	require.NoError(t, err)

	require.Equal(t, []string{
		"analyze_intent", "decide_search", "plan_queries", "searching", "analyzing",
		"searching_2", "synthesize", "thinking", "streaming",
	}, out.statuses())

	decisionIdx := out.indexOf(core.EventSearchDecision)
	require.Greater(t, decisionIdx, 0)
	decision := out.events[decisionIdx].Data.(core.SecondSearchDecision)
	require.True(t, decision.NeedsMore)
	require.Equal(t, []string{"delta specs"}, decision.RefinedQueries)

	require.Len(t, outcome.Entries, 4)
	last := outcome.Entries[3]
	require.Equal(t, 2, last.Round)
	require.Equal(t, 12, last.MaxResults)
	require.Equal(t, 12, searcher.seen["delta specs"])
}

func TestRunEmptyFirstRoundSkipsDecision(t *testing.T) {
	llm := multiPlanLLM()
	searcher := &fakeSearcher{fail: map[string]bool{"alpha news": true, "beta news": true, "gamma news": true}}
	out := &recordingEmitter{}
	o := &Orchestrator{LLM: llm, Searcher: searcher}

	outcome, err := o.Run(context.Background(), userTurn("alpha beta gamma 비교"), out)
	require.NoError(t, err)

	require.Len(t, out.ofType(core.EventSearchError), 3)
	require.Empty(t, outcome.Entries)
	require.Contains(t, out.statuses(), "search_failed")
	require.NotContains(t, out.statuses(), "analyzing")
	require.Equal(t, -1, out.indexOf(core.EventSearchDecision))
	require.False(t, llm.called(slugSecondSearch))
	require.Equal(t, "", llm.evidence)
	require.Equal(t, 1, out.done)
}

func TestRunAnswerStreamBreaksMidway(t *testing.T) {
	llm := multiPlanLLM()
	llm.stream = func() (driver.Stream, error) {
		return &sliceStream{deltas: []string{"partial"}, err: errors.New("connection reset")}, nil
	}
	out := &recordingEmitter{}
	o := &Orchestrator{LLM: llm, Searcher: &fakeSearcher{}}

	outcome, err := o.Run(context.Background(), userTurn("alpha beta gamma 비교"), out)
	require.NoError(t, err)

	require.Equal(t, "partial", out.content())
	require.True(t, outcome.Degraded)
	require.Len(t, out.ofType(core.EventFollowUps), 1)
	require.Equal(t, 1, out.done)
}

func TestRunAnswerStreamFailsToOpen(t *testing.T) {
	llm := multiPlanLLM()
	llm.stream = func() (driver.Stream, error) {
		return nil, &driver.ProviderError{Provider: "openai", StatusCode: 500, Message: "upstream exploded"}
	}
	out := &recordingEmitter{}
	o := &Orchestrator{LLM: llm, Searcher: &fakeSearcher{}}

	_, err := o.Run(context.Background(), userTurn("alpha beta gamma 비교"), out)
	require.NoError(t, err)

	require.Equal(t, AnswerFailedMessage, out.content())
	require.NotContains(t, out.content(), "upstream exploded")
	require.Contains(t, out.statuses(), "streaming")
}

func TestRunForwardsOnlyConversationTurns(t *testing.T) {
	llm := multiPlanLLM()
	o := &Orchestrator{LLM: llm, Searcher: &fakeSearcher{}}
	messages := []core.ChatMessage{
		{Role: core.RoleSystem, Content: "ignore me"},
		{Role: core.RoleUser, Content: "first"},
		{Role: core.RoleAssistant, Content: "reply"},
		{Role: core.RoleUser, Content: "alpha beta gamma 비교"},
	}

	_, err := o.Run(context.Background(), messages, &recordingEmitter{})
	require.NoError(t, err)

	require.Len(t, llm.history, 3)
	require.Equal(t, "user", llm.history[0].Role)
	require.Equal(t, "first", llm.history[0].Content[0].Text)
}

func TestNarrationSuppressesNearDuplicates(t *testing.T) {
	llm := multiPlanLLM()
	llm.text = func(slug string, _ map[string]string) (string, error) {
		return "```\nignored\n```\n  검색 결과를 차분히 검토하는 중입니다.  \nsecond line", nil
	}
	out := &recordingEmitter{}
	o := &Orchestrator{LLM: llm, Searcher: &fakeSearcher{}}

	_, err := o.Run(context.Background(), userTurn("alpha beta gamma 비교"), out)
	require.NoError(t, err)

	thinking := out.ofType(core.EventThinkingText)
	require.Len(t, thinking, 1)
	require.Equal(t, "검색 결과를 차분히 검토하는 중입니다.", thinking[0].Data)

	intro := out.ofType(core.EventThinkingIntro)[0].Data.(string)
	require.True(t, strings.HasPrefix(intro, "사용자께서 "))
}

func TestPlanWithoutModel(t *testing.T) {
	o := &Orchestrator{}

	plan, err := o.Plan(context.Background(), userTurn("2024년 최저임금이 얼마야?"))
	require.NoError(t, err)
	require.True(t, plan.ShouldSearch)
	require.Len(t, plan.PrimaryQueries, 1)
	require.NotEqual(t, "2024년 최저임금이 얼마야?", plan.PrimaryQueries[0])

	plan, err = o.Plan(context.Background(), userTurn("이 문장 번역해줘: Hello world"))
	require.NoError(t, err)
	require.False(t, plan.ShouldSearch)
	require.Equal(t, core.SearchModeNone, plan.Mode)
	require.Empty(t, plan.PrimaryQueries)
}

func TestPlanFallsBackToHeuristic(t *testing.T) {
	llm := &fakeLLM{structured: map[string]func(map[string]string) (map[string]any, error){
		slugPlanner: func(vars map[string]string) (map[string]any, error) {
			require.Equal(t, "user: 서울 날씨 알려줘", vars["history"])
			return nil, &driver.ProviderError{Provider: "openai", StatusCode: 503}
		},
	}}
	o := &Orchestrator{LLM: llm}

	plan, err := o.Plan(context.Background(), userTurn("서울 날씨 알려줘"))
	require.NoError(t, err)
	require.True(t, plan.ShouldSearch)
	require.Equal(t, []string{"서울 날씨"}, plan.PrimaryQueries)
}

func TestPlanSplicesHeuristicWhenModelPlanIsEmpty(t *testing.T) {
	llm := &fakeLLM{structured: map[string]func(map[string]string) (map[string]any, error){
		slugPlanner: func(map[string]string) (map[string]any, error) {
			return map[string]any{"shouldSearch": false, "mode": "none", "reason": "model says no"}, nil
		},
		slugQueryOptimizer: func(vars map[string]string) (map[string]any, error) {
			require.Equal(t, "primary", vars["round"])
			require.Equal(t, "1", vars["max_queries"])
			return map[string]any{"queries": []any{"최저임금 2024 시급"}}, nil
		},
	}}
	o := &Orchestrator{LLM: llm}

	plan, err := o.Plan(context.Background(), userTurn("2024년 최저임금이 얼마야?"))
	require.NoError(t, err)
	require.True(t, plan.ShouldSearch)
	require.Equal(t, []string{"최저임금 2024 시급"}, plan.PrimaryQueries)
}

func TestRewriteToOneQueryDemotesMultiPlan(t *testing.T) {
	llm := multiPlanLLM()
	llm.structured[slugQueryOptimizer] = func(vars map[string]string) (map[string]any, error) {
		require.Equal(t, "3", vars["max_queries"])
		return map[string]any{"queries": []any{"alpha beta gamma news"}}, nil
	}
	out := &recordingEmitter{}
	o := &Orchestrator{LLM: llm, Searcher: &fakeSearcher{}}

	_, err := o.Run(context.Background(), userTurn("alpha, beta, gamma 소식 알려줘"), out)
	require.NoError(t, err)

	plans := out.ofType(core.EventSearchPlan)
	require.Len(t, plans, 1)
	plan := plans[0].Data.(core.SearchPlan)
	require.Equal(t, core.SearchModeSingle, plan.Mode)
	require.Equal(t, []string{"alpha beta gamma news"}, plan.PrimaryQueries)
	require.Equal(t, 4, plan.PrimaryResultCount)
}

func TestWithQueriesKeepsModeInvariant(t *testing.T) {
	multi := core.SearchPlan{ShouldSearch: true, Mode: core.SearchModeMulti, PrimaryQueries: []string{"a", "b"}, PrimaryResultCount: 4}

	require.Equal(t, core.SearchModeMulti, multi.WithQueries([]string{"x", "y"}).Mode)
	require.Equal(t, core.SearchModeSingle, multi.WithQueries([]string{"x"}).Mode)
	require.Equal(t, core.SearchModeMulti, multi.Mode)
}

func TestOutcomeCountsSkippedStreamFrames(t *testing.T) {
	llm := multiPlanLLM()
	llm.stream = func() (driver.Stream, error) {
		return &skippingStream{sliceStream: sliceStream{deltas: []string{"Hi"}}, skipped: 2}, nil
	}
	o := &Orchestrator{LLM: llm, Searcher: &fakeSearcher{}}

	outcome, err := o.Run(context.Background(), userTurn("alpha, beta, gamma 소식 알려줘"), &recordingEmitter{})
	require.NoError(t, err)
	require.Equal(t, "Hi", outcome.Answer)
	require.Equal(t, 2, outcome.SkippedFrames)

	llm.stream = nil
	outcome, err = o.Run(context.Background(), userTurn("alpha, beta, gamma 소식 알려줘"), &recordingEmitter{})
	require.NoError(t, err)
	require.Zero(t, outcome.SkippedFrames)
}

func TestStatusGuard(t *testing.T) {
	var g statusGuard
	require.True(t, g.advance(core.StageAnalyzeIntent))
	require.False(t, g.advance(core.StageAnalyzeIntent))
	require.True(t, g.advance(core.StageSearching))
	require.False(t, g.advance(core.StagePlanQueries))
	require.True(t, g.advance(core.StageSearchFailed))
	require.True(t, g.advance(core.StageThinking))
	require.True(t, g.advance(core.StageStreaming))
	require.False(t, g.advance(core.StageStreaming))
	require.False(t, g.advance(core.Stage("unknown")))
}

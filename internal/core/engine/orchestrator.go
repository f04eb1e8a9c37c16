// Package engine runs one chat turn end to end: planning, up to two search rounds,
// narration and the streamed answer.
package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scoutline/scoutline/internal/ailink"
	"github.com/scoutline/scoutline/internal/ailink/content"
	"github.com/scoutline/scoutline/internal/ailink/driver"
	"github.com/scoutline/scoutline/internal/core"
	"github.com/scoutline/scoutline/internal/core/search"
	"github.com/scoutline/scoutline/internal/metrics"
)

// Validation errors returned before any event is emitted.
var (
	ErrMessagesRequired   = errors.New("messages is required")
	ErrLastMessageNotUser = errors.New("last message must be from user")
)

// Messages surfaced to the user when a step degrades.
const (
	MissingSearchKeyMessage = "TAVILY_API_KEY is missing. Search is skipped."
	EmptyRoundMessage       = "1차 검색 결과를 확보하지 못했습니다."
	AnswerFailedMessage     = "답변을 생성하지 못했습니다. 잠시 후 다시 시도해 주세요."
)

// LLM is the model surface the orchestrator needs. *ailink.Service satisfies it.
type LLM interface {
	Configured() bool
	Structured(ctx context.Context, slug string, vars map[string]string) (map[string]any, error)
	Text(ctx context.Context, slug string, vars map[string]string) (string, error)
	StreamAnswer(ctx context.Context, evidence string, history []content.Message) (driver.Stream, error)
}

// Emitter receives the turn's events in order.
type Emitter interface {
	Send(eventType string, data any) error
	Done() error
}

// Orchestrator coordinates the model and the search provider for chat turns. It holds no
// per-turn state and may serve concurrent turns.
type Orchestrator struct {
	LLM      LLM
	Searcher search.Searcher
	Logger   *logging.Logger
	Clock    func() time.Time
}

// Outcome summarizes a finished turn.
type Outcome struct {
	TurnID       string
	Plan         core.SearchPlan
	Decision     *core.SecondSearchDecision
	Entries      []core.SearchRoundEntry
	Failures     []core.SearchFailure
	Answer       string
	FollowUps    []string
	Degraded     bool
	Disconnected bool

	// SkippedFrames counts malformed answer stream frames that were dropped.
	SkippedFrames int
}

// ValidateMessages checks the request shape accepted by Run.
func ValidateMessages(messages []core.ChatMessage) error {
	if len(messages) == 0 {
		return ErrMessagesRequired
	}
	if messages[len(messages)-1].Role != core.RoleUser {
		return ErrLastMessageNotUser
	}
	return nil
}

// Run executes one turn, writing every event to out and finishing with the stream
// terminator. Upstream failures never abort the turn; the only errors returned are
// validation errors, which are reported before anything is emitted.
func (o *Orchestrator) Run(ctx context.Context, messages []core.ChatMessage, out Emitter) (*Outcome, error) {
	if err := ValidateMessages(messages); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	t := &turn{
		o:         o,
		ctx:       ctx,
		out:       out,
		id:        uuid.NewString(),
		messages:  messages,
		userQuery: messages[len(messages)-1].Content,
		narration: newNarrationState(),
	}
	t.run()

	outcome := t.outcome()
	switch {
	case outcome.Disconnected:
		metrics.RecordTurn("disconnected")
	case outcome.Degraded:
		metrics.RecordTurn("degraded")
	default:
		metrics.RecordTurn("completed")
	}
	return outcome, nil
}

// Plan runs only the planning steps of a turn: decision plus query optimization.
func (o *Orchestrator) Plan(ctx context.Context, messages []core.ChatMessage) (core.SearchPlan, error) {
	if err := ValidateMessages(messages); err != nil {
		return core.SearchPlan{}, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	userQuery := messages[len(messages)-1].Content
	plan := o.buildPlan(ctx, userQuery, messages)
	return o.optimizePlan(ctx, userQuery, plan), nil
}

type turn struct {
	o         *Orchestrator
	ctx       context.Context
	out       Emitter
	id        string
	messages  []core.ChatMessage
	userQuery string

	status     statusGuard
	stageStart time.Time
	narration  *narrationState

	plan      core.SearchPlan
	decision  *core.SecondSearchDecision
	entries   []core.SearchRoundEntry
	failures  []core.SearchFailure
	answer    strings.Builder
	followUps []string
	degraded  bool
	sendErr   error

	skippedFrames int
}

func (t *turn) run() {
	t.setStatus(core.StageAnalyzeIntent)
	t.narrate(narrateAnalyzeIntent, "", narrationFacts{})

	t.setStatus(core.StageDecideSearch)
	t.plan = t.o.optimizePlan(t.ctx, t.userQuery, t.o.buildPlan(t.ctx, t.userQuery, t.messages))

	if intro := t.o.thinkingIntro(t.ctx, t.userQuery, t.plan); intro != "" {
		t.send(core.EventThinkingIntro, intro)
	}
	t.send(core.EventSearchPlan, t.plan)
	t.narrate(narrateDecideSearch, "", narrationFacts{Plan: &t.plan, MaxResults: intPtr(t.plan.PrimaryResultCount)})

	t.setStatus(core.StagePlanQueries)
	if t.plan.ShouldSearch && search.Configured(t.o.Searcher) {
		t.searchRounds()
	} else {
		t.skipSearch()
	}

	t.setStatus(core.StageSynthesize)
	t.narrate(narrateSynthesize, "", narrationFacts{Plan: &t.plan})
	evidence := BuildEvidence(t.entries)

	t.setStatus(core.StageThinking)
	t.narrate(narrateThinking, "", narrationFacts{Plan: &t.plan})
	t.streamAnswer(evidence)

	t.followUps = t.o.followUps(t.ctx, t.userQuery, t.answer.String())
	if len(t.followUps) > 0 {
		t.send(core.EventFollowUps, t.followUps)
	}
	t.finishStage()
	if err := t.out.Done(); err != nil {
		t.noteSendErr(err)
	}
}

func (t *turn) searchRounds() {
	t.setStatus(core.StageSearching)
	t.narrate(narrateSearching, "", narrationFacts{Plan: &t.plan, MaxResults: intPtr(t.plan.PrimaryResultCount)})

	first := t.runRound(1, t.plan.PrimaryQueries, t.plan.PrimaryResultCount)
	t.narrateRoundResults(1, first, t.plan.PrimaryResultCount)

	if len(first) == 0 {
		t.setStatus(core.StageSearchFailed)
		t.narrate(narrateError, "error_search", narrationFacts{Error: EmptyRoundMessage})
		return
	}

	t.setStatus(core.StageAnalyzing)
	t.narrate(narrateAnalyzing, "", narrationFacts{Plan: &t.plan})

	decision := t.o.decideSecondSearch(t.ctx, t.userQuery, t.plan, first)
	t.decision = &decision
	t.send(core.EventSearchDecision, decision)
	t.narrate(narrateAnalyzing, "search_decision", narrationFacts{
		Plan:       &t.plan,
		Decision:   &decision,
		MaxResults: intPtr(decision.AdditionalResultCount),
	})

	if !decision.NeedsMore {
		return
	}

	t.setStatus(core.StageSearching2)
	t.narrate(narrateSearching2, "", narrationFacts{Decision: &decision, MaxResults: intPtr(decision.AdditionalResultCount)})
	second := t.runRound(2, decision.RefinedQueries, decision.AdditionalResultCount)
	t.narrateRoundResults(2, second, decision.AdditionalResultCount)
}

func (t *turn) skipSearch() {
	t.setStatus(core.StageSearchSkipped)
	t.narrate(narratePlanQueries, "", narrationFacts{Plan: &t.plan})
	if !t.plan.ShouldSearch {
		return
	}

	query := ""
	if len(t.plan.PrimaryQueries) > 0 {
		query = t.plan.PrimaryQueries[0]
	}
	failure := core.SearchFailure{Round: 1, Query: query, Error: MissingSearchKeyMessage}
	t.failures = append(t.failures, failure)
	t.send(core.EventSearchError, failure)
	t.narrate(narrateError, "error_search", narrationFacts{Error: MissingSearchKeyMessage})
}

func (t *turn) narrateRoundResults(round int, entries []core.SearchRoundEntry, maxResults int) {
	sources := core.SourceCount(entries)
	t.narrate(narrateSearchResults, roundResultsKey(round), narrationFacts{
		Round:       round,
		SourceCount: intPtr(sources),
		MaxResults:  intPtr(maxResults),
		Domains:     strings.Join(TopDomains(entries, 4), ", "),
	})
}

func (t *turn) runRound(round int, queries []string, maxResults int) []core.SearchRoundEntry {
	started := t.now()
	results := runSearchRound(t.ctx, t.o.Searcher, round, queries, maxResults)
	metrics.RecordStageDuration(roundStageName(round), t.now().Sub(started))

	var entries []core.SearchRoundEntry
	for _, res := range results {
		if res.Failure != nil {
			t.o.warn("search query failed", errors.New(res.Failure.Error),
				zap.String("turn_id", t.id), zap.Int("round", round), zap.String("query", res.Failure.Query))
			t.failures = append(t.failures, *res.Failure)
			t.send(core.EventSearchError, *res.Failure)
			continue
		}
		entries = append(entries, *res.Entry)
		t.send(core.EventSearch, *res.Entry)
	}
	t.entries = append(t.entries, entries...)
	return entries
}

func (t *turn) setStatus(stage core.Stage) {
	if !t.status.advance(stage) {
		return
	}
	t.finishStage()
	t.stageStart = t.now()
	t.send(core.EventStatus, string(stage))
}

// finishStage records the duration of the stage that is currently open.
func (t *turn) finishStage() {
	if t.status.last == "" || t.stageStart.IsZero() {
		return
	}
	metrics.RecordStageDuration(string(t.status.last), t.now().Sub(t.stageStart))
	t.stageStart = time.Time{}
}

func (t *turn) send(eventType core.EventType, data any) {
	if err := t.out.Send(string(eventType), data); err != nil {
		t.noteSendErr(err)
	}
}

func (t *turn) noteSendErr(err error) {
	if t.sendErr != nil {
		return
	}
	t.sendErr = err
	t.o.debug("client stream write failed", zap.String("turn_id", t.id), zap.Error(err))
}

func (t *turn) now() time.Time {
	return t.o.now()
}

func (t *turn) outcome() *Outcome {
	return &Outcome{
		TurnID:       t.id,
		Plan:         t.plan,
		Decision:     t.decision,
		Entries:      t.entries,
		Failures:     t.failures,
		Answer:       t.answer.String(),
		FollowUps:    t.followUps,
		Degraded:     t.degraded,
		Disconnected: t.sendErr != nil,

		SkippedFrames: t.skippedFrames,
	}
}

func (o *Orchestrator) now() time.Time {
	if o != nil && o.Clock != nil {
		return o.Clock()
	}
	return time.Now().UTC()
}

func (o *Orchestrator) llmConfigured() bool {
	return o != nil && o.LLM != nil && o.LLM.Configured()
}

// recordCall counts a model call and logs failures at WARN.
func (o *Orchestrator) recordCall(purpose string, err error, fields ...zap.Field) {
	if err == nil {
		metrics.RecordLLMCall(purpose, "success")
		return
	}
	metrics.RecordLLMCall(purpose, ailink.FailureKind(err))
	o.warn(purpose+" call failed", err, fields...)
}

func (o *Orchestrator) warn(msg string, err error, fields ...zap.Field) {
	if o == nil || o.Logger == nil {
		return
	}
	o.Logger.Warn(msg, append(fields, zap.Error(err))...)
}

func (o *Orchestrator) debug(msg string, fields ...zap.Field) {
	if o == nil || o.Logger == nil {
		return
	}
	o.Logger.Debug(msg, fields...)
}

func roundResultsKey(round int) string {
	if round == 2 {
		return "search_results_round_2"
	}
	return "search_results_round_1"
}

func roundStageName(round int) string {
	if round == 2 {
		return "search_round_2"
	}
	return "search_round_1"
}

func intPtr(n int) *int {
	return &n
}

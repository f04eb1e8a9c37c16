package core

// Chat roles. Clients may send only user and assistant turns; system turns reaching the
// engine from other callers are dropped from every history it builds.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatMessage is one turn of the conversation supplied by the client.
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content"`
}

// Stage names a step of the per-turn pipeline. Stage keys are sent verbatim as status events.
type Stage string

const (
	StageAnalyzeIntent Stage = "analyze_intent"
	StageDecideSearch  Stage = "decide_search"
	StagePlanQueries   Stage = "plan_queries"
	StageSearching     Stage = "searching"
	StageAnalyzing     Stage = "analyzing"
	StageSearching2    Stage = "searching_2"
	StageSearchSkipped Stage = "search_skipped"
	StageSearchFailed  Stage = "search_failed"
	StageSynthesize    Stage = "synthesize"
	StageThinking      Stage = "thinking"
	StageStreaming     Stage = "streaming"
)

var stageStepIndex = map[Stage]int{
	StageAnalyzeIntent: 0,
	StageDecideSearch:  1,
	StagePlanQueries:   2,
	StageSearching:     3,
	StageAnalyzing:     4,
	StageSearching2:    5,
	StageSearchSkipped: 5,
	StageSearchFailed:  5,
	StageSynthesize:    6,
	StageThinking:      7,
	StageStreaming:     7,
}

// StepIndex returns the position of s in the forward stage order.
func (s Stage) StepIndex() (int, bool) {
	idx, ok := stageStepIndex[s]
	return idx, ok
}

// EventType identifies the payload carried by a stream event.
type EventType string

const (
	EventStatus         EventType = "status"
	EventThinkingIntro  EventType = "thinking_intro"
	EventSearchPlan     EventType = "search_plan"
	EventSearchDecision EventType = "search_decision"
	EventSearch         EventType = "search"
	EventSearchError    EventType = "search_error"
	EventThinkingText   EventType = "thinking_text"
	EventContent        EventType = "content"
	EventFollowUps      EventType = "follow_ups"
)

package core

// SearchMode describes how many independent lookups a plan asks for.
type SearchMode string

const (
	SearchModeNone   SearchMode = "none"
	SearchModeSingle SearchMode = "single"
	SearchModeMulti  SearchMode = "multi"
)

// Valid reports whether m is one of the known modes.
func (m SearchMode) Valid() bool {
	switch m {
	case SearchModeNone, SearchModeSingle, SearchModeMulti:
		return true
	default:
		return false
	}
}

// Result-count bounds accepted by the search provider.
const (
	PrimaryMinResults     = 3
	PrimaryMaxResults     = 12
	PrimaryDefaultSingle  = 5
	PrimaryDefaultMulti   = 4
	FollowupMinResults    = 5
	FollowupMaxResults    = 15
	FollowupDefaultResult = 10

	// SearchMinResults and SearchMaxResults bound any single provider call.
	SearchMinResults = PrimaryMinResults
	SearchMaxResults = FollowupMaxResults
)

// Query-list bounds.
const (
	MaxQueryLength    = 90
	MaxPrimaryQueries = 3
	MaxRefinedQueries = 2
)

const (
	PlanFallbackReason     = "Planner fallback: use internal reasoning only."
	DecisionFallbackReason = "Follow-up search not required."
)

// SearchPlan is the per-turn decision on whether and how to search before answering.
type SearchPlan struct {
	ShouldSearch       bool       `json:"shouldSearch"`
	Mode               SearchMode `json:"mode"`
	PrimaryQueries     []string   `json:"primaryQueries"`
	PrimaryResultCount int        `json:"primaryResultCount"`
	Reason             string     `json:"reason"`
}

// MaxQueries returns how many primary queries the plan's mode allows.
func (p SearchPlan) MaxQueries() int {
	switch p.Mode {
	case SearchModeMulti:
		return MaxPrimaryQueries
	case SearchModeSingle:
		return 1
	default:
		return 0
	}
}

// WithQueries returns a copy of p with its query list replaced. A multi plan left with
// fewer than two queries becomes single; the result count stays as planned since it is
// valid for either mode.
func (p SearchPlan) WithQueries(queries []string) SearchPlan {
	next := p
	next.PrimaryQueries = append([]string(nil), queries...)
	if next.Mode == SearchModeMulti && len(next.PrimaryQueries) < 2 {
		next.Mode = SearchModeSingle
	}
	return next
}

// SecondSearchDecision says whether a follow-up search round is warranted.
type SecondSearchDecision struct {
	NeedsMore             bool     `json:"needsMore"`
	RefinedQueries        []string `json:"refinedQueries"`
	AdditionalResultCount int      `json:"additionalResultCount"`
	Reason                string   `json:"reason"`
}

// NoFollowUp is the decision used whenever the completeness check cannot run.
func NoFollowUp() SecondSearchDecision {
	return SecondSearchDecision{
		NeedsMore:      false,
		RefinedQueries: []string{},
		Reason:         DecisionFallbackReason,
	}
}

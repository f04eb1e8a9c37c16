package metrics

import (
	"strconv"
	"time"

	"github.com/scoutline/scoutline/internal/observability"
)

// Pipeline metric names.
const (
	PipelineTurnsTotal        = "pipeline_turns_total"
	PipelineStageDuration     = "pipeline_stage_duration_ms"
	SearchQueriesTotal        = "search_queries_total"
	SearchCacheTotal          = "search_cache_total"
	LLMCallsTotal             = "llm_calls_total"
	LLMFallbacksTotal         = "llm_fallbacks_total"
	NarrationSuppressedTotal  = "narration_suppressed_total"
	AnswerStreamFailuresTotal = "answer_stream_failures_total"
)

// RecordTurn counts a finished chat turn by outcome ("completed", "degraded", "disconnected").
func RecordTurn(outcome string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(PipelineTurnsTotal, 1, map[string]string{"outcome": outcome})
}

// RecordStageDuration records how long a pipeline stage ran.
func RecordStageDuration(stage string, d time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Histogram(PipelineStageDuration, d, map[string]string{"stage": stage})
}

// RecordSearchQuery counts one provider search by round and outcome.
func RecordSearchQuery(round int, success bool) {
	if observability.TelemetrySystem == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	_ = observability.TelemetrySystem.Counter(SearchQueriesTotal, 1, map[string]string{
		"round":  strconv.Itoa(round),
		"status": status,
	})
}

// RecordSearchCache counts cache lookups ("hit", "miss", "error").
func RecordSearchCache(result string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(SearchCacheTotal, 1, map[string]string{"result": result})
}

// RecordLLMCall counts one model call by prompt purpose and status.
func RecordLLMCall(purpose, status string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(LLMCallsTotal, 1, map[string]string{
		"purpose": purpose,
		"status":  status,
	})
}

// RecordLLMFallback counts a deterministic fallback taken instead of a model result.
func RecordLLMFallback(purpose string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(LLMFallbacksTotal, 1, map[string]string{"purpose": purpose})
}

// RecordNarrationSuppressed counts narration lines that were not emitted ("repeat_key", "near_duplicate").
func RecordNarrationSuppressed(reason string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(NarrationSuppressedTotal, 1, map[string]string{"reason": reason})
}

// RecordAnswerStreamFailure counts answer streams that failed to open or broke mid-way.
func RecordAnswerStreamFailure(phase string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(AnswerStreamFailuresTotal, 1, map[string]string{"phase": phase})
}

package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/scoutline/scoutline/internal/core"
)

// TurnPrinter renders a chat turn's events as plain terminal text. It satisfies the
// orchestrator's emitter contract.
type TurnPrinter struct {
	W io.Writer

	// ShowStatus also prints stage transitions.
	ShowStatus bool

	inAnswer bool
	err      error
}

// Send prints one event.
func (p *TurnPrinter) Send(eventType string, data any) error {
	switch core.EventType(eventType) {
	case core.EventStatus:
		if p.ShowStatus {
			p.linef("[%v]", data)
		}
	case core.EventThinkingIntro:
		if text, ok := data.(string); ok {
			p.linef("%s\n", strings.TrimSpace(text))
		}
	case core.EventSearchPlan:
		if plan, ok := data.(core.SearchPlan); ok && plan.ShouldSearch {
			p.linef("plan: %s, %d queries, %d results each", plan.Mode, len(plan.PrimaryQueries), plan.PrimaryResultCount)
		}
	case core.EventSearchDecision:
		if d, ok := data.(core.SecondSearchDecision); ok && d.NeedsMore {
			p.linef("follow-up search: %s", strings.Join(d.RefinedQueries, " | "))
		}
	case core.EventSearch:
		if entry, ok := data.(core.SearchRoundEntry); ok {
			p.linef("  round %d: %s (%d results)", entry.Round, entry.Query, len(entry.Results))
		}
	case core.EventSearchError:
		if failure, ok := data.(core.SearchFailure); ok {
			p.linef("  round %d failed: %s: %s", failure.Round, failure.Query, failure.Error)
		}
	case core.EventThinkingText:
		p.linef("· %v", data)
	case core.EventContent:
		if !p.inAnswer {
			p.write("\n")
			p.inAnswer = true
		}
		p.write(fmt.Sprint(data))
	case core.EventFollowUps:
		if questions, ok := data.([]string); ok && len(questions) > 0 {
			p.write("\n\nFollow-up questions:\n")
			for _, q := range questions {
				p.write("  - " + q + "\n")
			}
			p.inAnswer = false
		}
	}
	return p.err
}

// Done ends the transcript with a newline if the answer left the cursor mid-line.
func (p *TurnPrinter) Done() error {
	if p.inAnswer {
		p.write("\n")
		p.inAnswer = false
	}
	return p.err
}

func (p *TurnPrinter) linef(format string, args ...any) {
	if p.inAnswer {
		p.write("\n")
		p.inAnswer = false
	}
	p.write(fmt.Sprintf(format, args...) + "\n")
}

func (p *TurnPrinter) write(s string) {
	if p.err != nil || p.W == nil {
		return
	}
	_, p.err = io.WriteString(p.W, s)
}

package engine

import "github.com/scoutline/scoutline/internal/core"

// statusGuard keeps status events moving forward. A stage is dropped when it repeats the
// previous status or sits earlier in the step order than a stage already sent. Re-entering
// an earlier stage is therefore impossible within one turn.
type statusGuard struct {
	last    core.Stage
	maxStep int
}

func (g *statusGuard) advance(stage core.Stage) bool {
	step, ok := stage.StepIndex()
	if !ok {
		return false
	}
	if stage == g.last {
		return false
	}
	if g.last != "" && step < g.maxStep {
		return false
	}
	g.last = stage
	if step > g.maxStep {
		g.maxStep = step
	}
	return true
}

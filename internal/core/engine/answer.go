package engine

import (
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/scoutline/scoutline/internal/ailink"
	"github.com/scoutline/scoutline/internal/ailink/content"
	"github.com/scoutline/scoutline/internal/core"
	"github.com/scoutline/scoutline/internal/metrics"
)

// streamAnswer forwards answer deltas as content events. A stream that cannot be opened
// or breaks off degrades to an error narration, plus a canned chunk when nothing was sent.
func (t *turn) streamAnswer(evidence string) {
	if !t.o.llmConfigured() {
		t.answerFailed("open", ailink.ErrNotConfigured)
		return
	}

	stream, err := t.o.LLM.StreamAnswer(t.ctx, evidence, answerHistory(t.messages))
	if err != nil {
		t.o.recordCall("answer", err, zap.String("turn_id", t.id))
		t.answerFailed("open", err)
		return
	}
	defer stream.Close() // nolint:errcheck // best-effort cleanup on provider stream
	defer t.noteSkippedFrames(stream)

	t.setStatus(core.StageStreaming)
	for {
		delta, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			metrics.RecordLLMCall("answer", "success")
			return
		}
		if err != nil {
			t.o.recordCall("answer", err, zap.String("turn_id", t.id))
			t.answerFailed("stream", err)
			return
		}
		if delta == "" {
			continue
		}
		t.answer.WriteString(delta)
		t.send(core.EventContent, delta)
		if t.sendErr != nil {
			return
		}
	}
}

// frameSkipper is implemented by streams that drop malformed frames instead of failing.
type frameSkipper interface {
	Skipped() int
}

func (t *turn) noteSkippedFrames(stream any) {
	skipper, ok := stream.(frameSkipper)
	if !ok {
		return
	}
	if t.skippedFrames = skipper.Skipped(); t.skippedFrames > 0 {
		t.o.debug("skipped malformed answer stream frames",
			zap.String("turn_id", t.id),
			zap.Int("skipped", t.skippedFrames))
	}
}

func (t *turn) answerFailed(phase string, err error) {
	t.degraded = true
	metrics.RecordAnswerStreamFailure(phase)
	t.o.warn("answer stream failed", err, zap.String("turn_id", t.id), zap.String("phase", phase))

	t.narrate(narrateError, "error_answer", narrationFacts{Error: answerErrorSummary(err)})
	t.setStatus(core.StageStreaming)
	if t.answer.Len() == 0 {
		t.send(core.EventContent, AnswerFailedMessage)
	}
}

// answerErrorSummary is the short, provider-free reason used in the narration fact sheet.
func answerErrorSummary(err error) string {
	switch ailink.FailureKind(err) {
	case ailink.FailureNotConfigured:
		return "답변 모델이 설정되지 않았습니다."
	case ailink.FailureTimeout:
		return "답변 생성 시간이 초과되었습니다."
	case ailink.FailureRateLimit:
		return "답변 모델 요청 한도를 초과했습니다."
	default:
		return "답변 생성 중 연결이 끊어졌습니다."
	}
}

func answerHistory(messages []core.ChatMessage) []content.Message {
	kept := conversationHistory(messages)
	out := make([]content.Message, 0, len(kept))
	for _, m := range kept {
		out = append(out, content.Text(m.Role, m.Content))
	}
	return out
}

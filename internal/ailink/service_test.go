package ailink

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/scoutline/scoutline/internal/ailink/content"
	"github.com/scoutline/scoutline/internal/ailink/driver"
	"github.com/scoutline/scoutline/internal/ailink/prompt"
)

type recordingDriver struct {
	reply     string
	reasoning string
	err       error
	req       *driver.Request
	deadline  time.Time
	deltas    []string
}

func (d *recordingDriver) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	d.req = req
	d.deadline, _ = ctx.Deadline()
	if d.err != nil {
		return nil, d.err
	}
	return &driver.Response{
		Content:   []content.ContentBlock{{Type: content.ContentTypeText, Text: d.reply}},
		Reasoning: d.reasoning,
	}, nil
}

func (d *recordingDriver) Stream(ctx context.Context, req *driver.Request) (driver.Stream, error) {
	d.req = req
	if d.err != nil {
		return nil, d.err
	}
	return &sliceStream{deltas: d.deltas}, nil
}

func (d *recordingDriver) Name() string { return "openai" }

type sliceStream struct{ deltas []string }

func (s *sliceStream) Recv() (string, error) {
	if len(s.deltas) == 0 {
		return "", io.EOF
	}
	next := s.deltas[0]
	s.deltas = s.deltas[1:]
	return next, nil
}

func (s *sliceStream) Close() error { return nil }

func newTestService(t *testing.T, drv driver.Driver, cfg Config) *Service {
	t.Helper()
	prompts, err := prompt.DefaultRegistry()
	require.NoError(t, err)
	if cfg.APIKey == "" {
		cfg.APIKey = "k"
	}
	cfg.Models = ModelsConfig{Orchestrator: "orch", Response: "resp"}
	return &Service{Providers: NewRegistryWithDriver(cfg, drv), Prompts: prompts}
}

func TestStructuredExtractsFencedJSON(t *testing.T) {
	drv := &recordingDriver{reply: "Sure:\n```json\n{\"queries\":[\"go 1.23 release notes\"]}\n```"}
	svc := newTestService(t, drv, Config{DisableThinking: true})

	obj, err := svc.Structured(context.Background(), "query-optimizer", map[string]string{
		"user_query":  "go 1.23 뭐가 바뀌었어?",
		"round":       "primary",
		"max_queries": "1",
		"candidates":  "go 1.23 뭐가 바뀌었어?",
	})
	require.NoError(t, err)
	require.Equal(t, []any{"go 1.23 release notes"}, obj["queries"])

	require.Equal(t, "orch", drv.req.Model)
	require.True(t, drv.req.DisableThinking)
	require.Equal(t, 220, *drv.req.MaxTokens)
	require.InDelta(t, 0.2, *drv.req.Temperature, 1e-9)
	require.Len(t, drv.req.Messages, 2)
	require.Contains(t, drv.req.Messages[1].Content[0].Text, "Round mode: primary")
	require.False(t, drv.deadline.IsZero())
}

func TestStructuredWithoutObjectReturnsNil(t *testing.T) {
	drv := &recordingDriver{reply: "I cannot answer that."}
	svc := newTestService(t, drv, Config{})

	obj, err := svc.Structured(context.Background(), "follow-ups", map[string]string{"user_query": "q"})
	require.NoError(t, err)
	require.Nil(t, obj)
	require.False(t, drv.req.DisableThinking)
}

func TestTextFallsBackToReasoning(t *testing.T) {
	drv := &recordingDriver{reply: "  ", reasoning: " 검색 결과를 검토하고 있습니다. "}
	svc := newTestService(t, drv, Config{})

	text, err := svc.Text(context.Background(), "narration", map[string]string{"facts": "stage: analyzing"})
	require.NoError(t, err)
	require.Equal(t, "검색 결과를 검토하고 있습니다.", text)
	require.Equal(t, "stage: analyzing", drv.req.Messages[1].Content[0].Text)
}

func TestCallsRequireConfiguration(t *testing.T) {
	prompts, err := prompt.DefaultRegistry()
	require.NoError(t, err)
	svc := &Service{Providers: NewRegistry(Config{}), Prompts: prompts}

	require.False(t, svc.Configured())
	_, err = svc.Text(context.Background(), "narration", map[string]string{"facts": "x"})
	require.ErrorIs(t, err, ErrNotConfigured)
	_, err = svc.StreamAnswer(context.Background(), "", nil)
	require.ErrorIs(t, err, ErrNotConfigured)
	require.Equal(t, FailureNotConfigured, FailureKind(err))
}

func TestMissingRequiredVariable(t *testing.T) {
	svc := newTestService(t, &recordingDriver{}, Config{})
	_, err := svc.Structured(context.Background(), "planner", map[string]string{})
	require.ErrorContains(t, err, "user_query")
}

func TestProviderErrorsPropagate(t *testing.T) {
	perr := &driver.ProviderError{Provider: "openai", StatusCode: 503, Message: "down"}
	svc := newTestService(t, &recordingDriver{err: perr}, Config{})

	_, err := svc.Text(context.Background(), "narration", map[string]string{"facts": "x"})
	require.True(t, errors.As(err, &perr))
	require.Equal(t, FailureUnavailable, FailureKind(err))
}

func TestAnswerSystemPrompt(t *testing.T) {
	svc := newTestService(t, &recordingDriver{}, Config{})

	plain, err := svc.AnswerSystemPrompt("")
	require.NoError(t, err)
	require.Equal(t, "You are a helpful assistant. Answer directly and clearly.", plain)

	withEvidence, err := svc.AnswerSystemPrompt("Search block 1\nRound: 1")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(withEvidence, "You are a careful assistant.\n"))
	require.Contains(t, withEvidence, "[SEARCH CONTEXT START]\nSearch block 1\nRound: 1\n[SEARCH CONTEXT END]")
	require.NotContains(t, withEvidence, "helpful assistant")
}

func TestStreamAnswerUsesResponseModel(t *testing.T) {
	drv := &recordingDriver{deltas: []string{"a", "b"}}
	svc := newTestService(t, drv, Config{DisableThinking: true})

	history := []content.Message{content.Text("user", "hi")}
	stream, err := svc.StreamAnswer(context.Background(), "", history)
	require.NoError(t, err)
	defer stream.Close() // nolint:errcheck

	require.Equal(t, "resp", drv.req.Model)
	require.Len(t, drv.req.Messages, 2)
	require.Equal(t, "system", drv.req.Messages[0].Role)
	require.Nil(t, drv.req.MaxTokens)
	require.False(t, drv.req.DisableThinking)

	first, err := stream.Recv()
	require.NoError(t, err)
	require.Equal(t, "a", first)
}

func TestFailureKind(t *testing.T) {
	cases := map[int]string{401: FailureAuth, 403: FailureAuth, 429: FailureRateLimit, 400: FailureBadRequest, 503: FailureUnavailable}
	for status, want := range cases {
		err := &driver.ProviderError{Provider: "openai", StatusCode: status, Message: "boom"}
		require.Equal(t, want, FailureKind(err), status)
	}
	require.Equal(t, FailureTimeout, FailureKind(&driver.ProviderError{Err: context.DeadlineExceeded}))
	require.Equal(t, FailureError, FailureKind(errors.New("x")))
	require.Empty(t, FailureKind(nil))
}

func TestBuildRequestCarriesPromptBudget(t *testing.T) {
	svc := &Service{Providers: NewRegistryWithDriver(Config{APIKey: "k", DisableThinking: true}, &recordingDriver{})}
	temp := 0.2
	def := &prompt.Prompt{Config: prompt.Config{
		Slug: "planner",
		Request: prompt.RequestOptions{
			MaxTokens:       260,
			Temperature:     &temp,
			DisableThinking: true,
			ResponseFormat:  driver.FormatJSONObject,
		},
	}}

	req := svc.buildRequest(def, "orch", nil)
	require.Equal(t, "planner", req.PromptSlug)
	require.Equal(t, 260, *req.MaxTokens)
	require.True(t, req.DisableThinking)
	require.Equal(t, driver.FormatJSONObject, req.ResponseFormat.Type)

	def.Config.Request = prompt.RequestOptions{}
	req = svc.buildRequest(def, "orch", nil)
	require.Nil(t, req.MaxTokens)
	require.Nil(t, req.ResponseFormat)
	require.False(t, req.DisableThinking)
}

package ailink

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/scoutline/scoutline/internal/ailink/content"
	"github.com/scoutline/scoutline/internal/ailink/driver"
	"github.com/scoutline/scoutline/internal/ailink/prompt"
	"github.com/scoutline/scoutline/internal/textnorm"
)

// AnswerPromptSlug is the prompt that frames the streamed answer.
const AnswerPromptSlug = "answer"

// ErrNotConfigured is returned by every call when no API key is configured.
var ErrNotConfigured = errors.New("ailink api key not configured")

// Service coordinates prompt loading, provider selection, and driver execution.
type Service struct {
	Providers *Registry
	Prompts   prompt.Registry
}

// NewService builds a service from cfg, loading the embedded prompt set plus any overrides
// from cfg.PromptsDir.
func NewService(cfg Config) (*Service, error) {
	prompts, err := prompt.LoadRegistry(cfg.PromptsDir)
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	return &Service{Providers: NewRegistry(cfg), Prompts: prompts}, nil
}

// Configured reports whether model calls can be attempted at all.
func (s *Service) Configured() bool {
	return s != nil && s.Providers != nil && s.Providers.cfg.Configured()
}

// Structured runs a JSON prompt and returns the first JSON object found in the reply. A
// reply without any recoverable object yields (nil, nil).
func (s *Service) Structured(ctx context.Context, slug string, vars map[string]string) (map[string]any, error) {
	resp, err := s.complete(ctx, slug, vars)
	if err != nil {
		return nil, err
	}
	return textnorm.ExtractJSONObject(extractContent(resp)), nil
}

// Text runs a text prompt and returns the trimmed reply. When the content field is empty the
// provider's reasoning field is used instead.
func (s *Service) Text(ctx context.Context, slug string, vars map[string]string) (string, error) {
	resp, err := s.complete(ctx, slug, vars)
	if err != nil {
		return "", err
	}
	if text := strings.TrimSpace(extractContent(resp)); text != "" {
		return text, nil
	}
	return strings.TrimSpace(resp.Reasoning), nil
}

// AnswerSystemPrompt renders the answer framing for the given evidence block.
func (s *Service) AnswerSystemPrompt(evidence string) (string, error) {
	if s == nil || s.Prompts == nil {
		return "", errors.New("ailink prompt registry not configured")
	}
	def, err := s.Prompts.Get(AnswerPromptSlug)
	if err != nil {
		return "", err
	}
	system, _, err := renderPrompt(def, map[string]string{"evidence": evidence})
	return system, err
}

// StreamAnswer opens the streamed answer: the rendered answer framing followed by history.
// The stream has no timeout of its own; it ends with ctx or with the provider.
func (s *Service) StreamAnswer(ctx context.Context, evidence string, history []content.Message) (driver.Stream, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}
	def, err := s.Prompts.Get(AnswerPromptSlug)
	if err != nil {
		return nil, err
	}
	system, err := s.AnswerSystemPrompt(evidence)
	if err != nil {
		return nil, err
	}

	resolved, err := s.Providers.Resolve(roleFor(def, RoleResponse), def, "")
	if err != nil {
		return nil, err
	}

	messages := make([]content.Message, 0, len(history)+1)
	messages = append(messages, content.Text("system", system))
	messages = append(messages, history...)

	req := s.buildRequest(def, resolved.Model, messages)
	return resolved.Driver.Stream(ctx, req)
}

func (s *Service) complete(ctx context.Context, slug string, vars map[string]string) (*driver.Response, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}
	if s.Prompts == nil {
		return nil, errors.New("ailink prompt registry not configured")
	}

	def, err := s.Prompts.Get(slug)
	if err != nil {
		return nil, err
	}

	for _, required := range def.Config.Input.RequiredVariables {
		if val, ok := vars[required]; !ok || strings.TrimSpace(val) == "" {
			return nil, fmt.Errorf("required variable %q not provided", required)
		}
	}

	system, user, err := renderPrompt(def, vars)
	if err != nil {
		return nil, err
	}

	resolved, err := s.Providers.Resolve(roleFor(def, RoleOrchestrator), def, "")
	if err != nil {
		return nil, err
	}

	messages := []content.Message{content.Text("system", system)}
	if strings.TrimSpace(user) != "" {
		messages = append(messages, content.Text("user", user))
	}

	if timeout := def.Config.Request.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := resolved.Driver.Complete(ctx, s.buildRequest(def, resolved.Model, messages))
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, &driver.ProviderError{Provider: resolved.ProviderID, Message: "empty response"}
	}
	return resp, nil
}

func (s *Service) buildRequest(def *prompt.Prompt, model string, messages []content.Message) *driver.Request {
	opts := def.Config.Request
	req := &driver.Request{
		Model:           model,
		Messages:        messages,
		Temperature:     opts.Temperature,
		DisableThinking: opts.DisableThinking && s.Providers.cfg.DisableThinking,
		PromptSlug:      def.Config.Slug,
	}
	if opts.MaxTokens > 0 {
		maxTokens := opts.MaxTokens
		req.MaxTokens = &maxTokens
	}
	if opts.ResponseFormat != "" {
		req.ResponseFormat = &driver.ResponseFormat{Type: opts.ResponseFormat}
	}
	return req
}

func roleFor(def *prompt.Prompt, fallback string) string {
	if role := strings.TrimSpace(def.Config.Request.Role); role != "" {
		return role
	}
	return fallback
}

func extractContent(resp *driver.Response) string {
	if resp == nil {
		return ""
	}
	if len(resp.Content) == 0 {
		return ""
	}
	parts := make([]string, 0, len(resp.Content))
	for _, block := range resp.Content {
		parts = append(parts, block.Text)
	}
	return strings.Join(parts, "\n")
}

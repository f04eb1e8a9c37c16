package openai

import (
	"encoding/json"
	"strings"

	"github.com/scoutline/scoutline/internal/ailink/content"
	"github.com/scoutline/scoutline/internal/ailink/driver"
)

// completion decodes both a non-streaming response body and a single stream frame.
// Full responses fill Message; stream frames fill Delta.
type completion struct {
	Choices []struct {
		Message      completionText `json:"message"`
		Delta        completionText `json:"delta"`
		FinishReason *string        `json:"finish_reason"`
	} `json:"choices"`
	Usage *driver.Usage `json:"usage,omitempty"`
	Error *apiError     `json:"error,omitempty"`
}

type completionText struct {
	Content          string `json:"content"`
	ReasoningContent string `json:"reasoning_content,omitempty"`
}

type apiError struct {
	Message string          `json:"message"`
	Code    json.RawMessage `json:"code,omitempty"`
}

func toDriverResponse(resp *completion) (*driver.Response, error) {
	if resp != nil && resp.Error != nil && resp.Error.Message != "" {
		return nil, &driver.ProviderError{Provider: providerName, Message: resp.Error.Message}
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, &driver.ProviderError{Provider: providerName, Message: "empty response choices"}
	}

	first := resp.Choices[0]
	out := &driver.Response{
		Content:   []content.ContentBlock{{Type: content.ContentTypeText, Text: first.Message.Content}},
		Reasoning: first.Message.ReasoningContent,
		Usage:     resp.Usage,
	}
	if first.FinishReason != nil {
		out.FinishReason = *first.FinishReason
	}
	return out, nil
}

// delta returns the answer text carried by a stream frame. Reasoning-only frames yield "".
func (c *completion) delta() string {
	if len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0].Delta.Content
}

// errorMessage prefers the provider's {"error":{"message"}} text over the raw body.
func errorMessage(body []byte) string {
	var parsed completion
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return strings.TrimSpace(string(body))
}

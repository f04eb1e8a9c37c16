package openai

import (
	"fmt"
	"strings"

	"github.com/scoutline/scoutline/internal/ailink/content"
	"github.com/scoutline/scoutline/internal/ailink/driver"
)

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Stream         bool            `json:"stream"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Temperature    *float64        `json:"temperature,omitempty"`
	MaxTokens      *int            `json:"max_tokens,omitempty"`
	Thinking       *thinkingOption `json:"thinking,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// thinkingOption is the provider extension that toggles a reasoning phase.
type thinkingOption struct {
	Type string `json:"type"`
}

func buildChatRequest(req *driver.Request, stream bool) (*chatCompletionRequest, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if strings.TrimSpace(req.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}

	messages, err := toChatMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	payload := &chatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Stream:      stream,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if rf := req.ResponseFormat; rf != nil && strings.TrimSpace(rf.Type) != "" {
		payload.ResponseFormat = &responseFormat{Type: rf.Type}
	}
	if req.DisableThinking {
		payload.Thinking = &thinkingOption{Type: "disabled"}
	}
	return payload, nil
}

// toChatMessages flattens each message to a plain string body, which every
// OpenAI-compatible provider accepts.
func toChatMessages(messages []content.Message) ([]chatMessage, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("messages are required")
	}
	out := make([]chatMessage, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case "system", "user", "assistant":
		default:
			return nil, fmt.Errorf("message %d: unsupported role %q", i, msg.Role)
		}
		out[i] = chatMessage{Role: msg.Role, Content: msg.PlainText()}
	}
	return out, nil
}

// Package driver defines the provider-neutral chat completion contract used by ailink.
package driver

import (
	"context"

	"github.com/scoutline/scoutline/internal/ailink/content"
)

// Driver talks to one chat completions provider.
type Driver interface {
	Name() string
	Complete(ctx context.Context, req *Request) (*Response, error)
	// Stream opens a streaming completion. The caller must Close the stream.
	Stream(ctx context.Context, req *Request) (Stream, error)
}

// Stream yields answer text deltas. Recv returns io.EOF after the provider's end marker.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Response formats understood by OpenAI-compatible providers.
const (
	FormatText       = "text"
	FormatJSONObject = "json_object"
)

type ResponseFormat struct {
	Type string `json:"type"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Request is one completion call. Nil Temperature and MaxTokens leave provider defaults.
type Request struct {
	Model          string
	PromptSlug     string
	Messages       []content.Message
	ResponseFormat *ResponseFormat
	Temperature    *float64
	MaxTokens      *int
	// DisableThinking sends thinking:{type:"disabled"} to reasoning-capable models.
	DisableThinking bool
}

type Response struct {
	Content      []content.ContentBlock
	Reasoning    string
	FinishReason string
	Usage        *Usage
}

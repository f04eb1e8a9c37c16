// Package content holds the provider-neutral chat message shape sent to model drivers.
package content

import "strings"

// ContentType is the IANA media type of a block.
type ContentType string

const (
	ContentTypeText ContentType = "text/plain"
	ContentTypeJSON ContentType = "application/json"
)

// ContentBlock is one piece of a message. Only text-bearing blocks are sent to
// providers.
type ContentBlock struct {
	Type ContentType `json:"type"`
	Text string      `json:"text,omitempty"`
}

// Message is a chat message addressed to a model.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// Text builds a single-block plain-text message.
func Text(role, text string) Message {
	return Message{Role: role, Content: []ContentBlock{{Type: ContentTypeText, Text: text}}}
}

// PlainText joins the message's text blocks with newlines.
func (m Message) PlainText() string {
	parts := make([]string, 0, len(m.Content))
	for _, block := range m.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextMessage(t *testing.T) {
	msg := Text("user", "weather in Seoul?")

	assert.Equal(t, "user", msg.Role)
	assert.Equal(t, []ContentBlock{{Type: ContentTypeText, Text: "weather in Seoul?"}}, msg.Content)
	assert.Equal(t, "weather in Seoul?", msg.PlainText())
}

func TestPlainTextSkipsEmptyBlocks(t *testing.T) {
	msg := Message{Role: "assistant", Content: []ContentBlock{
		{Type: ContentTypeText, Text: "first"},
		{Type: ContentTypeJSON},
		{Type: ContentTypeJSON, Text: `{"k":1}`},
	}}

	assert.Equal(t, "first\n{\"k\":1}", msg.PlainText())
	assert.Empty(t, Message{}.PlainText())
}

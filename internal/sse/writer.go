// Package sse writes and decodes Server-Sent Event frames.
package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// DoneSentinel terminates a stream of data frames.
const DoneSentinel = "[DONE]"

// ErrStreamingUnsupported is returned when the response cannot be flushed incrementally.
var ErrStreamingUnsupported = errors.New("response writer does not support flushing")

// Frame is the JSON envelope carried in every data line.
type Frame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// SetHeaders prepares w for an event stream. It must be called before the first write.
func SetHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

// Writer serializes frames onto a single response. Writes are serialized by a mutex and
// each frame is flushed immediately. After the first write failure every later call returns
// that same error so callers can stop producing output for a disconnected client.
type Writer struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
	err     error
}

// NewWriter wraps an http.ResponseWriter that supports flushing.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	return &Writer{w: w, flusher: flusher}, nil
}

// NewPlainWriter writes frames to any io.Writer without flushing.
func NewPlainWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Send writes one `data: {"type":...,"data":...}` frame.
func (w *Writer) Send(eventType string, data any) error {
	payload, err := json.Marshal(Frame{Type: eventType, Data: data})
	if err != nil {
		return fmt.Errorf("encode %s frame: %w", eventType, err)
	}
	return w.write("data: " + string(payload) + "\n\n")
}

// Comment writes an SSE comment line, which clients ignore.
func (w *Writer) Comment(text string) error {
	return w.write(": " + text + "\n\n")
}

// Done writes the stream terminator.
func (w *Writer) Done() error {
	return w.write("data: " + DoneSentinel + "\n\n")
}

// Err returns the first write error, if any.
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *Writer) write(frame string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil {
		return w.err
	}
	if _, err := io.WriteString(w.w, frame); err != nil {
		w.err = err
		return err
	}
	if w.flusher != nil {
		w.flusher.Flush()
	}
	return nil
}

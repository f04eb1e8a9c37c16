package driver

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// TraceEntry is one provider round trip, written as a single NDJSON line.
type TraceEntry struct {
	Timestamp   time.Time       `json:"timestamp"`
	Driver      string          `json:"driver"`
	Endpoint    string          `json:"endpoint"`
	Model       string          `json:"model,omitempty"`
	Prompt      string          `json:"prompt,omitempty"`
	Stream      bool            `json:"stream,omitempty"`
	StatusCode  int             `json:"status_code,omitempty"`
	DurationMs  int64           `json:"duration_ms"`
	Error       string          `json:"error,omitempty"`
	RequestBody json.RawMessage `json:"request_body,omitempty"`
	Response    json.RawMessage `json:"response,omitempty"`
}

// Tracer encodes entries onto a writer. The first write error disables it.
type Tracer struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closer io.Closer
	err    error
}

// NewTracer writes entries to w. If w is an io.Closer, Close closes it.
func NewTracer(w io.Writer) *Tracer {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	t := &Tracer{enc: enc}
	if c, ok := w.(io.Closer); ok {
		t.closer = c
	}
	return t
}

var active atomic.Pointer[Tracer]

// EnableTracing appends provider traces to the file at path until SetTracer(nil).
// Credentials travel in headers and never reach the trace.
func EnableTracing(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) // #nosec G304 -- operator-provided path
	if err != nil {
		return fmt.Errorf("open trace file: %w", err)
	}
	SetTracer(NewTracer(f))
	return nil
}

// SetTracer installs t for the process and closes the tracer it replaces. Nil stops tracing.
func SetTracer(t *Tracer) {
	if prev := active.Swap(t); prev != nil && prev != t {
		_ = prev.Close()
	}
}

// Tracing reports whether a tracer is installed.
func Tracing() bool {
	return active.Load() != nil
}

// Trace records entry on the installed tracer, if any.
func Trace(entry TraceEntry) {
	if t := active.Load(); t != nil {
		t.Write(entry)
	}
}

func (t *Tracer) Write(entry TraceEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.enc == nil || t.err != nil {
		return
	}
	t.err = t.enc.Encode(entry)
}

// Err returns the write error that disabled the tracer.
func (t *Tracer) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Tracer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enc = nil
	if t.closer == nil {
		return nil
	}
	c := t.closer
	t.closer = nil
	return c.Close()
}

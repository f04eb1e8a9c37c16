package openai

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/scoutline/scoutline/internal/ailink/driver"
	"github.com/scoutline/scoutline/internal/sse"
)

const streamReadSize = 4096

// deltaStream decodes `data:` framed chunks into content deltas. Malformed frames,
// reasoning-only deltas and the [DONE] sentinel are skipped.
type deltaStream struct {
	body    io.ReadCloser
	lines   sse.LineBuffer
	pending []string
	readBuf []byte
	eof     bool
	skipped int
}

func newDeltaStream(body io.ReadCloser) *deltaStream {
	return &deltaStream{body: body, readBuf: make([]byte, streamReadSize)}
}

// Recv returns the next non-empty content delta, or io.EOF when the body is exhausted.
func (s *deltaStream) Recv() (string, error) {
	for {
		for len(s.pending) > 0 {
			line := s.pending[0]
			s.pending = s.pending[1:]
			if delta, ok := s.decode(line); ok {
				return delta, nil
			}
		}
		if s.eof {
			return "", io.EOF
		}

		n, err := s.body.Read(s.readBuf)
		if n > 0 {
			s.pending = append(s.pending, s.lines.Feed(s.readBuf[:n])...)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return "", &driver.ProviderError{Provider: providerName, Message: "read stream", Err: err}
			}
			s.eof = true
			if rest := s.lines.Flush(); rest != "" {
				s.pending = append(s.pending, rest)
			}
		}
	}
}

// Close releases the underlying response body.
func (s *deltaStream) Close() error {
	return s.body.Close()
}

// Skipped reports how many malformed data frames were ignored.
func (s *deltaStream) Skipped() int {
	return s.skipped
}

func (s *deltaStream) decode(line string) (string, bool) {
	data, ok := sse.DataPayload(line)
	if !ok || data == sse.DoneSentinel {
		return "", false
	}

	var frame completion
	if err := json.Unmarshal([]byte(data), &frame); err != nil {
		s.skipped++
		return "", false
	}
	delta := frame.delta()
	return delta, delta != ""
}

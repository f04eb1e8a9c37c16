package sse

import (
	"bytes"
	"strings"
)

// LineBuffer splits a byte stream into lines across arbitrary read boundaries. Completed
// lines are returned from Feed; a trailing partial line is carried until more bytes arrive.
type LineBuffer struct {
	carry []byte
}

// Feed appends chunk and returns every line it completes, without line terminators.
func (b *LineBuffer) Feed(chunk []byte) []string {
	b.carry = append(b.carry, chunk...)

	var lines []string
	for {
		idx := bytes.IndexByte(b.carry, '\n')
		if idx < 0 {
			break
		}
		lines = append(lines, strings.TrimSuffix(string(b.carry[:idx]), "\r"))
		b.carry = b.carry[idx+1:]
	}
	if len(b.carry) == 0 {
		b.carry = nil
	}
	return lines
}

// Flush returns and clears any carried partial line.
func (b *LineBuffer) Flush() string {
	rest := strings.TrimSuffix(string(b.carry), "\r")
	b.carry = nil
	return rest
}

// DataPayload extracts the payload of a `data:` line. ok is false for blank lines,
// comments and other field types.
func DataPayload(line string) (payload string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "data:") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(trimmed, "data:")), true
}

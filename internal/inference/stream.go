package inference

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"strings"
	"unicode"

	"llamabot/pkg/types"
)

// StreamReader decodes a newline-delimited JSON generate response.
// Lines that are not a JSON object carrying both "response" and "done" are
// skipped and counted.
// A StreamReader is single-use: the body is consumed once.
type StreamReader struct {
	reader  *bufio.Reader
	dropped int
	err     error
}

// NewStreamReader wraps r.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{reader: bufio.NewReader(r)}
}

// All yields decoded messages in arrival order until the body ends or a read fails.
// Check Err after the loop.
func (s *StreamReader) All() iter.Seq[types.StreamMessage] {
	return func(yield func(types.StreamMessage) bool) {
		for {
			line, err := s.reader.ReadBytes('\n')
			if len(bytes.TrimSpace(line)) > 0 {
				if msg, ok := decodeLine(line); !ok {
					s.dropped++
				} else if !yield(msg) {
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					s.err = err
				}
				return
			}
		}
	}
}

// streamLine mirrors types.StreamMessage with the required fields as pointers
// so that absent keys can be told apart from zero values.
type streamLine struct {
	Model     string  `json:"model"`
	CreatedAt string  `json:"created_at"`
	Response  *string `json:"response"`
	Done      *bool   `json:"done"`
}

// decodeLine reports ok == false for anything but an object with both
// "response" and "done", including null and error objects.
func decodeLine(line []byte) (types.StreamMessage, bool) {
	var l streamLine
	if err := json.Unmarshal(line, &l); err != nil || l.Response == nil || l.Done == nil {
		return types.StreamMessage{}, false
	}
	return types.StreamMessage{Model: l.Model, CreatedAt: l.CreatedAt, Response: *l.Response, Done: *l.Done}, true
}

// Err returns the first non-EOF read error, if any.
func (s *StreamReader) Err() error { return s.err }

// Dropped is the number of non-blank lines that were skipped.
func (s *StreamReader) Dropped() int { return s.dropped }

// Stats summarises one aggregated stream.
type Stats struct {
	Fragments int // done == false messages
	Done      int // done == true messages
	Dropped   int // undecodable lines
}

// Aggregate concatenates the response fragment of every message with done == false
// and strips leading whitespace from the result. A body with no usable messages
// yields "" and no error.
func Aggregate(r io.Reader) (string, Stats, error) {
	sr := NewStreamReader(r)
	var (
		b     strings.Builder
		stats Stats
	)
	for msg := range sr.All() {
		if msg.Done {
			stats.Done++
			continue
		}
		stats.Fragments++
		b.WriteString(msg.Response)
	}
	stats.Dropped = sr.Dropped()
	if err := sr.Err(); err != nil {
		return "", stats, err
	}
	return strings.TrimLeftFunc(b.String(), unicode.IsSpace), stats, nil
}

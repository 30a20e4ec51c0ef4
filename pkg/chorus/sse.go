package chorus

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"time"
)

// StreamEvent is a single server-sent event. Data spanning several data
// lines arrives joined with newlines. Retry is zero when the server did not
// send a retry hint.
type StreamEvent struct {
	Event string
	Data  string
	ID    string
	Retry time.Duration
}

// StreamParser incrementally parses the SSE wire format. Feed it byte
// chunks of any size; complete events come out, partial lines stay buffered
// until the terminating newline arrives. A parser instance belongs to one
// stream and is not safe for concurrent use.
type StreamParser struct {
	buf       []byte
	eventType string
	dataLines []string
	id        string
	retry     time.Duration
}

func NewStreamParser() *StreamParser {
	return &StreamParser{}
}

// Feed consumes one chunk and returns every event completed by it.
func (p *StreamParser) Feed(chunk []byte) []StreamEvent {
	p.buf = append(p.buf, chunk...)

	var events []StreamEvent
	for {
		i := bytes.IndexByte(p.buf, '\n')
		if i < 0 {
			break
		}
		line := string(p.buf[:i])
		p.buf = p.buf[i+1:]
		line = strings.TrimSuffix(line, "\r")

		if ev := p.processLine(line); ev != nil {
			events = append(events, *ev)
		}
	}
	return events
}

// Reset discards buffered input and the in-progress event.
func (p *StreamParser) Reset() {
	p.buf = nil
	p.resetEvent()
}

func (p *StreamParser) resetEvent() {
	p.eventType = ""
	p.dataLines = nil
	p.id = ""
	p.retry = 0
}

// processLine handles one complete line. A blank line flushes the current
// event when data has been accumulated; otherwise it is ignored.
func (p *StreamParser) processLine(line string) *StreamEvent {
	if line == "" {
		if len(p.dataLines) == 0 {
			return nil
		}
		ev := &StreamEvent{
			Event: p.eventType,
			Data:  strings.Join(p.dataLines, "\n"),
			ID:    p.id,
			Retry: p.retry,
		}
		p.resetEvent()
		return ev
	}

	// Comment line
	if strings.HasPrefix(line, ":") {
		return nil
	}

	field, value := splitField(line)
	switch field {
	case "event":
		p.eventType = value
	case "data":
		p.dataLines = append(p.dataLines, value)
	case "id":
		p.id = value
	case "retry":
		if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
			p.retry = time.Duration(ms) * time.Millisecond
		}
	}
	// Unknown field names are ignored per the SSE format.
	return nil
}

// splitField splits an SSE line at the first colon, stripping at most one
// leading space from the value.
func splitField(line string) (string, string) {
	i := strings.IndexByte(line, ':')
	if i < 0 {
		return line, ""
	}
	field := line[:i]
	value := line[i+1:]
	if strings.HasPrefix(value, " ") {
		value = value[1:]
	}
	return field, value
}

// StreamReader pulls events one at a time from an SSE response body. It is
// a convenience layer over StreamParser for HTTP streaming.
type StreamReader struct {
	r       io.Reader
	parser  *StreamParser
	pending []StreamEvent
	chunk   []byte
}

func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{
		r:      r,
		parser: NewStreamParser(),
		chunk:  make([]byte, 4096),
	}
}

// Next returns the next complete event, or io.EOF when the stream ends.
func (sr *StreamReader) Next() (*StreamEvent, error) {
	for {
		if len(sr.pending) > 0 {
			ev := sr.pending[0]
			sr.pending = sr.pending[1:]
			return &ev, nil
		}

		n, err := sr.r.Read(sr.chunk)
		if n > 0 {
			sr.pending = sr.parser.Feed(sr.chunk[:n])
		}
		if err != nil {
			if len(sr.pending) > 0 {
				continue
			}
			return nil, err
		}
	}
}

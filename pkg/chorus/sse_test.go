package chorus

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamParser_SingleEvent(t *testing.T) {
	p := NewStreamParser()
	events := p.Feed([]byte("data: hello\n\n"))

	require.Len(t, events, 1)
	assert.Equal(t, "hello", events[0].Data)
	assert.Empty(t, events[0].Event)
}

func TestStreamParser_ByteByByteMatchesOneChunk(t *testing.T) {
	input := "event: greeting\nid: 7\ndata: hello\ndata: world\n\n"

	whole := NewStreamParser().Feed([]byte(input))

	p := NewStreamParser()
	var split []StreamEvent
	for i := 0; i < len(input); i++ {
		split = append(split, p.Feed([]byte{input[i]})...)
	}

	require.Len(t, whole, 1)
	require.Len(t, split, 1)
	assert.Equal(t, whole[0], split[0])
	assert.Equal(t, "greeting", split[0].Event)
	assert.Equal(t, "7", split[0].ID)
	assert.Equal(t, "hello\nworld", split[0].Data)
}

func TestStreamParser_MultipleDataLinesJoined(t *testing.T) {
	events := NewStreamParser().Feed([]byte("data: a\ndata: b\n\n"))
	require.Len(t, events, 1)
	assert.Equal(t, "a\nb", events[0].Data)
}

func TestStreamParser_CommentsIgnored(t *testing.T) {
	events := NewStreamParser().Feed([]byte(": keepalive\ndata: x\n: another\n\n"))
	require.Len(t, events, 1)
	assert.Equal(t, "x", events[0].Data)
}

func TestStreamParser_BlankLineWithoutDataEmitsNothing(t *testing.T) {
	events := NewStreamParser().Feed([]byte("\n\nevent: typed\n\n"))
	assert.Empty(t, events)
}

func TestStreamParser_RetryField(t *testing.T) {
	events := NewStreamParser().Feed([]byte("retry: 1500\ndata: x\n\n"))
	require.Len(t, events, 1)
	assert.Equal(t, 1500*time.Millisecond, events[0].Retry)
}

func TestStreamParser_UnknownFieldIgnored(t *testing.T) {
	events := NewStreamParser().Feed([]byte("bogus: value\ndata: x\n\n"))
	require.Len(t, events, 1)
	assert.Equal(t, "x", events[0].Data)
}

func TestStreamParser_LeadingSpaceStrippedOnce(t *testing.T) {
	events := NewStreamParser().Feed([]byte("data:  two spaces\n\n"))
	require.Len(t, events, 1)
	assert.Equal(t, " two spaces", events[0].Data)
}

func TestStreamParser_NoColonLineIsFieldWithEmptyValue(t *testing.T) {
	events := NewStreamParser().Feed([]byte("data\n\n"))
	require.Len(t, events, 1)
	assert.Equal(t, "", events[0].Data)
}

func TestStreamParser_CRLFLines(t *testing.T) {
	events := NewStreamParser().Feed([]byte("data: hi\r\n\r\n"))
	require.Len(t, events, 1)
	assert.Equal(t, "hi", events[0].Data)
}

func TestStreamParser_StateResetBetweenEvents(t *testing.T) {
	p := NewStreamParser()
	first := p.Feed([]byte("event: a\nid: 1\ndata: one\n\n"))
	second := p.Feed([]byte("data: two\n\n"))

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, "a", first[0].Event)
	assert.Empty(t, second[0].Event)
	assert.Empty(t, second[0].ID)
}

func TestStreamReader_PullsEventsUntilEOF(t *testing.T) {
	body := strings.NewReader("data: first\n\nevent: audio_output\ndata: second\n\n")
	reader := NewStreamReader(body)

	ev, err := reader.Next()
	require.NoError(t, err)
	assert.Equal(t, "first", ev.Data)

	ev, err = reader.Next()
	require.NoError(t, err)
	assert.Equal(t, "audio_output", ev.Event)
	assert.Equal(t, "second", ev.Data)

	_, err = reader.Next()
	assert.Equal(t, io.EOF, err)
}

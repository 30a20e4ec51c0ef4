package chorus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateTranscriptHandler_FiltersType(t *testing.T) {
	var texts []string
	h := CreateTranscriptHandler(func(text string, final bool) {
		texts = append(texts, text)
	})

	h(&Transcript{Type: TypeTranscript, Text: "hello", Final: true})
	h(&ChatMessage{Type: TypeChatMessage, Role: "assistant", Content: "ignored"})

	assert.Equal(t, []string{"hello"}, texts)
}

func TestCreateTypeFilter(t *testing.T) {
	var seen []string
	h := CreateTypeFilter(TypeSessionEnded, func(msg ServerMessage) {
		seen = append(seen, msg.MessageType())
	})

	h(&SessionBegan{Type: TypeSessionBegan})
	h(&SessionEnded{Type: TypeSessionEnded})

	assert.Equal(t, []string{TypeSessionEnded}, seen)
}

func TestChainHandlers_RunInOrder(t *testing.T) {
	var order []string
	h := ChainHandlers(
		func(msg ServerMessage) { order = append(order, "a") },
		func(msg ServerMessage) { order = append(order, "b") },
		func(msg ServerMessage) { order = append(order, "c") },
	)

	h(&SessionBegan{Type: TypeSessionBegan})
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestSessionTracker(t *testing.T) {
	tracker := NewSessionTracker()
	h := tracker.Handler()

	h(&Transcript{Type: TypeTranscript, Text: "partial", Final: false})
	h(&Transcript{Type: TypeTranscript, Text: "how are you", Final: true})
	h(&ChatMessage{Type: TypeChatMessage, Role: "assistant", Content: "doing well"})
	h(&ChatMessage{Type: TypeChatMessage, Role: "user", Content: "echoed, not recorded"})
	h(&ChatMessage{Type: TypeChatMessage, Role: "assistant", Content: "anything else?"})

	transcripts, responses := tracker.History()
	assert.Equal(t, []string{"how are you"}, transcripts)
	assert.Equal(t, []string{"doing well", "anything else?"}, responses)
	assert.Equal(t, "anything else?", tracker.LastResponse())

	tracker.Clear()
	transcripts, responses = tracker.History()
	assert.Empty(t, transcripts)
	assert.Empty(t, responses)
	assert.Equal(t, "", tracker.LastResponse())
}

func TestAudioBase64RoundTrip(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1, -1, 0.123}
	decoded, err := DecodeAudioBase64(EncodeAudioBase64(samples))
	assert.Nil(t, err)
	assert.Equal(t, samples, decoded)
}

func TestDecodeAudioBase64_Invalid(t *testing.T) {
	_, err := DecodeAudioBase64("not base64!!!")
	assert.True(t, IsErrorCode(err, ErrCodeDecodeFailed))
}

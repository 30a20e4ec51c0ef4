package chorus

import (
	"sync"
)

// Factory functions for common typed handlers.

// CreateLoggingHandler logs every server message through the global logger.
func CreateLoggingHandler(verbose bool) ServerMessageHandler {
	logger := GetGlobalLogger().WithComponent("chat")
	return func(msg ServerMessage) {
		if verbose {
			logger.WithField("message", msg).Infof("received %s", msg.MessageType())
		} else {
			logger.Infof("received %s", msg.MessageType())
		}
	}
}

// CreateTranscriptHandler invokes callback with each transcript's text and
// finality flag.
func CreateTranscriptHandler(callback func(text string, final bool)) ServerMessageHandler {
	return func(msg ServerMessage) {
		if t, ok := msg.(*Transcript); ok {
			callback(t.Text, t.Final)
		}
	}
}

// CreateChatMessageHandler invokes callback with each assistant text turn.
func CreateChatMessageHandler(callback func(ChatMessage)) ServerMessageHandler {
	return func(msg ServerMessage) {
		if m, ok := msg.(*ChatMessage); ok {
			callback(*m)
		}
	}
}

// CreateAudioOutputHandler invokes callback with each audio segment.
func CreateAudioOutputHandler(callback func(AudioSegment)) ServerMessageHandler {
	return func(msg ServerMessage) {
		if m, ok := msg.(*AudioOutput); ok {
			callback(m.Segment)
		}
	}
}

// CreatePlaybackHandler feeds audio output straight into a player queue.
func CreatePlaybackHandler(player *AudioPlayer) ServerMessageHandler {
	return CreateAudioOutputHandler(func(segment AudioSegment) {
		player.Enqueue(segment)
	})
}

// CreateTypeFilter wraps a handler so it only sees one message type.
func CreateTypeFilter(messageType string, handler ServerMessageHandler) ServerMessageHandler {
	return func(msg ServerMessage) {
		if msg.MessageType() == messageType {
			handler(msg)
		}
	}
}

// ChainHandlers runs several handlers in order for every message.
func ChainHandlers(handlers ...ServerMessageHandler) ServerMessageHandler {
	return func(msg ServerMessage) {
		for _, h := range handlers {
			h(msg)
		}
	}
}

// SessionTracker accumulates the transcript history of a live session:
// what the user said and what the assistant answered.
type SessionTracker struct {
	mu          sync.Mutex
	transcripts []string
	responses   []string
}

func NewSessionTracker() *SessionTracker {
	return &SessionTracker{}
}

// Handler returns a ServerMessageHandler that feeds the tracker. Partial
// transcripts are ignored; only final ones are recorded.
func (st *SessionTracker) Handler() ServerMessageHandler {
	return func(msg ServerMessage) {
		switch m := msg.(type) {
		case *Transcript:
			if m.Final {
				st.mu.Lock()
				st.transcripts = append(st.transcripts, m.Text)
				st.mu.Unlock()
			}
		case *ChatMessage:
			if m.Role == "assistant" {
				st.mu.Lock()
				st.responses = append(st.responses, m.Content)
				st.mu.Unlock()
			}
		}
	}
}

// History returns copies of the recorded transcripts and responses.
func (st *SessionTracker) History() (transcripts, responses []string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	transcripts = append([]string(nil), st.transcripts...)
	responses = append([]string(nil), st.responses...)
	return transcripts, responses
}

// LastResponse returns the most recent assistant turn, or "".
func (st *SessionTracker) LastResponse() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.responses) == 0 {
		return ""
	}
	return st.responses[len(st.responses)-1]
}

// Clear empties the history.
func (st *SessionTracker) Clear() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.transcripts = nil
	st.responses = nil
}

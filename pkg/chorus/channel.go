package chorus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Client message types
const (
	TypeSessionSettings = "session_settings"
	TypeUserInput       = "user_input"
	TypeAudioInput      = "audio_input"
	TypePause           = "pause"
	TypeResume          = "resume"
)

// Server message types
const (
	TypeChatMessage  = "chat_message"
	TypeAudioOutput  = "audio_output"
	TypeTranscript   = "transcript"
	TypeSessionBegan = "session_began"
	TypeSessionEnded = "session_ended"
	TypeServerError  = "error"
)

// SessionSettings configures the live session.
type SessionSettings struct {
	Type         string `json:"type"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	Language     string `json:"language,omitempty"`
	SampleRate   int    `json:"sample_rate,omitempty"`
	AudioFormat  string `json:"audio_format,omitempty"`
}

// UserInput is a typed text turn from the user.
type UserInput struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// AudioInput is a chunk of user audio, base64-encoded.
type AudioInput struct {
	Type       string `json:"type"`
	Audio      string `json:"audio"`
	SampleRate int    `json:"sample_rate,omitempty"`
}

// PauseMessage suspends assistant output.
type PauseMessage struct {
	Type string `json:"type"`
}

// ResumeMessage resumes assistant output.
type ResumeMessage struct {
	Type string `json:"type"`
}

// ServerMessage is the tagged union of everything the server sends over a
// chat socket. The Type discriminator selects the variant.
type ServerMessage interface {
	MessageType() string
}

// ChatMessage is an assistant or user text turn echoed by the server.
type ChatMessage struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (m *ChatMessage) MessageType() string { return TypeChatMessage }

// AudioOutput is a synthesized audio segment for the current turn.
type AudioOutput struct {
	Type    string       `json:"type"`
	Segment AudioSegment `json:"segment"`
}

func (m *AudioOutput) MessageType() string { return TypeAudioOutput }

// Transcript is a partial or final transcription of user audio.
type Transcript struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

func (m *Transcript) MessageType() string { return TypeTranscript }

// SessionBegan acknowledges session start.
type SessionBegan struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

func (m *SessionBegan) MessageType() string { return TypeSessionBegan }

// SessionEnded reports server-side session termination.
type SessionEnded struct {
	Type   string `json:"type"`
	Reason string `json:"reason,omitempty"`
}

func (m *SessionEnded) MessageType() string { return TypeSessionEnded }

// ServerError is an in-band error message from the server.
type ServerError struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (m *ServerError) MessageType() string { return TypeServerError }

// DecodeServerMessage decodes a text frame in two phases: probe the type
// discriminator, then decode the matching variant. An unknown discriminator
// is a decode error, not a silent default.
func DecodeServerMessage(data []byte) (ServerMessage, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, NewDecodeError(err)
	}

	var msg ServerMessage
	switch probe.Type {
	case TypeChatMessage:
		msg = &ChatMessage{}
	case TypeAudioOutput:
		msg = &AudioOutput{}
	case TypeTranscript:
		msg = &Transcript{}
	case TypeSessionBegan:
		msg = &SessionBegan{}
	case TypeSessionEnded:
		msg = &SessionEnded{}
	case TypeServerError:
		msg = &ServerError{}
	default:
		return nil, NewDecodeError(fmt.Errorf("unknown message type %q", probe.Type))
	}

	if err := json.Unmarshal(data, msg); err != nil {
		return nil, NewDecodeError(err)
	}
	return msg, nil
}

// ChatSession is the typed channel over one WebSocket connection. Outbound
// values are JSON-encoded into text frames; inbound text frames decode
// against the server message union. Frames that fail to decode are logged
// and dropped, since several logical message kinds can share one socket.
type ChatSession struct {
	ws     *WebSocketClient
	logger *Logger

	mu            sync.Mutex
	nextHandlerID int
	handlers      []serverMessageHandlerEntry
}

type serverMessageHandlerEntry struct {
	id int
	fn ServerMessageHandler
}

// NewChatSession wraps an existing connection manager in a typed channel.
func NewChatSession(ws *WebSocketClient) *ChatSession {
	s := &ChatSession{
		ws:     ws,
		logger: GetGlobalLogger().WithComponent("chat"),
	}
	ws.AddFrameHandler(s.handleFrame)
	return s
}

// Connect opens the underlying connection.
func (s *ChatSession) Connect(ctx context.Context) error {
	return s.ws.Connect(ctx)
}

// Disconnect closes the underlying connection.
func (s *ChatSession) Disconnect() {
	s.ws.Disconnect()
}

// State returns the underlying connection state.
func (s *ChatSession) State() ConnectionState {
	return s.ws.State()
}

// OnMessage registers a typed handler, invoked in registration order for
// every decoded server message. Returns an unregister function.
func (s *ChatSession) OnMessage(handler ServerMessageHandler) func() {
	s.mu.Lock()
	id := s.nextHandlerID
	s.nextHandlerID++
	s.handlers = append(s.handlers, serverMessageHandlerEntry{id: id, fn: handler})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		for i, h := range s.handlers {
			if h.id == id {
				s.handlers = append(s.handlers[:i], s.handlers[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
	}
}

// OnError registers a handler for connection-level receive errors.
func (s *ChatSession) OnError(handler ErrorHandler) func() {
	return s.ws.AddErrorHandler(handler)
}

// OnDisconnect registers a handler fired once per disconnect.
func (s *ChatSession) OnDisconnect(handler DisconnectHandler) func() {
	return s.ws.AddDisconnectHandler(handler)
}

func (s *ChatSession) handleFrame(frame Frame) {
	if frame.Kind != TextFrame {
		s.logger.Debug("dropping non-text frame")
		return
	}
	msg, err := DecodeServerMessage([]byte(frame.Text))
	if err != nil {
		s.logger.WithError(err).Debug("dropping undecodable frame")
		return
	}

	s.mu.Lock()
	handlers := make([]serverMessageHandlerEntry, len(s.handlers))
	copy(handlers, s.handlers)
	s.mu.Unlock()

	for _, h := range handlers {
		h.fn(msg)
	}
}

// send JSON-encodes an outbound message as a text frame.
func (s *ChatSession) send(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return NewEncodeError(err)
	}
	return s.ws.SendText(string(data))
}

// UpdateSettings sends session settings for the live session.
func (s *ChatSession) UpdateSettings(settings SessionSettings) error {
	settings.Type = TypeSessionSettings
	return s.send(settings)
}

// SendText sends a user text turn.
func (s *ChatSession) SendText(text string) error {
	return s.send(UserInput{Type: TypeUserInput, Text: text})
}

// SendAudio sends a chunk of base64-encoded user audio.
func (s *ChatSession) SendAudio(audio string, sampleRate int) error {
	return s.send(AudioInput{Type: TypeAudioInput, Audio: audio, SampleRate: sampleRate})
}

// Pause suspends assistant output.
func (s *ChatSession) Pause() error {
	return s.send(PauseMessage{Type: TypePause})
}

// Resume resumes assistant output.
func (s *ChatSession) Resume() error {
	return s.send(ResumeMessage{Type: TypeResume})
}

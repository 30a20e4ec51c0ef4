package chorus

// ConnectionState enum
type ConnectionState string

const (
	Disconnected  ConnectionState = "disconnected"
	Connecting    ConnectionState = "connecting"
	Connected     ConnectionState = "connected"
	Disconnecting ConnectionState = "disconnecting"
)

// FrameKind distinguishes WebSocket payload kinds.
type FrameKind int

const (
	TextFrame FrameKind = iota
	BinaryFrame
)

// Frame is a raw WebSocket payload as delivered by the connection manager.
// Text carries the payload for TextFrame, Binary for BinaryFrame.
type Frame struct {
	Kind   FrameKind
	Text   string
	Binary []byte
}

// AudioSegment is a chunk of synthesized audio, base64-encoded PCM.
type AudioSegment struct {
	SegmentID      string  `json:"segment_id"`
	SentenceNumber int     `json:"sentence_number"`
	Audio          string  `json:"audio"`
	SampleRate     int     `json:"sample_rate"`
	Format         string  `json:"format"`
	Text           string  `json:"text,omitempty"`
	Duration       float64 `json:"duration_seconds,omitempty"`
}

// PlaybackState enum
type PlaybackState string

const (
	IdlePlayback    PlaybackState = "idle"
	PlayingPlayback PlaybackState = "playing"
	QueuedPlayback  PlaybackState = "queued"
	ErrorPlayback   PlaybackState = "error"
)

// Handler types
type FrameHandler func(Frame)
type ErrorHandler func(*Error)
type DisconnectHandler func(reason *Error)
type ServerMessageHandler func(ServerMessage)

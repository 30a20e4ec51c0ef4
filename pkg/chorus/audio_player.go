package chorus

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

// AudioPlayer queues synthesized segments and plays them through the
// default output device. Segments arrive base64-encoded; pcm_f32le is the
// only supported format. Playback runs on its own goroutine, one segment
// at a time in enqueue order.
type AudioPlayer struct {
	bufferSize int
	channels   int
	logger     *Logger

	mu            sync.Mutex
	queue         []AudioSegment
	current       *AudioSegment
	state         PlaybackState
	errorHandlers []ErrorHandler
}

func NewAudioPlayer() (*AudioPlayer, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, WrapError(err, ErrCodeUnknown).AddDetail("subsystem", "portaudio")
	}
	return &AudioPlayer{
		bufferSize: 1024,
		channels:   1,
		state:      IdlePlayback,
		logger:     GetGlobalLogger().WithComponent("audio"),
	}, nil
}

// Close releases the audio subsystem. The player is unusable afterwards.
func (ap *AudioPlayer) Close() {
	ap.mu.Lock()
	ap.queue = nil
	ap.current = nil
	ap.state = IdlePlayback
	ap.mu.Unlock()
	_ = portaudio.Terminate()
}

// Enqueue adds a segment to the playback queue, starting playback if idle.
// Duplicate segment id / sentence number pairs are skipped.
func (ap *AudioPlayer) Enqueue(segment AudioSegment) {
	ap.mu.Lock()
	defer ap.mu.Unlock()

	for _, s := range ap.queue {
		if s.SegmentID == segment.SegmentID && s.SentenceNumber == segment.SentenceNumber {
			ap.logger.WithField("segment_id", segment.SegmentID).Debug("duplicate segment skipped")
			return
		}
	}
	ap.queue = append(ap.queue, segment)

	if ap.state != PlayingPlayback {
		go ap.playNext()
	}
}

// Clear drops everything still queued.
func (ap *AudioPlayer) Clear() {
	ap.mu.Lock()
	defer ap.mu.Unlock()
	ap.queue = nil
	ap.current = nil
	ap.state = IdlePlayback
}

// State returns the current playback state.
func (ap *AudioPlayer) State() PlaybackState {
	ap.mu.Lock()
	defer ap.mu.Unlock()
	return ap.state
}

// Wait blocks until the queue drains or the timeout passes.
func (ap *AudioPlayer) Wait(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		ap.mu.Lock()
		idle := ap.state != PlayingPlayback && len(ap.queue) == 0
		ap.mu.Unlock()
		if idle {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// AddErrorHandler registers a handler for playback errors.
func (ap *AudioPlayer) AddErrorHandler(handler ErrorHandler) {
	ap.mu.Lock()
	ap.errorHandlers = append(ap.errorHandlers, handler)
	ap.mu.Unlock()
}

func (ap *AudioPlayer) handleError(err *Error) {
	ap.logger.LogError(err)
	ap.mu.Lock()
	handlers := make([]ErrorHandler, len(ap.errorHandlers))
	copy(handlers, ap.errorHandlers)
	ap.mu.Unlock()
	for _, h := range handlers {
		h(err)
	}
}

func (ap *AudioPlayer) playNext() {
	ap.mu.Lock()
	if len(ap.queue) == 0 || ap.state == PlayingPlayback {
		ap.mu.Unlock()
		return
	}
	segment := ap.queue[0]
	ap.queue = ap.queue[1:]
	ap.current = &segment
	ap.state = PlayingPlayback
	ap.mu.Unlock()

	if err := ap.playSegment(segment); err != nil {
		ap.handleError(err)
		ap.mu.Lock()
		ap.state = ErrorPlayback
		ap.current = nil
		ap.mu.Unlock()
		go ap.playNext()
		return
	}

	ap.mu.Lock()
	ap.current = nil
	if len(ap.queue) == 0 {
		ap.state = IdlePlayback
	} else {
		ap.state = QueuedPlayback
	}
	ap.mu.Unlock()

	go ap.playNext()
}

func (ap *AudioPlayer) playSegment(segment AudioSegment) *Error {
	samples, cerr := DecodeAudioBase64(segment.Audio)
	if cerr != nil {
		return cerr
	}
	if len(samples) == 0 {
		return nil
	}

	sampleRate := segment.SampleRate
	if sampleRate <= 0 {
		sampleRate = 24000
	}

	done := make(chan struct{}, 1)
	sampleIndex := 0
	var feedMu sync.Mutex

	stream, err := portaudio.OpenDefaultStream(0, ap.channels, float64(sampleRate), ap.bufferSize, func(out []float32) {
		feedMu.Lock()
		defer feedMu.Unlock()
		for i := range out {
			if sampleIndex < len(samples) {
				out[i] = samples[sampleIndex]
				sampleIndex++
			} else {
				out[i] = 0.0
			}
		}
		if sampleIndex >= len(samples) {
			select {
			case done <- struct{}{}:
			default:
			}
		}
	})
	if err != nil {
		return WrapError(err, ErrCodeUnknown).AddDetail("segment_id", segment.SegmentID)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return WrapError(err, ErrCodeUnknown).AddDetail("segment_id", segment.SegmentID)
	}

	expected := time.Duration(float64(len(samples)) / float64(sampleRate) * 1.5 * float64(time.Second))
	select {
	case <-done:
	case <-time.After(expected):
		ap.logger.WithField("segment_id", segment.SegmentID).Warn("playback timed out")
	}

	if err := stream.Stop(); err != nil {
		return WrapError(err, ErrCodeUnknown).AddDetail("segment_id", segment.SegmentID)
	}
	return nil
}

// DecodeAudioBase64 decodes base64 pcm_f32le audio into float32 samples.
func DecodeAudioBase64(encoded string) ([]float32, *Error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, NewDecodeError(fmt.Errorf("decode audio: %w", err))
	}
	samples := make([]float32, len(raw)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(raw[i*4 : (i+1)*4])
		samples[i] = math.Float32frombits(bits)
	}
	return samples, nil
}

// EncodeAudioBase64 encodes float32 samples as base64 pcm_f32le.
func EncodeAudioBase64(samples []float32) string {
	raw := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(raw[i*4:(i+1)*4], math.Float32bits(s))
	}
	return base64.StdEncoding.EncodeToString(raw)
}

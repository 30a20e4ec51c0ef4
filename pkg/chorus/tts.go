package chorus

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
)

// SynthesisRequest describes a speech synthesis call.
type SynthesisRequest struct {
	Text         string  `json:"text"`
	Voice        string  `json:"voice,omitempty"`
	Format       string  `json:"format,omitempty"`
	SampleRate   int     `json:"sample_rate,omitempty"`
	SpeakingRate float64 `json:"speaking_rate,omitempty"`
}

// SynthesisResponse is the JSON form of a synthesis result.
type SynthesisResponse struct {
	RequestID string         `json:"request_id"`
	Segments  []AudioSegment `json:"segments"`
}

// Synthesize returns the synthesized audio as raw bytes in the requested
// format.
func (c *Client) Synthesize(ctx context.Context, req SynthesisRequest) ([]byte, error) {
	accept := "audio/wav"
	if req.Format == "mp3" {
		accept = "audio/mpeg"
	}
	return c.api.Do(ctx, http.MethodPost, "/v1/tts", req, WithAccept(accept))
}

// SynthesizeJSON returns the synthesis result as base64 segments with
// per-segment metadata.
func (c *Client) SynthesizeJSON(ctx context.Context, req SynthesisRequest) (*SynthesisResponse, error) {
	resp, err := postJSON[SynthesisResponse](ctx, c.api, "/v1/tts/json", req)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// SynthesizeStream streams synthesis output as server-sent events and
// invokes fn for each audio segment as it arrives. A non-nil error from fn
// stops the stream. Streaming calls are not retried.
func (c *Client) SynthesizeStream(ctx context.Context, req SynthesisRequest, fn func(AudioSegment) error) error {
	body, cerr := c.api.stream(ctx, http.MethodPost, "/v1/tts/stream", req,
		WithAccept("text/event-stream"))
	if cerr != nil {
		return cerr
	}
	defer body.Close()

	reader := NewStreamReader(body)
	for {
		ev, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return WrapError(err, ErrCodeNoConnection)
		}

		switch ev.Event {
		case "done":
			return nil
		case "error":
			return NewError(ev.Data, ErrCodeAPI)
		case "", "audio_output":
			var segment AudioSegment
			if err := json.Unmarshal([]byte(ev.Data), &segment); err != nil {
				c.logger.WithError(err).Debug("dropping undecodable stream event")
				continue
			}
			if err := fn(segment); err != nil {
				return err
			}
		}
	}
}

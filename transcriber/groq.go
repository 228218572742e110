package transcriber

import (
	"context"
	"encoding/json"
	"fmt"
)

const groqModel = "whisper-large-v3-turbo"

type Groq struct {
	baseTranscriber
	apiKey string
}

func NewGroq(apiKey string) *Groq {
	apiURL := "https://api.groq.com/openai/v1/audio/transcriptions"
	return &Groq{
		baseTranscriber: baseTranscriber{
			client: NewTracedClient(apiURL),
			apiURL: apiURL,
		},
		apiKey: apiKey,
	}
}

func (g *Groq) Name() string { return "groq" }

func (g *Groq) Transcribe(ctx context.Context, audio []byte, format string) (*Result, error) {
	resp, err := g.upload(ctx, g.apiKey, groqModel, audio, format)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("groq API error %d: %s", resp.StatusCode, string(resp.Body))
	}

	// Groq additionally reports the audio duration it decoded.
	var decoded struct {
		Text     string  `json:"text"`
		Duration float64 `json:"duration"`
	}
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return nil, fmt.Errorf("groq response parse error: %w", err)
	}

	return &Result{
		Text:      decoded.Text,
		Duration:  decoded.Duration,
		Metrics:   resp.Metrics,
		RateLimit: rateLimitLine(resp.Header),
	}, nil
}

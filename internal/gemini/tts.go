package gemini

import (
	"context"
	"encoding/json"
	"fmt"
)

// synthesisRequest is the text-to-speech request body
type synthesisRequest struct {
	Text string `json:"text"`
}

// TTSClient calls the text-to-speech endpoint.
type TTSClient struct {
	*transport
}

// NewTTSClient creates a synthesis client for endpoint.
func NewTTSClient(cred Credential, endpoint string, opts ...Option) (*TTSClient, error) {
	t, err := newTransport("TTS", cred, endpoint, newSettings(opts))
	if err != nil {
		return nil, err
	}
	return &TTSClient{transport: t}, nil
}

// Synthesize posts text and returns the decoded result, which references or
// contains the generated audio.
func (c *TTSClient) Synthesize(ctx context.Context, text string) (any, error) {
	body, err := json.Marshal(synthesisRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.post(ctx, "application/json", body)
}

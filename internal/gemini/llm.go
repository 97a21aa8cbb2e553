package gemini

import (
	"context"
	"encoding/json"
	"fmt"
)

// inferenceRequest is the language-model request body
type inferenceRequest struct {
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens"`
}

// LLMClient calls the language-model endpoint.
type LLMClient struct {
	*transport
	maxTokens int
}

// NewLLMClient creates an inference client for endpoint.
func NewLLMClient(cred Credential, endpoint string, opts ...Option) (*LLMClient, error) {
	s := newSettings(opts)
	if s.maxTokens <= 0 {
		return nil, fmt.Errorf("max tokens must be positive, got %d", s.maxTokens)
	}
	t, err := newTransport("LLM", cred, endpoint, s)
	if err != nil {
		return nil, err
	}
	return &LLMClient{transport: t, maxTokens: s.maxTokens}, nil
}

// Infer posts the prompt with the configured max_tokens.
func (c *LLMClient) Infer(ctx context.Context, prompt string) (any, error) {
	body, err := json.Marshal(inferenceRequest{Prompt: prompt, MaxTokens: c.maxTokens})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.post(ctx, "application/json", body)
}

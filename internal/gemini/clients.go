package gemini

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/voice-agent/internal/agent"
	"github.com/lexiqai/voice-agent/internal/config"
	"github.com/lexiqai/voice-agent/internal/observability"
	"github.com/lexiqai/voice-agent/internal/resilience"
)

var (
	_ agent.Transcriber = (*STTClient)(nil)
	_ agent.Synthesizer = (*TTSClient)(nil)
	_ agent.Inferencer  = (*LLMClient)(nil)
)

// Clients bundles the three capability clients built from one configuration.
type Clients struct {
	STT *STTClient
	TTS *TTSClient
	LLM *LLMClient
}

// NewClients builds all three clients with the configured credential,
// endpoints and resilience settings.
func NewClients(cfg *config.Config, logger zerolog.Logger) (*Clients, error) {
	cred := Credential(cfg.GeminiAPIKey)
	opts := []Option{
		WithTimeout(cfg.HTTPTimeout()),
		WithRetry(&resilience.RetryConfig{
			MaxAttempts:       cfg.RetryMaxAttempts,
			InitialBackoff:    time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
			MaxBackoff:        5 * time.Second,
			BackoffMultiplier: 2.0,
			Jitter:            true,
		}),
		WithCircuitBreaker(cfg.CircuitBreakerMaxFailures, time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second),
		WithRateLimit(cfg.GeminiRequestsPerSec),
		WithLogger(logger),
		WithAudioContentType(cfg.GeminiSTTContentType),
		WithUploadMode(cfg.GeminiSTTUpload),
		WithMaxTokens(cfg.GeminiMaxTokens),
	}

	stt, err := NewSTTClient(cred, cfg.GeminiSTTURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create STT client: %w", err)
	}
	tts, err := NewTTSClient(cred, cfg.GeminiTTSURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create TTS client: %w", err)
	}
	llm, err := NewLLMClient(cred, cfg.GeminiLLMURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	return &Clients{STT: stt, TTS: tts, LLM: llm}, nil
}

// Capabilities exposes the clients as agent callbacks.
func (c *Clients) Capabilities() agent.Capabilities {
	return agent.Capabilities{STT: c.STT, TTS: c.TTS, LLM: c.LLM}
}

// ReadinessChecks returns one check per capability, keyed for /ready.
func (c *Clients) ReadinessChecks() map[string]observability.HealthCheckFunc {
	return map[string]observability.HealthCheckFunc{
		"gemini_stt": c.STT.Ready,
		"gemini_tts": c.TTS.Ready,
		"gemini_llm": c.LLM.Ready,
	}
}

package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/lexiqai/voice-agent/internal/observability"
	"github.com/lexiqai/voice-agent/internal/resilience"
)

const (
	defaultTimeout             = 30 * time.Second
	defaultBreakerMaxFailures  = 5
	defaultBreakerResetTimeout = 30 * time.Second
	defaultMaxTokens           = 100
	defaultAudioContentType    = "audio/wav"
)

// Upload modes for transcription payloads.
const (
	UploadMultipart = "multipart"
	UploadRaw       = "raw"
)

type settings struct {
	httpClient          *http.Client
	timeout             time.Duration
	retry               *resilience.RetryConfig
	breakerMaxFailures  int
	breakerResetTimeout time.Duration
	requestsPerSecond   float64
	logger              *zerolog.Logger

	audioContentType string
	uploadMode       string
	maxTokens        int
}

// Option configures a capability client.
type Option func(*settings)

// WithHTTPClient replaces the default HTTP client. The client's own Timeout
// wins over WithTimeout.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) { s.httpClient = c }
}

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.timeout = d }
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg *resilience.RetryConfig) Option {
	return func(s *settings) { s.retry = cfg }
}

// WithCircuitBreaker sets the breaker thresholds.
func WithCircuitBreaker(maxFailures int, resetTimeout time.Duration) Option {
	return func(s *settings) {
		s.breakerMaxFailures = maxFailures
		s.breakerResetTimeout = resetTimeout
	}
}

// WithRateLimit caps outbound requests per second. Zero disables the limiter.
func WithRateLimit(rps float64) Option {
	return func(s *settings) { s.requestsPerSecond = rps }
}

// WithLogger sets the logger used for per-attempt logging.
func WithLogger(l zerolog.Logger) Option {
	return func(s *settings) { s.logger = &l }
}

// WithAudioContentType sets the declared audio format for transcription.
func WithAudioContentType(ct string) Option {
	return func(s *settings) { s.audioContentType = ct }
}

// WithUploadMode selects UploadMultipart or UploadRaw for transcription.
func WithUploadMode(mode string) Option {
	return func(s *settings) { s.uploadMode = mode }
}

// WithMaxTokens sets the max_tokens parameter sent with inference requests.
func WithMaxTokens(n int) Option {
	return func(s *settings) { s.maxTokens = n }
}

func newSettings(opts []Option) settings {
	s := settings{
		timeout:             defaultTimeout,
		retry:               resilience.DefaultRetryConfig(),
		breakerMaxFailures:  defaultBreakerMaxFailures,
		breakerResetTimeout: defaultBreakerResetTimeout,
		audioContentType:    defaultAudioContentType,
		uploadMode:          UploadMultipart,
		maxTokens:           defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// transport is the request path shared by the three capability clients.
// It is safe for concurrent use: the credential and endpoint are immutable,
// and the limiter and breaker synchronize internally.
type transport struct {
	capability string
	endpoint   string
	credential Credential
	httpClient *http.Client
	retry      *resilience.RetryConfig
	breaker    *resilience.CircuitBreaker
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

func newTransport(capability string, cred Credential, endpoint string, s settings) (*transport, error) {
	if cred == "" {
		return nil, ErrMissingCredential
	}
	if endpoint == "" {
		return nil, fmt.Errorf("gemini %s endpoint is required", capability)
	}

	httpClient := s.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: s.timeout}
	}

	logger := observability.GetLogger()
	if s.logger != nil {
		logger = *s.logger
	}

	breakerName := "gemini_" + strings.ToLower(capability)
	t := &transport{
		capability: capability,
		endpoint:   endpoint,
		credential: cred,
		httpClient: httpClient,
		retry:      s.retry,
		breaker: resilience.NewCircuitBreaker(
			breakerName,
			s.breakerMaxFailures,
			s.breakerResetTimeout,
			resilience.WithFailurePredicate(IsTransient),
			resilience.WithStateChange(func(name string, state resilience.CircuitState) {
				observability.UpdateCircuitBreakerState(name, int(state))
			}),
		),
		logger: logger.With().Str("component", breakerName).Logger(),
	}
	if s.requestsPerSecond > 0 {
		burst := int(s.requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(s.requestsPerSecond), burst)
	}
	return t, nil
}

// Ready reports false while the capability's circuit breaker is open. The
// error carries the breaker's lifetime failure counts for /ready.
func (t *transport) Ready(ctx context.Context) (bool, error) {
	state, requests, failures, _ := t.breaker.GetStats()
	if state == resilience.StateOpen {
		return false, fmt.Errorf("gemini %s: %w (%d of %d requests failed)",
			t.capability, resilience.ErrCircuitOpen, failures, requests)
	}
	return true, nil
}

// post sends body to the endpoint under the breaker and retry policy and
// returns the decoded JSON response.
func (t *transport) post(ctx context.Context, contentType string, body []byte) (any, error) {
	var result any
	err := t.breaker.Call(func() error {
		return resilience.Retry(ctx, func(ctx context.Context, attempt int) error {
			if attempt > 0 {
				observability.RecordRemoteRetry(t.capability)
			}
			var err error
			result, err = t.do(ctx, attempt, contentType, body)
			return err
		}, t.retry, IsTransient)
	})

	if errors.Is(err, resilience.ErrCircuitOpen) {
		return nil, fmt.Errorf("gemini %s: %w", t.capability, err)
	}
	if err != nil {
		if IsTransient(err) {
			observability.IncrementCircuitBreakerFailures(t.breaker.Name())
		}
		return nil, err
	}
	return result, nil
}

func (t *transport) do(ctx context.Context, attempt int, contentType string, body []byte) (any, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("gemini %s rate limiter: %w", t.capability, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini %s request: %w", t.capability, err)
	}
	req.Header.Set("Authorization", t.credential.Bearer())
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := t.httpClient.Do(req)
	if err != nil {
		observability.RecordRemoteCall(t.capability, 0, time.Since(start))
		t.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("Request failed")
		return nil, fmt.Errorf("gemini %s request failed: %w", t.capability, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	latency := time.Since(start)
	observability.RecordRemoteCall(t.capability, resp.StatusCode, latency)
	if err != nil {
		return nil, resilience.NewRetryableError(fmt.Errorf("failed to read gemini %s response: %w", t.capability, err))
	}

	t.logger.Debug().
		Int("attempt", attempt+1).
		Int("status", resp.StatusCode).
		Int("request_bytes", len(body)).
		Int("response_bytes", len(respBody)).
		Dur("latency", latency).
		Msg("Request completed")

	if resp.StatusCode != http.StatusOK {
		return nil, &RemoteCallError{
			Capability: t.capability,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	var result any
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to decode gemini %s response: %w", t.capability, err)
	}
	return result, nil
}

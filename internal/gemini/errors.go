package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/lexiqai/voice-agent/internal/resilience"
)

// RemoteCallError is returned when a capability endpoint answers with
// anything other than 200. Body is the raw response text.
type RemoteCallError struct {
	Capability string
	StatusCode int
	Body       string
}

func (e *RemoteCallError) Error() string {
	return fmt.Sprintf("gemini %s API error: %s", e.Capability, e.Body)
}

// Detail returns the remote response body verbatim.
func (e *RemoteCallError) Detail() string {
	return e.Body
}

// Temporary reports whether the status is worth retrying.
func (e *RemoteCallError) Temporary() bool {
	switch e.StatusCode {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsTransient classifies an error from a capability call. Caller
// cancellation is never transient; transport failures, retryable statuses
// and errors marked with resilience.NewRetryableError are.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var remoteErr *RemoteCallError
	if errors.As(err, &remoteErr) {
		return remoteErr.Temporary()
	}

	if resilience.IsRetryable(err) {
		return true
	}

	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

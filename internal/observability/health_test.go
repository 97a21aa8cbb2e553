package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestHealthCheckHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthCheckHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var status HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if status.Status != "healthy" || status.Service != "voice-agent" {
		t.Errorf("Unexpected status %+v", status)
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]HealthCheckFunc
		wantCode   int
		wantStatus string
		unhealthy  string
	}{
		{
			name:       "no checks",
			checks:     nil,
			wantCode:   http.StatusOK,
			wantStatus: "ready",
		},
		{
			name: "all healthy",
			checks: map[string]HealthCheckFunc{
				"gemini_stt": func(ctx context.Context) (bool, error) { return true, nil },
				"rooms":      func(ctx context.Context) (bool, error) { return true, nil },
			},
			wantCode:   http.StatusOK,
			wantStatus: "ready",
		},
		{
			name: "one failing",
			checks: map[string]HealthCheckFunc{
				"gemini_stt": func(ctx context.Context) (bool, error) { return true, nil },
				"gemini_llm": func(ctx context.Context) (bool, error) { return false, errors.New("circuit breaker is open") },
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "not_ready",
			unhealthy:  "gemini_llm",
		},
		{
			name: "unhealthy without error",
			checks: map[string]HealthCheckFunc{
				"rooms": func(ctx context.Context) (bool, error) { return false, nil },
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "not_ready",
			unhealthy:  "rooms",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ReadinessHandler(tt.checks)(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("Expected %d, got %d", tt.wantCode, rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Expected application/json, got %s", ct)
			}

			var status HealthStatus
			if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
				t.Fatalf("Failed to decode body: %v", err)
			}
			if status.Status != tt.wantStatus {
				t.Errorf("Expected status %s, got %s", tt.wantStatus, status.Status)
			}
			if len(status.Dependencies) != len(tt.checks) {
				t.Errorf("Expected %d dependencies, got %d", len(tt.checks), len(status.Dependencies))
			}
			if tt.unhealthy != "" && status.Dependencies[tt.unhealthy].Status != "unhealthy" {
				t.Errorf("Expected %s unhealthy, got %+v", tt.unhealthy, status.Dependencies[tt.unhealthy])
			}
		})
	}
}

func TestReadinessHandler_CheckSeesDeadline(t *testing.T) {
	var deadline time.Time
	checks := map[string]HealthCheckFunc{
		"rooms": func(ctx context.Context) (bool, error) {
			deadline, _ = ctx.Deadline()
			return true, nil
		},
	}

	rec := httptest.NewRecorder()
	ReadinessHandler(checks)(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if deadline.IsZero() {
		t.Error("Expected readiness checks to run with a deadline")
	}
}

func TestInitLogger_LevelAndFields(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	initLogger(&buf, "warn", false)

	globalLogger.Info().Msg("hidden")
	globalLogger.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("Expected info message to be filtered at warn level")
	}
	if !strings.Contains(out, `"service":"voice-agent"`) {
		t.Errorf("Expected service field, got %s", out)
	}
}

func TestInitLogger_InvalidLevelFallsBackToInfo(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	initLogger(&buf, "chatty", false)

	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("Expected info level, got %s", zerolog.GlobalLevel())
	}
}

func TestNewCorrelationID(t *testing.T) {
	if NewCorrelationID() == NewCorrelationID() {
		t.Error("Expected unique correlation IDs")
	}
}

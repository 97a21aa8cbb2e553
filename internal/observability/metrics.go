package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voice_agent_active_sessions",
		Help: "Number of rooms the agent is currently serving",
	})

	totalSessions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_agent_sessions_total",
		Help: "Total number of agent sessions started",
	})

	sessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voice_agent_session_duration_seconds",
		Help:    "Duration of agent sessions in seconds",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
	})

	// Turn metrics
	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_agent_turns_total",
		Help: "Total number of user turns handled",
	}, []string{"kind", "status"})

	turnLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voice_agent_turn_latency_seconds",
		Help:    "Time from receiving a turn to publishing its last event",
		Buckets: []float64{0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	}, []string{"kind"})

	// Remote capability metrics
	remoteRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_agent_remote_requests_total",
		Help: "Total number of outbound capability requests by HTTP status",
	}, []string{"capability", "status"})

	remoteLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voice_agent_remote_latency_seconds",
		Help:    "Outbound capability request latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	}, []string{"capability"})

	remoteRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_agent_remote_retries_total",
		Help: "Total number of retried capability requests",
	}, []string{"capability"})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_agent_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "voice_agent_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_agent_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})

	// Audio metrics
	audioBytesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_agent_audio_bytes_total",
		Help: "Total audio bytes exchanged with rooms",
	}, []string{"direction"}) // direction: "in" or "out"
)

// SessionMetrics tracks metrics for one room session
type SessionMetrics struct {
	room      string
	startTime time.Time
}

// NewSessionMetrics creates a new metrics tracker for a room session
func NewSessionMetrics(room string) *SessionMetrics {
	return &SessionMetrics{
		room:      room,
		startTime: time.Now(),
	}
}

// RecordSessionStart records the start of a session
func (m *SessionMetrics) RecordSessionStart() {
	activeSessions.Inc()
	totalSessions.Inc()
}

// RecordSessionEnd records the end of a session
func (m *SessionMetrics) RecordSessionEnd() {
	activeSessions.Dec()
	sessionDuration.Observe(time.Since(m.startTime).Seconds())
}

// RecordTurn records a handled turn. kind is "audio" or "text".
func (m *SessionMetrics) RecordTurn(kind string, success bool, latency time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	turnsTotal.WithLabelValues(kind, status).Inc()
	turnLatency.WithLabelValues(kind).Observe(latency.Seconds())
}

// RecordError records an error
func (m *SessionMetrics) RecordError(errorType, component string) {
	RecordError(errorType, component)
}

// RecordAudioBytes records audio bytes processed
func (m *SessionMetrics) RecordAudioBytes(direction string, bytes int64) {
	audioBytesProcessed.WithLabelValues(direction).Add(float64(bytes))
}

// RecordRemoteCall records one outbound attempt. statusCode is zero when the
// request never got a response.
func RecordRemoteCall(capability string, statusCode int, latency time.Duration) {
	status := "transport_error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	remoteRequests.WithLabelValues(capability, status).Inc()
	remoteLatency.WithLabelValues(capability).Observe(latency.Seconds())
}

// RecordRemoteRetry records that a capability request is being retried.
func RecordRemoteRetry(capability string) {
	remoteRetries.WithLabelValues(capability).Inc()
}

// RecordError records an error outside a session, e.g. a dropped room packet.
func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}

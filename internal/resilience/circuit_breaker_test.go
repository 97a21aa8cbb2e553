package resilience

import (
	"errors"
	"testing"
	"time"
)

func openBreaker(cb *CircuitBreaker, failures int) {
	for i := 0; i < failures; i++ {
		cb.RecordResult(false)
	}
}

func TestCircuitBreaker_StateClosed(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, 1*time.Second)

	if cb.GetState() != StateClosed {
		t.Errorf("Expected initial state to be Closed, got %s", cb.GetState())
	}
	if !cb.allowRequest() {
		t.Error("Expected to allow request in Closed state")
	}
}

func TestCircuitBreaker_OpenAfterFailures(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, 1*time.Second)

	openBreaker(cb, 2)
	if cb.GetState() != StateClosed {
		t.Error("Expected state to still be Closed after 2 failures")
	}

	cb.RecordResult(false)
	if cb.GetState() != StateOpen {
		t.Error("Expected state to be Open after 3 failures")
	}
	if cb.allowRequest() {
		t.Error("Expected to not allow request in Open state")
	}
}

func TestCircuitBreaker_HalfOpen(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, 50*time.Millisecond)
	openBreaker(cb, 3)

	time.Sleep(80 * time.Millisecond)

	if !cb.allowRequest() {
		t.Error("Expected to allow request after timeout (HalfOpen)")
	}
	if cb.GetState() != StateHalfOpen {
		t.Errorf("Expected state to be HalfOpen, got %s", cb.GetState())
	}
}

func TestCircuitBreaker_HalfOpenLimitsRequests(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, 50*time.Millisecond)
	openBreaker(cb, 1)
	time.Sleep(80 * time.Millisecond)

	allowed := 0
	for i := 0; i < 5; i++ {
		if cb.allowRequest() {
			allowed++
		}
	}
	if allowed != 3 {
		t.Errorf("Expected 3 trial requests in HalfOpen, got %d", allowed)
	}
}

func TestCircuitBreaker_CloseAfterSuccess(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, 50*time.Millisecond)
	openBreaker(cb, 3)
	time.Sleep(80 * time.Millisecond)

	for i := 0; i < 3; i++ {
		if err := cb.Call(func() error { return nil }); err != nil {
			t.Fatalf("Expected trial request %d to pass, got %v", i, err)
		}
	}

	if cb.GetState() != StateClosed {
		t.Errorf("Expected state to be Closed after successes in HalfOpen, got %s", cb.GetState())
	}
}

func TestCircuitBreaker_OpenAfterFailureInHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, 50*time.Millisecond)
	openBreaker(cb, 3)
	time.Sleep(80 * time.Millisecond)

	_ = cb.Call(func() error { return errors.New("still down") })

	if cb.GetState() != StateOpen {
		t.Error("Expected state to be Open after failure in HalfOpen")
	}
}

func TestCircuitBreaker_CallOpen(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, 1*time.Second)
	cb.RecordResult(false)

	called := false
	err := cb.Call(func() error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Error("Expected function not to run while open")
	}
}

func TestCircuitBreaker_FailurePredicate(t *testing.T) {
	permanent := errors.New("bad request")
	cb := NewCircuitBreaker("test", 1, 1*time.Second,
		WithFailurePredicate(func(err error) bool { return !errors.Is(err, permanent) }))

	for i := 0; i < 3; i++ {
		if err := cb.Call(func() error { return permanent }); !errors.Is(err, permanent) {
			t.Fatalf("Expected error to pass through, got %v", err)
		}
	}
	if cb.GetState() != StateClosed {
		t.Errorf("Expected ignored errors to keep breaker Closed, got %s", cb.GetState())
	}

	_ = cb.Call(func() error { return errors.New("timeout") })
	if cb.GetState() != StateOpen {
		t.Errorf("Expected counted error to open breaker, got %s", cb.GetState())
	}
}

func TestCircuitBreaker_StateChangeCallback(t *testing.T) {
	var states []CircuitState
	cb := NewCircuitBreaker("stt", 1, 10*time.Millisecond,
		WithStateChange(func(name string, state CircuitState) {
			if name != "stt" {
				t.Errorf("Expected name 'stt', got %q", name)
			}
			states = append(states, state)
		}))

	cb.RecordResult(false)
	time.Sleep(20 * time.Millisecond)
	_ = cb.Call(func() error { return nil })

	if len(states) != 2 || states[0] != StateOpen || states[1] != StateHalfOpen {
		t.Errorf("Expected [open half-open], got %v", states)
	}
}

func TestCircuitBreaker_GetStats(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, 1*time.Second)

	cb.RecordResult(true)
	cb.RecordResult(true)
	cb.RecordResult(false)

	state, requestCount, failureCount, failureRate := cb.GetStats()

	if state != StateClosed {
		t.Errorf("Expected state Closed, got %s", state)
	}
	if requestCount != 3 {
		t.Errorf("Expected 3 requests, got %d", requestCount)
	}
	if failureCount != 1 {
		t.Errorf("Expected 1 failure, got %d", failureCount)
	}
	if failureRate < 33.0 || failureRate > 34.0 {
		t.Errorf("Expected failure rate around 33.33%%, got %.2f%%", failureRate)
	}
}

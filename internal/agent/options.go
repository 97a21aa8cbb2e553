package agent

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Modality is an output channel the agent replies on.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityAudio Modality = "audio"
)

// TurnDetection is announced with the session. Only the disabled forms are
// accepted: the room delivers a turn only when the participant commits one
// explicitly, and nothing segments audio on its own.
type TurnDetection string

const (
	TurnDetectionDisabled TurnDetection = ""
	TurnDetectionNone     TurnDetection = "none"
)

// MaxOutputTokens caps a reply. Zero means unbounded.
type MaxOutputTokens int

// Unbounded is the "inf" setting.
const Unbounded MaxOutputTokens = 0

// ParseMaxOutputTokens accepts "inf" (or empty) for unbounded, or a positive integer.
func ParseMaxOutputTokens(s string) (MaxOutputTokens, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "inf" {
		return Unbounded, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("max output tokens must be \"inf\" or a positive integer, got %q", s)
	}
	return MaxOutputTokens(n), nil
}

func (m MaxOutputTokens) String() string {
	if m == Unbounded {
		return "inf"
	}
	return strconv.Itoa(int(m))
}

// MarshalJSON renders the unbounded setting as "inf" so session events match
// the configured value.
func (m MaxOutputTokens) MarshalJSON() ([]byte, error) {
	if m == Unbounded {
		return []byte(`"inf"`), nil
	}
	return []byte(strconv.Itoa(int(m))), nil
}

// Options configures a multimodal session.
type Options struct {
	Instructions    string          `json:"instructions"`
	Voice           string          `json:"voice"`
	Temperature     float64         `json:"temperature"`
	MaxOutputTokens MaxOutputTokens `json:"max_response_output_tokens"`
	Modalities      []Modality      `json:"modalities"`
	TurnDetection   TurnDetection   `json:"turn_detection,omitempty"`
}

// DefaultOptions mirrors the session settings the worker ships with.
func DefaultOptions(instructions string) Options {
	return Options{
		Instructions:    instructions,
		Voice:           "alloy",
		Temperature:     0.8,
		MaxOutputTokens: Unbounded,
		Modalities:      []Modality{ModalityText, ModalityAudio},
		TurnDetection:   TurnDetectionDisabled,
	}
}

// Validate checks ranges and enumerations.
func (o Options) Validate() error {
	if o.Temperature < 0 || o.Temperature > 2 {
		return fmt.Errorf("temperature %.2f out of range [0, 2]", o.Temperature)
	}
	if o.MaxOutputTokens < 0 {
		return errors.New("max output tokens must not be negative")
	}
	if len(o.Modalities) == 0 {
		return errors.New("at least one modality is required")
	}
	for _, m := range o.Modalities {
		if m != ModalityText && m != ModalityAudio {
			return fmt.Errorf("unknown modality %q", m)
		}
	}
	switch o.TurnDetection {
	case TurnDetectionDisabled, TurnDetectionNone:
	default:
		return fmt.Errorf("unsupported turn detection %q, only %q is accepted", o.TurnDetection, TurnDetectionNone)
	}
	return nil
}

// HasModality reports whether m is enabled.
func (o Options) HasModality(m Modality) bool {
	for _, enabled := range o.Modalities {
		if enabled == m {
			return true
		}
	}
	return false
}

package agent

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions("You are helpful.")

	assert.Equal(t, "You are helpful.", opts.Instructions)
	assert.Equal(t, "alloy", opts.Voice)
	assert.Equal(t, 0.8, opts.Temperature)
	assert.Equal(t, Unbounded, opts.MaxOutputTokens)
	assert.Equal(t, []Modality{ModalityText, ModalityAudio}, opts.Modalities)
	assert.Equal(t, TurnDetectionDisabled, opts.TurnDetection)
	assert.NoError(t, opts.Validate())
}

func TestOptions_JSON(t *testing.T) {
	b, err := json.Marshal(DefaultOptions("persona"))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"instructions": "persona",
		"voice": "alloy",
		"temperature": 0.8,
		"max_response_output_tokens": "inf",
		"modalities": ["text", "audio"]
	}`, string(b))

	opts := DefaultOptions("")
	opts.MaxOutputTokens = 42
	opts.TurnDetection = TurnDetectionNone
	b, err = json.Marshal(opts)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Equal(t, float64(42), raw["max_response_output_tokens"])
	assert.Equal(t, "none", raw["turn_detection"])
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Options)
		wantErr bool
	}{
		{"defaults", func(o *Options) {}, false},
		{"temperature zero", func(o *Options) { o.Temperature = 0 }, false},
		{"temperature too high", func(o *Options) { o.Temperature = 2.5 }, true},
		{"temperature negative", func(o *Options) { o.Temperature = -0.1 }, true},
		{"negative tokens", func(o *Options) { o.MaxOutputTokens = -1 }, true},
		{"no modalities", func(o *Options) { o.Modalities = nil }, true},
		{"unknown modality", func(o *Options) { o.Modalities = []Modality{"video"} }, true},
		{"turn detection none", func(o *Options) { o.TurnDetection = TurnDetectionNone }, false},
		{"server vad", func(o *Options) { o.TurnDetection = "server_vad" }, true},
		{"unknown turn detection", func(o *Options) { o.TurnDetection = "magic" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions("")
			tt.mutate(&opts)
			err := opts.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseMaxOutputTokens(t *testing.T) {
	tests := []struct {
		in      string
		want    MaxOutputTokens
		wantErr bool
	}{
		{"inf", Unbounded, false},
		{"INF", Unbounded, false},
		{"", Unbounded, false},
		{"150", 150, false},
		{" 7 ", 7, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"lots", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMaxOutputTokens(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

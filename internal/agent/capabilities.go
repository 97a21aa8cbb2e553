package agent

import (
	"context"
	"errors"
	"io"
)

// Transcriber turns an audio payload into the remote service's transcription
// result. The result is the decoded JSON body, unmodified.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader) (any, error)
}

// Synthesizer turns text into the remote service's synthesis result, which
// either contains the audio or points at it.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (any, error)
}

// Inferencer sends a prompt to the language model and returns its result.
type Inferencer interface {
	Infer(ctx context.Context, prompt string) (any, error)
}

// Capabilities is the set of callbacks the agent runs a session with.
type Capabilities struct {
	STT Transcriber
	TTS Synthesizer
	LLM Inferencer
}

// Validate checks that every capability is present.
func (c Capabilities) Validate() error {
	var errs []error
	if c.STT == nil {
		errs = append(errs, errors.New("transcriber is required"))
	}
	if c.TTS == nil {
		errs = append(errs, errors.New("synthesizer is required"))
	}
	if c.LLM == nil {
		errs = append(errs, errors.New("inferencer is required"))
	}
	return errors.Join(errs...)
}

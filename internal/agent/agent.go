package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lexiqai/voice-agent/internal/observability"
)

// ErrNoText is returned when a capability result has no usable text field.
var ErrNoText = errors.New("result carries no text")

// MultimodalAgent runs a voice/text session in a room using three remote
// capabilities. It holds no per-session state, so one agent can serve
// several rooms at once.
type MultimodalAgent struct {
	caps   Capabilities
	opts   Options
	logger zerolog.Logger
}

// New validates the capabilities and options and returns an agent.
func New(caps Capabilities, opts Options, logger zerolog.Logger) (*MultimodalAgent, error) {
	if err := caps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid capabilities: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	return &MultimodalAgent{
		caps:   caps,
		opts:   opts,
		logger: logger,
	}, nil
}

// Options returns the session options the agent was built with.
func (a *MultimodalAgent) Options() Options {
	return a.opts
}

// Start announces the session in the room and then handles turns in arrival
// order until the turn channel closes or ctx is done. It blocks for the
// lifetime of the session.
func (a *MultimodalAgent) Start(ctx context.Context, room Room) error {
	logger := a.logger.With().
		Str("room", room.Name()).
		Str("correlation_id", observability.NewCorrelationID()).
		Logger()
	metrics := observability.NewSessionMetrics(room.Name())
	metrics.RecordSessionStart()
	defer metrics.RecordSessionEnd()

	opts := a.opts
	if err := room.Publish(ctx, Event{Type: EventSession, Session: &opts}); err != nil {
		return fmt.Errorf("failed to announce session: %w", err)
	}

	logger.Info().
		Str("voice", opts.Voice).
		Float64("temperature", opts.Temperature).
		Str("max_output_tokens", opts.MaxOutputTokens.String()).
		Msg("Agent session started")

	turns := room.Turns()
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Agent session stopping")
			return ctx.Err()
		case turn, ok := <-turns:
			if !ok {
				logger.Info().Msg("Room closed, agent session ended")
				return nil
			}
			a.runTurn(ctx, room, turn, metrics, logger)
		}
	}
}

// HandleTurn processes a single turn and publishes its events. Capability
// failures are returned after being published as an error event.
func (a *MultimodalAgent) HandleTurn(ctx context.Context, room Room, turn Turn) error {
	return a.runTurn(ctx, room, turn, observability.NewSessionMetrics(room.Name()), a.logger)
}

func (a *MultimodalAgent) runTurn(ctx context.Context, room Room, turn Turn, metrics *observability.SessionMetrics, logger zerolog.Logger) error {
	logger = logger.With().
		Str("turn_id", turn.ID).
		Str("participant", turn.Participant).
		Logger()

	kind := "text"
	if turn.IsAudio() {
		kind = "audio"
		metrics.RecordAudioBytes("in", int64(len(turn.Audio)))
	}

	start := time.Now()
	err := a.handleTurn(ctx, room, turn, metrics, logger)
	metrics.RecordTurn(kind, err == nil, time.Since(start))
	if err == nil {
		return nil
	}

	logger.Error().Err(err).Msg("Turn failed")
	ev := Event{
		Type:        EventError,
		TurnID:      turn.ID,
		Participant: turn.Participant,
		Error:       err.Error(),
	}
	if pubErr := room.Publish(ctx, ev); pubErr != nil {
		logger.Warn().Err(pubErr).Msg("Failed to publish error event")
	}
	return err
}

func (a *MultimodalAgent) handleTurn(ctx context.Context, room Room, turn Turn, metrics *observability.SessionMetrics, logger zerolog.Logger) error {
	userText := turn.Text
	if turn.IsAudio() {
		result, err := a.caps.STT.Transcribe(ctx, bytes.NewReader(turn.Audio))
		if err != nil {
			metrics.RecordError("transcribe", "stt")
			return fmt.Errorf("transcribe: %w", err)
		}
		text, ok := ExtractText(result, transcriptKeys...)
		if !ok {
			return fmt.Errorf("transcribe: %w", ErrNoText)
		}
		userText = text

		if err := room.Publish(ctx, Event{
			Type:        EventTranscript,
			TurnID:      turn.ID,
			Participant: turn.Participant,
			Text:        text,
			Result:      result,
		}); err != nil {
			return fmt.Errorf("publish transcript: %w", err)
		}
	}

	if strings.TrimSpace(userText) == "" {
		logger.Debug().Msg("Empty turn, nothing to answer")
		return nil
	}

	logger.Info().Str("text", userText).Msg("Sending turn to language model")
	result, err := a.caps.LLM.Infer(ctx, a.prompt(userText))
	if err != nil {
		metrics.RecordError("infer", "llm")
		return fmt.Errorf("infer: %w", err)
	}
	reply, ok := ExtractText(result, completionKeys...)
	if !ok {
		return fmt.Errorf("infer: %w", ErrNoText)
	}
	reply = truncateTokens(reply, a.opts.MaxOutputTokens)

	// A failed synthesis must not cancel the text reply, so both branches
	// share ctx rather than a group context.
	var g errgroup.Group
	if a.opts.HasModality(ModalityText) {
		g.Go(func() error {
			if err := room.Publish(ctx, Event{
				Type:        EventResponse,
				TurnID:      turn.ID,
				Participant: turn.Participant,
				Text:        reply,
				Result:      result,
			}); err != nil {
				return fmt.Errorf("publish response: %w", err)
			}
			return nil
		})
	}
	if a.opts.HasModality(ModalityAudio) {
		g.Go(func() error {
			speech, err := a.caps.TTS.Synthesize(ctx, reply)
			if err != nil {
				metrics.RecordError("synthesize", "tts")
				return fmt.Errorf("synthesize: %w", err)
			}
			audio, url := ExtractAudio(speech)
			metrics.RecordAudioBytes("out", int64(len(audio)))
			if err := room.Publish(ctx, Event{
				Type:        EventAudio,
				TurnID:      turn.ID,
				Participant: turn.Participant,
				Audio:       audio,
				AudioURL:    url,
				Result:      speech,
			}); err != nil {
				return fmt.Errorf("publish audio: %w", err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (a *MultimodalAgent) prompt(userText string) string {
	if a.opts.Instructions == "" {
		return userText
	}
	return a.opts.Instructions + "\n\n" + userText
}

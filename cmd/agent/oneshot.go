package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/voice-agent/internal/config"
	"github.com/lexiqai/voice-agent/internal/gemini"
	"github.com/lexiqai/voice-agent/internal/observability"
)

type oneShot func(ctx context.Context, clients *gemini.Clients, arg string) (any, error)

func runTranscribe(args []string) {
	runOneShot("transcribe", "<file>", args, func(ctx context.Context, c *gemini.Clients, path string) (any, error) {
		return c.STT.TranscribeFile(ctx, path)
	})
}

func runSpeak(args []string) {
	runOneShot("speak", "<text>", args, func(ctx context.Context, c *gemini.Clients, text string) (any, error) {
		return c.TTS.Synthesize(ctx, text)
	})
}

func runPrompt(args []string) {
	runOneShot("prompt", "<text>", args, func(ctx context.Context, c *gemini.Clients, prompt string) (any, error) {
		return c.LLM.Infer(ctx, prompt)
	})
}

// runOneShot performs a single capability call and prints the decoded
// result as JSON on stdout. Logs go to stderr.
func runOneShot(name, argName string, args []string, call oneShot) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	timeout := fs.Duration("timeout", 2*time.Minute, "Overall deadline including retries")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: voice-agent %s [flags] %s\n", name, argName)
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}
	arg := strings.Join(fs.Args(), " ")

	cfg := loadConfig()
	observability.InitLoggerTo(os.Stderr, cfg.LogLevel, cfg.LogPretty)
	logger := observability.WithCorrelationID("").With().Str("command", name).Logger()

	clients, err := gemini.NewClients(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create clients: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	result, err := call(ctx, clients, arg)
	if err != nil {
		reportFailure(logger, cfg, err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write result: %v\n", err)
		os.Exit(1)
	}
}

func reportFailure(logger zerolog.Logger, cfg *config.Config, err error) {
	var remoteErr *gemini.RemoteCallError
	if errors.As(err, &remoteErr) {
		logger.Error().
			Str("capability", remoteErr.Capability).
			Int("status", remoteErr.StatusCode).
			Msg("Remote call rejected")
		fmt.Fprintln(os.Stderr, remoteErr.Detail())
		return
	}
	logger.Error().Err(err).Int("retry_max_attempts", cfg.RetryMaxAttempts).Msg("Call failed")
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}

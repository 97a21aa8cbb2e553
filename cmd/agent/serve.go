package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lexiqai/voice-agent/internal/agent"
	"github.com/lexiqai/voice-agent/internal/gemini"
	"github.com/lexiqai/voice-agent/internal/livekit"
	"github.com/lexiqai/voice-agent/internal/observability"
	"github.com/lexiqai/voice-agent/internal/resilience"
)

const (
	turnBuffer      = 16
	shutdownTimeout = 30 * time.Second
)

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	port := fs.String("port", "", "Override PORT for the health and metrics server")
	_ = fs.Parse(args)

	cfg := loadConfig()
	if *port != "" {
		cfg.Port = *port
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("version", Version).
		Str("port", cfg.Port).
		Str("livekit_url", cfg.LiveKitURL).
		Strs("rooms", cfg.LiveKitRooms).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Voice agent starting")

	clients, err := gemini.NewClients(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Gemini clients")
	}
	opts, err := cfg.AgentOptions()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid agent options")
	}
	voiceAgent, err := agent.New(clients.Capabilities(), opts, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create agent")
	}

	lk := livekit.NewClient(cfg.LiveKitURL, cfg.LiveKitAPIKey, cfg.LiveKitAPISecret, cfg.LiveKitIdentity,
		&resilience.ReconnectConfig{
			MaxAttempts: cfg.ReconnectMaxAttempts,
			Backoff:     time.Duration(cfg.ReconnectBackoff) * time.Millisecond,
			Multiplier:  2.0,
			MaxBackoff:  30 * time.Second,
		}, logger)

	rooms := &roomSet{rooms: make(map[string]*livekit.Room)}

	checks := clients.ReadinessChecks()
	checks["livekit_rooms"] = rooms.Ready

	mux := http.NewServeMux()
	mux.HandleFunc("/health", observability.HealthCheckHandler())
	mux.HandleFunc("/ready", observability.ReadinessHandler(checks))
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if len(cfg.LiveKitRooms) == 0 {
		logger.Warn().Msg("LIVEKIT_ROOMS is empty, serving health endpoints only")
	}
	for _, name := range cfg.LiveKitRooms {
		g.Go(func() error {
			runRoom(gctx, lk, voiceAgent, rooms, name, logger)
			return nil
		})
	}

	<-gctx.Done()
	logger.Info().Msg("Shutting down...")

	rooms.closeAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("Voice agent stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("Voice agent exited gracefully")
}

// runRoom joins one room and runs the agent in it until ctx is done or the
// room goes away. A room that cannot be joined is logged and skipped.
func runRoom(ctx context.Context, lk *livekit.Client, a *agent.MultimodalAgent, rooms *roomSet, name string, logger zerolog.Logger) {
	logger = logger.With().Str("room", name).Logger()

	room, err := lk.Join(ctx, name, turnBuffer)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("Failed to join room")
		}
		rooms.failed(name, err)
		return
	}
	rooms.add(room)
	defer room.Close()

	if err := a.Start(ctx, room); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("Agent session ended with error")
	}
}

// roomSet tracks joined rooms for readiness and shutdown.
type roomSet struct {
	mu       sync.Mutex
	rooms    map[string]*livekit.Room
	failures map[string]error
}

func (s *roomSet) add(r *livekit.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[r.Name()] = r
}

func (s *roomSet) failed(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures == nil {
		s.failures = make(map[string]error)
	}
	s.failures[name] = err
}

// Ready fails if any configured room could not be joined or has since closed.
func (s *roomSet) Ready(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for name, err := range s.failures {
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
	}
	for _, r := range s.rooms {
		if ok, err := r.Ready(ctx); !ok {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return false, err
	}
	return true, nil
}

func (s *roomSet) closeAll() {
	s.mu.Lock()
	rooms := make([]*livekit.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, r)
	}
	s.mu.Unlock()

	for _, r := range rooms {
		r.Close()
	}
}

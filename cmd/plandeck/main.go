package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/plandeck/plandeck/internal/api"
	"github.com/plandeck/plandeck/internal/config"
	"github.com/plandeck/plandeck/internal/health"
	"github.com/plandeck/plandeck/internal/metrics"
	"github.com/plandeck/plandeck/internal/notify"
	"github.com/plandeck/plandeck/internal/project"
	"github.com/plandeck/plandeck/internal/schedule"
	"github.com/plandeck/plandeck/internal/store"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("PLANDECK_ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("listen_addr", cfg.ListenAddr).
		Str("db_path", cfg.DBPath).
		Bool("slack_enabled", cfg.SlackEnabled()).
		Msg("starting plandeck")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	st, err := store.New(cfg.DBPath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer st.Close()

	m := metrics.New()

	checker := health.NewChecker(logger)
	checker.Register("sqlite", func(ctx context.Context) health.Status {
		if err := st.Ping(ctx); err != nil {
			return health.StatusDown
		}
		return health.StatusOK
	})

	thresholds := schedule.Thresholds{
		CriticalTasks: cfg.CriticalTaskThreshold,
		Utilization:   cfg.UtilizationThreshold,
	}
	planner := project.New(st, m, thresholds, cfg.PlanCacheSize, logger)

	// Slack delivery (optional — only if tokens provided)
	var notifier api.Notifier
	if cfg.SlackEnabled() {
		slackNotifier := notify.New(cfg.SlackBotToken, cfg.SlackChannel, m, logger)
		notifier = slackNotifier
		checker.Register("slack", func(ctx context.Context) health.Status {
			if err := slackNotifier.AuthCheck(ctx); err != nil {
				return health.StatusDown
			}
			return health.StatusOK
		})
		logger.Info().Str("channel", cfg.SlackChannel).Msg("Slack check-in delivery enabled")
	} else {
		logger.Info().Msg("Slack not configured — running in API-only mode")
	}

	server := api.NewServer(api.ServerConfig{
		ListenAddr: cfg.ListenAddr,
		APIKey:     cfg.APIKey,
		RateLimit: api.RateLimitConfig{
			RPS:   cfg.RateLimitRPS,
			Burst: cfg.RateLimitBurst,
		},
		CORSOrigins: cfg.CORSOrigins,
	}, st, planner, notifier, checker, m, logger)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("api server error")
		}
	}()

	// Wait for shutdown signal
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")

	if err := server.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("api server shutdown error")
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("all goroutines stopped")
	case <-time.After(10 * time.Second):
		logger.Warn().Msg("forced shutdown after timeout")
	}

	logger.Info().Msg("plandeck stopped")
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/omriShneor/project_gochi/internal/brain"
	"github.com/omriShneor/project_gochi/internal/config"
	"github.com/omriShneor/project_gochi/internal/gcal"
	"github.com/omriShneor/project_gochi/internal/llm"
	"github.com/omriShneor/project_gochi/internal/logging"
	"github.com/omriShneor/project_gochi/internal/server"
)

func main() {
	cfg := config.LoadFromEnv()

	logger := logging.New(logging.Options{
		Level: cfg.LogLevel,
		JSON:  cfg.LogJSON,
	})

	gcalClient := initCalendar(cfg, logger)

	generator, err := initGenerator(cfg, logger)
	if err != nil {
		fatal(logger, "checking model server", err)
	}

	brainCfg := brain.Config{
		Generator: generator,
		MaxEvents: cfg.CalendarMaxResults,
		Logger:    logger.With().Str("component", "brain").Logger(),
	}
	serverCfg := server.ServerConfig{
		ModelName: generator.Model(),
		Port:      cfg.HTTPPort,
		Logger:    logger.With().Str("component", "server").Logger(),
	}
	// Assigned only when present so the interfaces stay nil otherwise.
	if gcalClient != nil {
		brainCfg.Calendar = gcalClient
		serverCfg.Calendar = gcalClient
	}
	serverCfg.Brain = brain.New(brainCfg)

	srv := server.New(serverCfg)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			fatal(logger, "running HTTP server", err)
		}
	}()

	waitForShutdown(logger, srv)
}

func initCalendar(cfg *config.Config, logger zerolog.Logger) *gcal.Client {
	client, err := gcal.NewClient(cfg.GoogleCredentialsFile, cfg.GoogleTokenFile,
		gcal.WithTimeout(cfg.CalendarTimeout),
		gcal.WithLogger(logger.With().Str("component", "gcal").Logger()),
	)
	if err != nil {
		logger.Warn().Err(err).Msg("Google Calendar not configured, replies will not mention events")
		return nil
	}

	if client.IsAuthenticated() {
		logger.Info().Msg("Google Calendar client configured")
	} else {
		logger.Warn().Str("token_file", cfg.GoogleTokenFile).Msg("Google Calendar token missing, run gcalauth to grant access")
	}
	return client
}

func initGenerator(cfg *config.Config, logger zerolog.Logger) (*llm.Client, error) {
	client := llm.NewClient(llm.Config{
		BaseURL: cfg.ModelURL,
		APIKey:  cfg.ModelAPIKey,
		Model:   cfg.ModelName,
		Timeout: cfg.ModelTimeout,
	})

	if cfg.SkipModelCheck {
		logger.Warn().Str("model", client.Model()).Msg("skipping model check")
		return client, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ModelTimeout)
	defer cancel()
	if err := client.CheckModel(ctx); err != nil {
		return nil, err
	}

	logger.Info().Str("model", client.Model()).Str("url", cfg.ModelURL).Msg("Model server ready")
	return client, nil
}

func fatal(logger zerolog.Logger, context string, err error) {
	logger.Error().Err(err).Msgf("Error %s", context)
	os.Exit(1)
}

func waitForShutdown(logger zerolog.Logger, srv *server.Server) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	logger.Info().Msg("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown")
	}
}

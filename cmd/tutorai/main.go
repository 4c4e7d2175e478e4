package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/tjfontaine/tutorai/internal/cache"
	"github.com/tjfontaine/tutorai/internal/catalog"
	"github.com/tjfontaine/tutorai/internal/completion"
	"github.com/tjfontaine/tutorai/internal/config"
	"github.com/tjfontaine/tutorai/internal/domain"
	"github.com/tjfontaine/tutorai/internal/frontdoor"
	"github.com/tjfontaine/tutorai/internal/mediator"
	"github.com/tjfontaine/tutorai/internal/server"
	"github.com/tjfontaine/tutorai/internal/telemetry"
	"github.com/tjfontaine/tutorai/internal/tokens"
)

var configPath = pflag.StringP("config", "c", "config.yaml", "Path to the YAML config file (optional)")

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "\nServe the tutor chat mediator over HTTP.\n\n %s [flags]\n\n", filepath.Base(os.Args[0]))
		pflag.PrintDefaults()
	}
	pflag.Parse()

	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	shutdownTracer, err := telemetry.InitTracer(cfg.Telemetry.ServiceName, cfg.Telemetry.Enabled, os.Stderr, logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	models, err := catalog.New(catalogModels(cfg.Models))
	if err != nil {
		log.Fatalf("Invalid model catalog: %v", err)
	}

	med, err := newMediator(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to build mediator: %v", err)
	}
	if err := med.Ready(); err != nil {
		// The service still starts; every submission reports the same message.
		logger.Error("completion client not configured", slog.String("error", domain.Describe(err)))
	}

	srv := server.New(cfg.Server.Port, logger, cfg.Server.RequestTimeout)
	handler := frontdoor.NewHandler(med, models, cfg.Tokens.Default, logger)
	frontdoor.Mount(srv.Router, "", handler.Registrations())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		return
	case <-sigChan:
	}

	logger.Info("shutdown signal received, stopping server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("server shutdown complete")
}

func newMediator(cfg *config.Config, logger *slog.Logger) (*mediator.Mediator, error) {
	client := completion.New(cfg.Provider.APIKey,
		completion.WithBaseURL(cfg.Provider.BaseURL),
		completion.WithTimeout(cfg.Provider.Timeout),
		completion.WithLogger(logger),
	)

	scope, err := cache.ParseScope(cfg.Cache.Scope)
	if err != nil {
		return nil, err
	}
	outcomes := cache.New(cache.Options{
		Size:          cfg.Cache.Size,
		TTL:           cfg.Cache.TTL,
		Scope:         scope,
		CacheFailures: cfg.Cache.CacheFailures,
		Logger:        logger,
	})

	return mediator.New(client, outcomes,
		mediator.WithTokenRange(cfg.Tokens.Min, cfg.Tokens.Max),
		mediator.WithPromptBudget(tokens.NewCounter(), cfg.Prompt.MaxTokens),
		mediator.WithCoalescing(cfg.Cache.Coalesce),
		mediator.WithLogger(logger),
	), nil
}

func catalogModels(entries []config.ModelConfig) []domain.Model {
	if len(entries) == 0 {
		return catalog.Defaults
	}
	models := make([]domain.Model, 0, len(entries))
	for _, e := range entries {
		models = append(models, domain.Model{ID: e.ID, Name: e.Name})
	}
	return models
}

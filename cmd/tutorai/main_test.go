package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/tjfontaine/tutorai/internal/catalog"
	"github.com/tjfontaine/tutorai/internal/config"
	"github.com/tjfontaine/tutorai/internal/domain"
)

func TestCatalogModels_FallsBackToDefaults(t *testing.T) {
	got := catalogModels(nil)
	if len(got) != len(catalog.Defaults) || got[0] != catalog.Defaults[0] {
		t.Errorf("catalogModels(nil) = %+v, want defaults", got)
	}
}

func TestCatalogModels_UsesConfiguredEntries(t *testing.T) {
	got := catalogModels([]config.ModelConfig{{ID: "org/model", Name: "Model"}})
	if len(got) != 1 || got[0].ID != "org/model" || got[0].Name != "Model" {
		t.Errorf("catalogModels() = %+v", got)
	}
}

func TestNewMediator_MissingKeyReportsConfigurationError(t *testing.T) {
	t.Setenv("HUGGINGFACE_API_KEY", "")
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	med, err := newMediator(cfg, logger)
	if err != nil {
		t.Fatalf("newMediator() error = %v", err)
	}

	if err := med.Ready(); err == nil {
		t.Fatal("Ready() = nil, want configuration error")
	}
	out := med.Submit(context.Background(), "Qwen/Qwen2.5-72B-Instruct", "hello", 300)
	if out.Kind != domain.PresentationConfigurationError {
		t.Errorf("kind = %q, want configuration_error", out.Kind)
	}
	if stats := med.Stats(); stats.ClientCalls != 0 {
		t.Errorf("client calls = %d, want 0", stats.ClientCalls)
	}
}

func TestNewMediator_RejectsUnknownCacheScope(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	cfg.Cache.Scope = "per-tenant"

	if _, err := newMediator(cfg, slog.New(slog.NewTextHandler(io.Discard, nil))); err == nil {
		t.Error("newMediator() error = nil, want unknown scope error")
	}
}

// Package config loads service configuration from an optional YAML file and
// TUTORAI_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override, e.g. TUTORAI_SERVER__PORT.
const EnvPrefix = "TUTORAI_"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Provider  ProviderConfig  `koanf:"provider"`
	Tokens    TokensConfig    `koanf:"tokens"`
	Prompt    PromptConfig    `koanf:"prompt"`
	Cache     CacheConfig     `koanf:"cache"`
	Models    []ModelConfig   `koanf:"models"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Log       LogConfig       `koanf:"log"`
}

type ServerConfig struct {
	Port           int           `koanf:"port"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

type ProviderConfig struct {
	BaseURL string        `koanf:"base_url"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"` // per-call deadline; 0 disables
}

// TokensConfig bounds the max_tokens a user may request.
type TokensConfig struct {
	Min     int `koanf:"min"`
	Max     int `koanf:"max"`
	Default int `koanf:"default"`
}

type PromptConfig struct {
	MaxTokens int `koanf:"max_tokens"` // 0 disables the prompt budget
}

type CacheConfig struct {
	Size          int           `koanf:"size"` // 0 = unbounded
	TTL           time.Duration `koanf:"ttl"`  // 0 = never expire
	Scope         string        `koanf:"scope"`
	CacheFailures bool          `koanf:"cache_failures"`
	Coalesce      bool          `koanf:"coalesce"`
}

type ModelConfig struct {
	ID   string `koanf:"id"`
	Name string `koanf:"name"`
}

type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

var defaults = map[string]any{
	"server.port":            8080,
	"server.request_timeout": "120s",
	"provider.base_url":      "https://router.huggingface.co/v1",
	"provider.api_key":       "${HUGGINGFACE_API_KEY}",
	"provider.timeout":       "60s",
	"tokens.min":             50,
	"tokens.max":             500,
	"tokens.default":         300,
	"prompt.max_tokens":      0,
	"cache.size":             1024,
	"cache.ttl":              "0s",
	"cache.scope":            "shared",
	"cache.cache_failures":   true,
	"cache.coalesce":         true,
	"telemetry.enabled":      false,
	"telemetry.service_name": "tutorai",
	"log.level":              "info",
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads path (if it exists), then environment overrides, then defaults
// for anything still unset. An empty path skips the file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			// File not found is OK, we'll use env vars
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	for key, value := range defaults {
		if !k.Exists(key) {
			if err := k.Set(key, value); err != nil {
				return nil, fmt.Errorf("set default %s: %w", key, err)
			}
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Provider.APIKey = strings.TrimSpace(substituteEnvVars(cfg.Provider.APIKey))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges that would otherwise surface as confusing runtime behavior.
// A missing API key is not a validation error: the service starts and reports it per request.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Tokens.Min <= 0 {
		return fmt.Errorf("tokens.min must be positive, got %d", c.Tokens.Min)
	}
	if c.Tokens.Max < c.Tokens.Min {
		return fmt.Errorf("tokens.max %d is below tokens.min %d", c.Tokens.Max, c.Tokens.Min)
	}
	if c.Tokens.Default < c.Tokens.Min || c.Tokens.Default > c.Tokens.Max {
		return fmt.Errorf("tokens.default %d outside [%d, %d]", c.Tokens.Default, c.Tokens.Min, c.Tokens.Max)
	}
	if c.Prompt.MaxTokens < 0 {
		return fmt.Errorf("prompt.max_tokens must not be negative")
	}
	switch c.Cache.Scope {
	case "shared", "session":
	default:
		return fmt.Errorf("cache.scope %q must be shared or session", c.Cache.Scope)
	}
	return nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

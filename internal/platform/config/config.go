package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	AppEnv        string `env:"APP_ENV" default:"development"`
	Port          string `env:"PORT" default:"8080"`
	LogLevel      string `env:"LOG_LEVEL" default:"info"`
	LogFormat     string `env:"LOG_FORMAT" default:"text"`
	StoreBackend  string `env:"STORE_BACKEND" default:"redis"`
	RedisURL      string `env:"REDIS_URL"`
	DatabaseURL   string `env:"DATABASE_URL"`
	HighlightChar string `env:"HIGHLIGHT_CHAR" default:"}"`
	BotNick       string `env:"BOT_NICK" default:"DaZeus"`
	DispatchToken string `env:"DISPATCH_TOKEN"`

	// Per-client limit on /dispatch requests; 0 disables limiting.
	DispatchRateLimit float64 `env:"DISPATCH_RATE_LIMIT" default:"50"`
	DispatchRateBurst int     `env:"DISPATCH_RATE_BURST" default:"100"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.StoreBackend {
	case BackendRedis:
		if cfg.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required")
		}
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be one of redis, postgres, memory, got %q", cfg.StoreBackend)
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(cfg.LogLevel)) {
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", cfg.LogLevel)
	}
	if !slices.Contains([]string{"text", "json"}, strings.ToLower(cfg.LogFormat)) {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	if utf8.RuneCountInString(cfg.HighlightChar) > 1 {
		return fmt.Errorf("HIGHLIGHT_CHAR must be a single character, got %q", cfg.HighlightChar)
	}
	if cfg.BotNick == "" {
		return fmt.Errorf("BOT_NICK is required")
	}

	if cfg.DispatchRateLimit < 0 {
		return fmt.Errorf("DISPATCH_RATE_LIMIT must not be negative, got %v", cfg.DispatchRateLimit)
	}
	if cfg.DispatchRateLimit > 0 && cfg.DispatchRateBurst < 1 {
		return fmt.Errorf("DISPATCH_RATE_BURST must be at least 1, got %d", cfg.DispatchRateBurst)
	}

	if cfg.AppEnv == "production" && cfg.DatabaseURL != "" {
		if err := validateSSLMode(cfg.DatabaseURL); err != nil {
			return err
		}
	}

	return nil
}

// validateSSLMode rejects database URLs that allow unencrypted connections.
func validateSSLMode(databaseURL string) error {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return fmt.Errorf("DATABASE_URL is not a valid URL: %w", err)
	}
	mode := strings.ToLower(u.Query().Get("sslmode"))
	if mode == "disable" || mode == "allow" {
		return fmt.Errorf("DATABASE_URL uses sslmode=%s which is not allowed in production", mode)
	}
	return nil
}

// Package config reads runtime settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/joelkehle/discovery-assessment/internal/research"
	"github.com/joelkehle/discovery-assessment/internal/retrieval"
	"github.com/joelkehle/discovery-assessment/internal/store"
)

const (
	DefaultSQLitePath              = "assessment.db"
	DefaultCollaboratorTimeoutSecs = 20
	DefaultRedisTTLHours           = 72
	DefaultLogLevel                = "info"
	DefaultPDFPageSize             = "letter"
)

type Config struct {
	AnthropicAPIKey string
	ResearchModel   string

	SearchBaseURL       string `validate:"omitempty,url"`
	SearchAPIKey        string
	SearchRatePerMin    int `validate:"min=1,max=6000"`
	CollaboratorTimeout time.Duration

	StoreDriver   string `validate:"oneof=sqlite redis"`
	SQLitePath    string `validate:"required_if=StoreDriver sqlite"`
	RedisAddr     string `validate:"required_if=StoreDriver redis"`
	RedisPassword string
	RedisTTL      time.Duration

	CatalogPath  string `validate:"omitempty,file"`
	TablesPath   string `validate:"omitempty,file"`
	OTLPEndpoint string `validate:"omitempty,url"`
	LogLevel     string `validate:"oneof=debug info warn error"`
	PDFPageSize  string `validate:"oneof=letter a4"`
}

// Load reads the environment, applies defaults and validates the result.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	env := func(key string) string { return strings.TrimSpace(getenv(key)) }
	cfg := Config{
		AnthropicAPIKey:     env("ANTHROPIC_API_KEY"),
		ResearchModel:       orDefault(env("RESEARCH_LLM_MODEL"), research.DefaultModel),
		SearchBaseURL:       env("SEARCH_BASE_URL"),
		SearchAPIKey:        env("SEARCH_API_KEY"),
		SearchRatePerMin:    envInt(env, "SEARCH_RATE_LIMIT_PER_MINUTE", retrieval.DefaultRateLimitPerMinute),
		CollaboratorTimeout: time.Duration(envInt(env, "COLLABORATOR_TIMEOUT_SECONDS", DefaultCollaboratorTimeoutSecs)) * time.Second,
		StoreDriver:         strings.ToLower(orDefault(env("STORE_DRIVER"), "sqlite")),
		SQLitePath:          orDefault(env("SQLITE_PATH"), DefaultSQLitePath),
		RedisAddr:           env("REDIS_ADDR"),
		RedisPassword:       getenv("REDIS_PASSWORD"),
		RedisTTL:            time.Duration(envInt(env, "REDIS_TTL_HOURS", DefaultRedisTTLHours)) * time.Hour,
		CatalogPath:         env("CATALOG_PATH"),
		TablesPath:          env("TABLES_PATH"),
		OTLPEndpoint:        env("OTEL_EXPORTER_OTLP_ENDPOINT"),
		LogLevel:            strings.ToLower(orDefault(env("LOG_LEVEL"), DefaultLogLevel)),
		PDFPageSize:         strings.ToLower(orDefault(env("PDF_PAGE_SIZE"), DefaultPDFPageSize)),
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// ResearchEnabled reports whether an LLM key is configured.
func (c Config) ResearchEnabled() bool { return c.AnthropicAPIKey != "" }

// RetrievalEnabled reports whether a search endpoint is configured.
func (c Config) RetrievalEnabled() bool { return c.SearchBaseURL != "" }

func (c Config) StoreOptions() store.Options {
	return store.Options{
		Driver:        c.StoreDriver,
		SQLitePath:    c.SQLitePath,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisTTL:      c.RedisTTL,
	}
}

func (c Config) RetrievalConfig() retrieval.Config {
	return retrieval.Config{
		BaseURL:            c.SearchBaseURL,
		APIKey:             c.SearchAPIKey,
		RateLimitPerMinute: c.SearchRatePerMin,
	}
}

func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// envInt returns fallback for unset, malformed or non-positive values.
func envInt(env func(string) string, key string, fallback int) int {
	v := env(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

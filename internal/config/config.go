// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(NewConfig),
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	ServerPort    int    `env:"SERVER_PORT" envDefault:"3004"`
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:"0.0.0.0"`
	Environment   string `env:"ENVIRONMENT" envDefault:"local"`
	Debug         bool   `env:"DEBUG" envDefault:"false"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`

	Database   DatabaseConfig
	Search     SearchConfig
	Embeddings EmbeddingsConfig
	Resolution ResolutionConfig
	Otel       OtelConfig

	// Server timeouts
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host         string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port         int           `env:"POSTGRES_PORT" envDefault:"5432"`
	User         string        `env:"POSTGRES_USER" envDefault:"linkage"`
	Password     string        `env:"POSTGRES_PASSWORD" envDefault:""`
	Database     string        `env:"POSTGRES_DB" envDefault:"linkage"`
	SSLMode      string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	MaxIdleTime  time.Duration `env:"DB_MAX_IDLE_TIME" envDefault:"5m"`
	QueryDebug   bool          `env:"DB_QUERY_DEBUG" envDefault:"false"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode,
	)
}

// SearchConfig holds candidate search settings.
type SearchConfig struct {
	// ProviderTimeout bounds each provider call during candidate fan-out.
	ProviderTimeout time.Duration `env:"SEARCH_PROVIDER_TIMEOUT" envDefault:"3s"`

	// Weights for fusing provider scores into a combined candidate score.
	LexicalWeight  float64 `env:"SEARCH_LEXICAL_WEIGHT" envDefault:"0.6"`
	SemanticWeight float64 `env:"SEARCH_SEMANTIC_WEIGHT" envDefault:"0.4"`

	// SemanticThreshold drops vector hits below this cosine similarity.
	SemanticThreshold float64 `env:"SEARCH_SEMANTIC_THRESHOLD" envDefault:"0.5"`

	DefaultLimit int `env:"SEARCH_DEFAULT_LIMIT" envDefault:"10"`
	MaxLimit     int `env:"SEARCH_MAX_LIMIT" envDefault:"50"`
}

// EmbeddingsConfig holds embedding client settings.
type EmbeddingsConfig struct {
	GoogleAPIKey string `env:"GOOGLE_API_KEY"`
	Model        string `env:"EMBEDDINGS_MODEL" envDefault:"text-embedding-004"`
	Dimension    int    `env:"EMBEDDINGS_DIMENSION" envDefault:"768"`
}

// IsEnabled returns true when an embedding backend is configured.
func (e *EmbeddingsConfig) IsEnabled() bool {
	return e.GoogleAPIKey != ""
}

// ResolutionConfig holds the default scoring configuration. These values seed
// the immutable ScoringConfig at startup; runtime updates go through the
// validated admin endpoint and never mutate this struct.
type ResolutionConfig struct {
	// Attribute category weights. Must sum to 1.0 (±0.01).
	NameWeight       float64 `env:"RESOLUTION_NAME_WEIGHT" envDefault:"0.4"`
	IdentifierWeight float64 `env:"RESOLUTION_IDENTIFIER_WEIGHT" envDefault:"0.3"`
	ContactWeight    float64 `env:"RESOLUTION_CONTACT_WEIGHT" envDefault:"0.2"`
	DOBWeight        float64 `env:"RESOLUTION_DOB_WEIGHT" envDefault:"0.1"`

	// Decision thresholds, strictly ascending.
	LikelyRejectThreshold float64 `env:"RESOLUTION_LIKELY_REJECT_THRESHOLD" envDefault:"0.3"`
	ManualReviewThreshold float64 `env:"RESOLUTION_MANUAL_REVIEW_THRESHOLD" envDefault:"0.6"`
	AutoConfirmThreshold  float64 `env:"RESOLUTION_AUTO_CONFIRM_THRESHOLD" envDefault:"0.9"`

	// Per-category classification thresholds.
	MatchThreshold   float64 `env:"RESOLUTION_MATCH_THRESHOLD" envDefault:"0.7"`
	PartialThreshold float64 `env:"RESOLUTION_PARTIAL_THRESHOLD" envDefault:"0.4"`

	// FuzzyIdentifiers relaxes the exact-equality rule for identifier values.
	FuzzyIdentifiers bool `env:"RESOLUTION_FUZZY_IDENTIFIERS" envDefault:"false"`
}

// NewConfig parses configuration from environment variables.
func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/peptiq-labs/peptiq/internal/domain"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	TavilyAPIKey string `envconfig:"TAVILY_API_KEY"`

	SentryDSN string `envconfig:"SENTRY_DSN"`

	// Confidence routing. Thresholds are re-read on every query so they can
	// be tuned without dropping traffic.
	HighThreshold   float64 `envconfig:"HIGH_THRESHOLD" default:"0.8"`
	MediumThreshold float64 `envconfig:"MEDIUM_THRESHOLD" default:"0.6"`
	LowThreshold    float64 `envconfig:"LOW_THRESHOLD" default:"0.4"`

	Tier1TTL time.Duration `envconfig:"TIER1_TTL" default:"1h"`
	Tier2TTL time.Duration `envconfig:"TIER2_TTL" default:"24h"`

	ChunkSize        int     `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap     int     `envconfig:"CHUNK_OVERLAP" default:"200"`
	MaxChunksPerPage int     `envconfig:"MAX_CHUNKS_PER_PAGE" default:"5"`
	MaxPages         int     `envconfig:"MAX_PAGES" default:"5"`
	ConfidenceFloor  float64 `envconfig:"CONFIDENCE_FLOOR" default:"0"`

	EmbedTimeout    time.Duration `envconfig:"EMBED_TIMEOUT" default:"15s"`
	SearchTimeout   time.Duration `envconfig:"SEARCH_TIMEOUT" default:"30s"`
	GenerateTimeout time.Duration `envconfig:"GENERATE_TIMEOUT" default:"60s"`

	UsageRetentionDays int `envconfig:"USAGE_RETENTION_DAYS" default:"90"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("PEPTIQ", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate rejects threshold and TTL combinations that would make routing
// decisions incoherent. Called once at startup; a failure here is fatal.
func (c *Config) Validate() error {
	for name, v := range map[string]float64{
		"HIGH_THRESHOLD":   c.HighThreshold,
		"MEDIUM_THRESHOLD": c.MediumThreshold,
		"LOW_THRESHOLD":    c.LowThreshold,
	} {
		if v < 0 || v > 1 {
			return domain.NewConfigurationError(fmt.Sprintf("%s must be in [0, 1], got %g", name, v))
		}
	}
	if !(c.LowThreshold < c.MediumThreshold && c.MediumThreshold < c.HighThreshold) {
		return domain.NewConfigurationError(fmt.Sprintf(
			"thresholds must satisfy LOW < MEDIUM < HIGH, got %g, %g, %g",
			c.LowThreshold, c.MediumThreshold, c.HighThreshold))
	}
	if c.Tier1TTL <= 0 || c.Tier2TTL <= 0 {
		return domain.NewConfigurationError("cache TTLs must be positive")
	}
	if c.ChunkSize <= 0 || c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return domain.NewConfigurationError(fmt.Sprintf(
			"chunk overlap %d must be non-negative and smaller than chunk size %d",
			c.ChunkOverlap, c.ChunkSize))
	}
	if c.MaxChunksPerPage <= 0 || c.MaxPages <= 0 {
		return domain.NewConfigurationError("MAX_CHUNKS_PER_PAGE and MAX_PAGES must be positive")
	}
	if c.ConfidenceFloor < 0 || c.ConfidenceFloor > 1 {
		return domain.NewConfigurationError(fmt.Sprintf("CONFIDENCE_FLOOR must be in [0, 1], got %g", c.ConfidenceFloor))
	}
	if c.UsageRetentionDays <= 0 {
		return domain.NewConfigurationError("USAGE_RETENTION_DAYS must be positive")
	}
	return nil
}

func (c *Config) HasRedis() bool {
	return c.RedisAddr != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasTavily() bool {
	return c.TavilyAPIKey != ""
}

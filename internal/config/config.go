package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/vytor/studyflash/internal/logger"
)

const (
	GeneratorMock      = "mock"
	GeneratorAnthropic = "anthropic"
)

type Config struct {
	Addr               string
	DBPath             string
	LogLevel           string
	JWTSecret          string
	BusinessTimezone   string
	NewCardsPerSession int
	GenerationTimeout  time.Duration
	Generator          string
	AnthropicAPIKey    string
	AnthropicModel     string
	AbandonWorkerCount int
	AbandonQueueSize   int
	QuizIdleTimeout    time.Duration
	AbandonSweepEvery  time.Duration
	CORSOrigins        []string
	MaxImportBytes     int64
}

// Load reads configuration from a .env file (if present) and environment variables,
// applying sensible defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	return Config{
		Addr:               envOr("ADDR", ":8080"),
		DBPath:             envOr("DB_PATH", "file:studyflash.db"),
		LogLevel:           envOr("LOG_LEVEL", "INFO"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		BusinessTimezone:   envOr("BUSINESS_TIMEZONE", "UTC"),
		NewCardsPerSession: envIntOr("NEW_CARDS_PER_SESSION", 20),
		GenerationTimeout:  envDurationOr("GENERATION_TIMEOUT", 30*time.Second),
		Generator:          strings.ToLower(envOr("GENERATOR", GeneratorMock)),
		AnthropicAPIKey:    os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:     envOr("ANTHROPIC_MODEL", "claude-sonnet-4-5"),
		AbandonWorkerCount: envIntOr("ABANDON_WORKER_COUNT", 2),
		AbandonQueueSize:   envIntOr("ABANDON_QUEUE_SIZE", 128),
		QuizIdleTimeout:    envDurationOr("QUIZ_IDLE_TIMEOUT", 2*time.Hour),
		AbandonSweepEvery:  envDurationOr("ABANDON_SWEEP_INTERVAL", 10*time.Minute),
		CORSOrigins:        envListOr("CORS_ORIGINS", []string{"*"}),
		MaxImportBytes:     int64(envIntOr("MAX_IMPORT_BYTES", 5<<20)),
	}
}

// Validate checks every field and reports all problems at once.
func (c Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Addr) == "" {
		problems = append(problems, "ADDR cannot be empty")
	}
	if strings.TrimSpace(c.DBPath) == "" {
		problems = append(problems, "DB_PATH cannot be empty")
	}
	if !logger.IsValidLevel(c.LogLevel) {
		problems = append(problems, fmt.Sprintf("LOG_LEVEL must be one of DEBUG, INFO, WARN, ERROR (got %q)", c.LogLevel))
	}
	if len(c.JWTSecret) < 16 {
		problems = append(problems, "JWT_SECRET must be at least 16 characters")
	}
	if _, err := time.LoadLocation(c.BusinessTimezone); err != nil || c.BusinessTimezone == "" {
		problems = append(problems, fmt.Sprintf("BUSINESS_TIMEZONE %q is not a known location", c.BusinessTimezone))
	}
	if c.NewCardsPerSession < 0 {
		problems = append(problems, "NEW_CARDS_PER_SESSION cannot be negative")
	}
	if c.GenerationTimeout <= 0 {
		problems = append(problems, "GENERATION_TIMEOUT must be positive")
	}
	switch c.Generator {
	case GeneratorMock:
	case GeneratorAnthropic:
		if c.AnthropicAPIKey == "" {
			problems = append(problems, "ANTHROPIC_API_KEY is required when GENERATOR=anthropic")
		}
		if c.AnthropicModel == "" {
			problems = append(problems, "ANTHROPIC_MODEL cannot be empty when GENERATOR=anthropic")
		}
	default:
		problems = append(problems, fmt.Sprintf("GENERATOR must be %q or %q (got %q)", GeneratorMock, GeneratorAnthropic, c.Generator))
	}
	if c.AbandonWorkerCount < 1 {
		problems = append(problems, "ABANDON_WORKER_COUNT must be at least 1")
	}
	if c.AbandonQueueSize < 1 {
		problems = append(problems, "ABANDON_QUEUE_SIZE must be at least 1")
	}
	if c.QuizIdleTimeout < 0 {
		problems = append(problems, "QUIZ_IDLE_TIMEOUT cannot be negative")
	}
	if c.AbandonSweepEvery < 0 {
		problems = append(problems, "ABANDON_SWEEP_INTERVAL cannot be negative")
	}
	if c.MaxImportBytes <= 0 {
		problems = append(problems, "MAX_IMPORT_BYTES must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// SweepEnabled reports whether the idle quiz sweep should be scheduled.
func (c Config) SweepEnabled() bool {
	return c.QuizIdleTimeout > 0 && c.AbandonSweepEvery > 0
}

// Location resolves BusinessTimezone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.BusinessTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}

func envDurationOr(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("invalid duration for %s=%q, using default %s", key, v, def)
	}
	return def
}

func envListOr(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

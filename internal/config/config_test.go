package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/studyflash/internal/config"
)

func validConfig() config.Config {
	return config.Config{
		Addr:               ":8080",
		DBPath:             "test.db",
		LogLevel:           "INFO",
		JWTSecret:          "0123456789abcdef0123",
		BusinessTimezone:   "UTC",
		NewCardsPerSession: 20,
		GenerationTimeout:  30 * time.Second,
		Generator:          config.GeneratorMock,
		AbandonWorkerCount: 2,
		AbandonQueueSize:   64,
		QuizIdleTimeout:    time.Hour,
		AbandonSweepEvery:  time.Minute,
		MaxImportBytes:     1 << 20,
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_EmptyAddr(t *testing.T) {
	cfg := validConfig()
	cfg.Addr = ""

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ADDR cannot be empty")
}

func TestValidate_EmptyDBPath(t *testing.T) {
	cfg := validConfig()
	cfg.DBPath = ""

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "DB_PATH cannot be empty")
}

func TestValidate_LogLevel(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"DEBUG", true},
		{"INFO", true},
		{"WARN", true},
		{"ERROR", true},
		{"debug", true},
		{"INVALID", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.LogLevel = tt.level

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "LOG_LEVEL")
			}
		})
	}
}

func TestValidate_Generator(t *testing.T) {
	cfg := validConfig()
	cfg.Generator = config.GeneratorAnthropic

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")

	cfg.AnthropicAPIKey = "sk-test"
	cfg.AnthropicModel = "claude-sonnet-4-5"
	assert.NoError(t, cfg.Validate())

	cfg.Generator = "openai"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GENERATOR")
}

func TestValidate_BusinessTimezone(t *testing.T) {
	cfg := validConfig()
	cfg.BusinessTimezone = "Mars/Olympus_Mons"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BUSINESS_TIMEZONE")
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := config.Config{
		LogLevel:           "INVALID",
		BusinessTimezone:   "UTC",
		NewCardsPerSession: -1,
		Generator:          config.GeneratorMock,
	}

	err := cfg.Validate()
	require.Error(t, err)

	errStr := err.Error()
	assert.Contains(t, errStr, "ADDR cannot be empty")
	assert.Contains(t, errStr, "DB_PATH cannot be empty")
	assert.Contains(t, errStr, "LOG_LEVEL")
	assert.Contains(t, errStr, "JWT_SECRET")
	assert.Contains(t, errStr, "NEW_CARDS_PER_SESSION")
	assert.Contains(t, errStr, "GENERATION_TIMEOUT")
	assert.Contains(t, errStr, "ABANDON_WORKER_COUNT")
	assert.Contains(t, errStr, "ABANDON_QUEUE_SIZE")
	assert.Contains(t, errStr, "MAX_IMPORT_BYTES")
}

func TestSweepEnabled(t *testing.T) {
	cfg := validConfig()
	assert.True(t, cfg.SweepEnabled())

	cfg.QuizIdleTimeout = 0
	assert.False(t, cfg.SweepEnabled())
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("ADDR", ":9090")
	t.Setenv("DB_PATH", "custom.db")
	t.Setenv("GENERATION_TIMEOUT", "5s")
	t.Setenv("NEW_CARDS_PER_SESSION", "not-a-number")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")

	cfg := config.Load()

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "custom.db", cfg.DBPath)
	assert.Equal(t, 5*time.Second, cfg.GenerationTimeout)
	assert.Equal(t, 20, cfg.NewCardsPerSession)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

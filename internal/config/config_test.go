package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper to set env vars and clean up after
func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if !had {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, old)
		}
	})
}

func clearProviderEnv(t *testing.T) {
	for _, k := range []string{"HISTORY_PROVIDER", "ETHERSCAN_API_KEY", "AI_PROVIDER", "DEFAULT_CHAIN", "ENV",
		"SOURCE_TIMEOUT_MS", "ALERT_WEBHOOK_URL", "ALERT_WEBHOOK_SECRET", "BREAKER_THRESHOLD"} {
		setEnv(t, k, "")
	}
}

func validConfig() Config {
	return Config{
		Port:             "8080",
		Env:              "development",
		DefaultChain:     "ethereum",
		SourceTimeout:    time.Second,
		BreakerThreshold: 3,
		AIProvider:       ProviderGemini,
		HistoryProvider:  HistoryNone,
		RateLimitRPS:     10,
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearProviderEnv(t)
	setEnv(t, "PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "ethereum", cfg.DefaultChain)
	assert.Equal(t, DefaultSourceTimeout, cfg.SourceTimeout)
	assert.Equal(t, DefaultChainalysisAPIURL, cfg.ChainalysisAPIURL)
	assert.Equal(t, ProviderGemini, cfg.AIProvider)
	assert.Equal(t, HistorySynthetic, cfg.HistoryProvider, "development defaults to synthetic history")
}

func TestLoad_SourceTimeoutMillis(t *testing.T) {
	clearProviderEnv(t)
	setEnv(t, "SOURCE_TIMEOUT_MS", "2500")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2500*time.Millisecond, cfg.SourceTimeout)
}

func TestLoad_HistoryProviderResolution(t *testing.T) {
	t.Run("etherscan key wins", func(t *testing.T) {
		clearProviderEnv(t)
		setEnv(t, "ETHERSCAN_API_KEY", "k")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, HistoryEtherscan, cfg.HistoryProvider)
	})

	t.Run("production without key is empty", func(t *testing.T) {
		clearProviderEnv(t)
		setEnv(t, "ENV", "production")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, HistoryNone, cfg.HistoryProvider)
	})

	t.Run("explicit provider", func(t *testing.T) {
		clearProviderEnv(t)
		setEnv(t, "HISTORY_PROVIDER", "None")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, HistoryNone, cfg.HistoryProvider)
	})
}

func TestLoad_UnsupportedChain(t *testing.T) {
	clearProviderEnv(t)
	setEnv(t, "DEFAULT_CHAIN", "solana")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEFAULT_CHAIN")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid config", func(*Config) {}, ""},
		{"missing port", func(c *Config) { c.Port = "" }, "PORT is required"},
		{"zero timeout", func(c *Config) { c.SourceTimeout = 0 }, "SOURCE_TIMEOUT_MS"},
		{"breaker threshold", func(c *Config) { c.BreakerThreshold = 0 }, "BREAKER_THRESHOLD"},
		{"negative rate limit", func(c *Config) { c.RateLimitRPS = -1 }, "RATE_LIMIT_RPS"},
		{"unknown ai provider", func(c *Config) { c.AIProvider = "llama" }, "AI_PROVIDER"},
		{"unknown history provider", func(c *Config) { c.HistoryProvider = "covalent" }, "HISTORY_PROVIDER"},
		{"etherscan without key", func(c *Config) { c.HistoryProvider = HistoryEtherscan }, "ETHERSCAN_API_KEY"},
		{"secret without webhook", func(c *Config) { c.AlertWebhookSecret = "s" }, "ALERT_WEBHOOK_URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestConfig_AIKey(t *testing.T) {
	cfg := validConfig()
	cfg.GeminiAPIKey = "g"
	cfg.OpenAIAPIKey = "o"
	assert.Equal(t, "g", cfg.AIKey())

	cfg.AIProvider = ProviderOpenAI
	assert.Equal(t, "o", cfg.AIKey())
}

func TestConfig_IsDevelopment(t *testing.T) {
	cfg := &Config{Env: "development"}
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	cfg.Env = "production"
	assert.False(t, cfg.IsDevelopment())
	assert.True(t, cfg.IsProduction())
}

func TestGetEnv(t *testing.T) {
	setEnv(t, "TEST_VAR", "custom_value")

	assert.Equal(t, "custom_value", getEnv("TEST_VAR", "default"))
	assert.Equal(t, "default", getEnv("NONEXISTENT_VAR", "default"))
}

func TestGetEnvInt64(t *testing.T) {
	setEnv(t, "TEST_INT", "42")
	setEnv(t, "TEST_INVALID", "not_a_number")

	assert.Equal(t, int64(42), getEnvInt64("TEST_INT", 0))
	assert.Equal(t, int64(99), getEnvInt64("NONEXISTENT_VAR", 99))
	assert.Equal(t, int64(99), getEnvInt64("TEST_INVALID", 99)) // Falls back on parse error
}

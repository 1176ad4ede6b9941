// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mbd888/chainrisk/internal/signal"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port      string
	Env       string // "development", "staging", "production"
	LogLevel  string
	LogFormat string // "text" or "json"

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory reports if not set)

	// Analysis
	DefaultChain     string
	SourceTimeout    time.Duration
	BreakerThreshold int

	// Sanctions screening (Chainalysis)
	ChainalysisAPIKey string
	ChainalysisAPIURL string

	// AI model for behavioral and cross-chain analysis
	AIProvider   string // "gemini" or "openai"
	GeminiAPIKey string
	GeminiModel  string
	GeminiAPIURL string
	OpenAIAPIKey string
	OpenAIModel  string

	// Transaction history
	HistoryProvider string // "etherscan", "synthetic", "none"
	EtherscanAPIKey string
	EtherscanAPIURL string

	// Alerts
	AlertWebhookURL    string
	AlertWebhookSecret string
	DiscordWebhookURL  string

	// Misc
	LabelsFile   string
	RateLimitRPS int
	OTLPEndpoint string
}

const (
	DefaultPort              = "8080"
	DefaultEnv               = "development"
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
	DefaultSourceTimeout     = 10 * time.Second
	DefaultBreakerThreshold  = 5
	DefaultChainalysisAPIURL = "https://public.chainalysis.com/api/v1/address"
	DefaultAIProvider        = "gemini"
	DefaultGeminiModel       = "gemini-2.0-flash"
	DefaultGeminiAPIURL      = "https://generativelanguage.googleapis.com/v1beta"
	DefaultOpenAIModel       = "gpt-4o-mini"
	DefaultEtherscanAPIURL   = "https://api.etherscan.io/v2/api"
	DefaultRateLimit         = 20
)

// History providers.
const (
	HistoryEtherscan = "etherscan"
	HistorySynthetic = "synthetic"
	HistoryNone      = "none"
)

// AI providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", DefaultPort),
		Env:                getEnv("ENV", DefaultEnv),
		LogLevel:           getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:          getEnv("LOG_FORMAT", DefaultLogFormat),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		DefaultChain:       strings.ToLower(getEnv("DEFAULT_CHAIN", signal.DefaultChain)),
		SourceTimeout:      time.Duration(getEnvInt64("SOURCE_TIMEOUT_MS", DefaultSourceTimeout.Milliseconds())) * time.Millisecond,
		BreakerThreshold:   int(getEnvInt64("BREAKER_THRESHOLD", DefaultBreakerThreshold)),
		ChainalysisAPIKey:  os.Getenv("CHAINALYSIS_API_KEY"),
		ChainalysisAPIURL:  getEnv("CHAINALYSIS_API_URL", DefaultChainalysisAPIURL),
		AIProvider:         strings.ToLower(getEnv("AI_PROVIDER", DefaultAIProvider)),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiModel:        getEnv("GEMINI_MODEL", DefaultGeminiModel),
		GeminiAPIURL:       getEnv("GEMINI_API_URL", DefaultGeminiAPIURL),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:        getEnv("OPENAI_MODEL", DefaultOpenAIModel),
		HistoryProvider:    strings.ToLower(os.Getenv("HISTORY_PROVIDER")),
		EtherscanAPIKey:    os.Getenv("ETHERSCAN_API_KEY"),
		EtherscanAPIURL:    getEnv("ETHERSCAN_API_URL", DefaultEtherscanAPIURL),
		AlertWebhookURL:    os.Getenv("ALERT_WEBHOOK_URL"),
		AlertWebhookSecret: os.Getenv("ALERT_WEBHOOK_SECRET"),
		DiscordWebhookURL:  os.Getenv("DISCORD_WEBHOOK_URL"),
		LabelsFile:         os.Getenv("LABELS_FILE"),
		RateLimitRPS:       int(getEnvInt64("RATE_LIMIT_RPS", int64(DefaultRateLimit))),
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
	cfg.HistoryProvider = cfg.resolveHistoryProvider()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// resolveHistoryProvider picks etherscan when a key is present, synthetic
// data in development, and an empty history otherwise.
func (c *Config) resolveHistoryProvider() string {
	if c.HistoryProvider != "" {
		return c.HistoryProvider
	}
	if c.EtherscanAPIKey != "" {
		return HistoryEtherscan
	}
	if c.IsDevelopment() {
		return HistorySynthetic
	}
	return HistoryNone
}

// Validate checks that the configuration is coherent
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if !signal.IsSupportedChain(c.DefaultChain) {
		return fmt.Errorf("DEFAULT_CHAIN %q is not supported", c.DefaultChain)
	}
	if c.SourceTimeout <= 0 {
		return fmt.Errorf("SOURCE_TIMEOUT_MS must be positive")
	}
	if c.BreakerThreshold < 1 {
		return fmt.Errorf("BREAKER_THRESHOLD must be at least 1")
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must not be negative")
	}

	switch c.AIProvider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("AI_PROVIDER must be %q or %q", ProviderGemini, ProviderOpenAI)
	}

	switch c.HistoryProvider {
	case HistoryEtherscan:
		if c.EtherscanAPIKey == "" {
			return fmt.Errorf("ETHERSCAN_API_KEY is required for the etherscan history provider")
		}
	case HistorySynthetic, HistoryNone:
	default:
		return fmt.Errorf("HISTORY_PROVIDER must be one of etherscan, synthetic, none")
	}

	if c.AlertWebhookSecret != "" && c.AlertWebhookURL == "" {
		return fmt.Errorf("ALERT_WEBHOOK_SECRET is set without ALERT_WEBHOOK_URL")
	}

	return nil
}

// AIKey returns the credential for the selected provider.
func (c *Config) AIKey() string {
	if c.AIProvider == ProviderOpenAI {
		return c.OpenAIAPIKey
	}
	return c.GeminiAPIKey
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

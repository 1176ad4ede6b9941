package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/chainrisk/internal/config"
	"github.com/mbd888/chainrisk/internal/risk"
	"github.com/mbd888/chainrisk/internal/signal"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Port:             "0",
		Env:              "development",
		DefaultChain:     "ethereum",
		SourceTimeout:    time.Second,
		BreakerThreshold: 3,
		AIProvider:       config.ProviderGemini,
		HistoryProvider:  config.HistoryNone,
	}
}

func TestNew_InMemory(t *testing.T) {
	p, err := New(context.Background(), memoryConfig(), Options{})
	require.NoError(t, err)
	defer p.Close()

	assert.Nil(t, p.DB)
	assert.Nil(t, p.Model)
	assert.Equal(t, "none", p.History.Name())

	rep, err := p.Analyzer.Analyze(context.Background(), "0xCAFEBABEcafebabecafebabecafebabecafebabe", "")
	require.NoError(t, err)
	assert.Equal(t, 20, rep.Assessment.Breakdown.ScamReports)
	assert.Equal(t, risk.CategoryLow, rep.Assessment.Category)
	assert.Equal(t, signal.StatusUnavailable, rep.Signals.Sanctions.Status())
	assert.Equal(t, signal.StatusUnavailable, rep.Signals.Behavioral.Status())
	assert.Equal(t, signal.StatusOK, rep.Signals.ScamReports.Status())
}

func TestNew_LabelsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.yaml")
	require.NoError(t, os.WriteFile(path, []byte("entities:\n  \"0x00000000000000000000000000000000000000AB\": [\"Test Desk\"]\n"), 0o600))

	cfg := memoryConfig()
	cfg.LabelsFile = path
	p, err := New(context.Background(), cfg, Options{})
	require.NoError(t, err)

	rep, err := p.Analyzer.Analyze(context.Background(), "0x00000000000000000000000000000000000000ab", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Test Desk"}, rep.Assessment.Labels)

	cfg.LabelsFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = New(context.Background(), cfg, Options{})
	assert.Error(t, err)
}

func TestNew_RejectsUnsafeSinkOutsideDevelopment(t *testing.T) {
	cfg := memoryConfig()
	cfg.Env = "production"
	cfg.AlertWebhookURL = "http://127.0.0.1:9000/hook"

	_, err := New(context.Background(), cfg, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ALERT_WEBHOOK_URL")

	cfg.Env = "development"
	p, err := New(context.Background(), cfg, Options{})
	require.NoError(t, err)
	assert.NotNil(t, p.Alerts)
}

func TestNew_UnknownHistoryProvider(t *testing.T) {
	cfg := memoryConfig()
	cfg.HistoryProvider = "covalent"
	_, err := New(context.Background(), cfg, Options{})
	assert.Error(t, err)
}

func TestModelOptions(t *testing.T) {
	cfg := memoryConfig()
	cfg.GeminiAPIKey = "g-key"
	cfg.GeminiModel = "gemini-2.0-flash"
	cfg.GeminiAPIURL = "https://example.test/v1beta"
	opts := modelOptions(cfg, nil)
	assert.Equal(t, "g-key", opts.APIKey)
	assert.Equal(t, "gemini-2.0-flash", opts.Model)
	assert.Equal(t, "https://example.test/v1beta", opts.BaseURL)

	cfg.AIProvider = config.ProviderOpenAI
	cfg.OpenAIAPIKey = "o-key"
	cfg.OpenAIModel = "gpt-4o-mini"
	opts = modelOptions(cfg, nil)
	assert.Equal(t, "o-key", opts.APIKey)
	assert.Equal(t, "gpt-4o-mini", opts.Model)
	assert.Empty(t, opts.BaseURL)
}

func TestMaskDSN(t *testing.T) {
	assert.Equal(t, "postgres://app:%2A%2A%2A@db:5432/chainrisk", MaskDSN("postgres://app:secret@db:5432/chainrisk"))
	assert.Equal(t, "postgres://db/chainrisk", MaskDSN("postgres://db/chainrisk"))
	assert.Equal(t, "***", MaskDSN("://bad"))
}

// Package pipeline assembles the analysis stack from configuration: storage,
// upstream clients, signal sources, the collector, the scoring engine and the
// alert dispatcher. The HTTP server and riskctl share it.
package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/mbd888/chainrisk/internal/ai"
	"github.com/mbd888/chainrisk/internal/alerts"
	"github.com/mbd888/chainrisk/internal/analyzer"
	"github.com/mbd888/chainrisk/internal/circuitbreaker"
	"github.com/mbd888/chainrisk/internal/collector"
	"github.com/mbd888/chainrisk/internal/config"
	"github.com/mbd888/chainrisk/internal/history"
	"github.com/mbd888/chainrisk/internal/labels"
	"github.com/mbd888/chainrisk/internal/realtime"
	"github.com/mbd888/chainrisk/internal/reports"
	"github.com/mbd888/chainrisk/internal/retry"
	"github.com/mbd888/chainrisk/internal/risk"
	"github.com/mbd888/chainrisk/internal/security"
	"github.com/mbd888/chainrisk/internal/sources"
	"github.com/mbd888/chainrisk/internal/upstream"
)

// breakerCooldown is how long an open source circuit waits before a probe.
const breakerCooldown = 30 * time.Second

// Options adjusts what New builds.
type Options struct {
	Logger *slog.Logger
	// Hub, when set, receives every alert as a live feed event.
	Hub *realtime.Hub
	// Collector replaces the configured sources. Used by tests.
	Collector analyzer.Collector
	// Sinks are added after the configured webhook sinks.
	Sinks []alerts.Sink
	// DisableAlerts builds an analyzer without a notifier.
	DisableAlerts bool
}

// Pipeline holds the assembled components.
type Pipeline struct {
	Analyzer *analyzer.Analyzer
	Alerts   *alerts.Dispatcher
	Breaker  *circuitbreaker.Breaker
	Reports  reports.Store
	Labels   *labels.Directory
	DB       *sql.DB // nil when using in-memory reports
	Model    ai.Model
	History  history.Provider
}

// New builds the pipeline. It connects to the database when DATABASE_URL is
// set, retrying the first ping with the startup backoff policy.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Pipeline, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{Breaker: circuitbreaker.New(cfg.BreakerThreshold, breakerCooldown)}

	if cfg.DatabaseURL != "" {
		db, err := Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		p.DB = db
		p.Reports = reports.NewPostgresStore(db)
		logger.Info("using PostgreSQL report store", "url", MaskDSN(cfg.DatabaseURL))
	} else {
		p.Reports = reports.NewMemoryStore(reports.Seed)
		logger.Info("using in-memory report store")
	}

	dir := labels.Default()
	if cfg.LabelsFile != "" {
		d, err := labels.LoadFile(cfg.LabelsFile)
		if err != nil {
			p.Close()
			return nil, err
		}
		dir = d
	}
	p.Labels = dir

	client := upstream.NewClient()

	provider, err := history.New(cfg.HistoryProvider, cfg.EtherscanAPIKey, cfg.EtherscanAPIURL, client)
	if err != nil {
		p.Close()
		return nil, err
	}
	p.History = provider

	p.Model = ai.New(modelOptions(cfg, client))
	if p.Model == nil {
		logger.Warn("no AI credential configured, behavioral and cross-chain analysis unavailable")
	}

	coll := opts.Collector
	if coll == nil {
		srcCfg := sources.Config{Timeout: cfg.SourceTimeout, Breaker: p.Breaker}
		coll = collector.New(collector.Sources{
			Sanctions:   sources.NewSanctions(cfg.ChainalysisAPIKey, cfg.ChainalysisAPIURL, client, srcCfg),
			ScamReports: sources.NewScamReports(p.Reports, srcCfg),
			History:     sources.NewHistory(provider, srcCfg),
			Behavioral:  sources.NewBehavioral(p.Model, srcCfg),
			CrossChain:  sources.NewCrossChain(provider, p.Model, srcCfg),
		})
	}

	sinks, err := buildSinks(cfg, client)
	if err != nil {
		p.Close()
		return nil, err
	}
	if opts.Hub != nil {
		sinks = append(sinks, alerts.NewHubSink(opts.Hub))
	}
	sinks = append(sinks, opts.Sinks...)
	p.Alerts = alerts.NewDispatcher(sinks...)

	var notifier analyzer.Notifier
	if !opts.DisableAlerts {
		notifier = p.Alerts
	}
	p.Analyzer = analyzer.New(coll, risk.NewEngine(dir), notifier)

	logger.Info("analysis pipeline ready",
		"history", provider.Name(),
		"ai_provider", cfg.AIProvider,
		"sanctions", cfg.ChainalysisAPIKey != "",
		"alert_sinks", len(sinks),
	)
	return p, nil
}

func modelOptions(cfg *config.Config, client *http.Client) ai.Options {
	opts := ai.Options{Provider: cfg.AIProvider, APIKey: cfg.AIKey(), Client: client}
	if cfg.AIProvider == config.ProviderOpenAI {
		opts.Model = cfg.OpenAIModel
	} else {
		opts.Model = cfg.GeminiModel
		opts.BaseURL = cfg.GeminiAPIURL
	}
	return opts
}

func buildSinks(cfg *config.Config, client *http.Client) ([]alerts.Sink, error) {
	var sinks []alerts.Sink
	allowPrivate := cfg.IsDevelopment()
	if cfg.AlertWebhookURL != "" {
		if err := security.ValidateSinkURL(cfg.AlertWebhookURL, allowPrivate); err != nil {
			return nil, fmt.Errorf("ALERT_WEBHOOK_URL: %w", err)
		}
		sinks = append(sinks, alerts.NewWebhookSink(cfg.AlertWebhookURL, cfg.AlertWebhookSecret, client))
	}
	if cfg.DiscordWebhookURL != "" {
		if err := security.ValidateSinkURL(cfg.DiscordWebhookURL, allowPrivate); err != nil {
			return nil, fmt.Errorf("DISCORD_WEBHOOK_URL: %w", err)
		}
		sinks = append(sinks, alerts.NewDiscordSink(cfg.DiscordWebhookURL, client))
	}
	return sinks, nil
}

// Open opens a PostgreSQL pool and waits for it to answer a ping.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := retry.Startup.Do(ctx, db.PingContext); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Close releases the database pool.
func (p *Pipeline) Close() error {
	if p.DB == nil {
		return nil
	}
	return p.DB.Close()
}

// MaskDSN hides the password in a connection string for logging.
func MaskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

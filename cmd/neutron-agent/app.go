package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"neutron-agent/internal/clients"
	"neutron-agent/internal/config"
	"neutron-agent/internal/core/pipeline"
	"neutron-agent/internal/core/ports"
	"neutron-agent/internal/core/rules"
	"neutron-agent/internal/logging"
	"neutron-agent/internal/monitoring"
	"neutron-agent/internal/neutron"
	"neutron-agent/internal/notify"
	"neutron-agent/internal/sites/moltbook"
	"neutron-agent/internal/storage"
)

// app holds the wired components for one process.
type app struct {
	cfg      config.Config
	logger   logging.Logger
	metrics  *monitoring.MetricsCollector
	ledger   ports.Ledger
	platform *moltbook.Client
	memory   *neutron.Client
	recorder *pipeline.Recorder
	pipeline *pipeline.Pipeline

	closers []func() error
}

func buildApp(ctx context.Context, cfg config.Config, logger logging.Logger) (*app, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mc := monitoring.NewMetricsCollector(serviceName, reg)
	pm := monitoring.NewPipelineMetrics(mc)

	a := &app{cfg: cfg, logger: logger, metrics: mc}

	ruleset, err := rules.Load(cfg.RulesFile)
	if err != nil {
		return nil, err
	}

	ledger, closer, err := openLedger(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}
	if err := ledger.Load(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	a.ledger = ledger
	pm.SetLedgerEntries(ledger.Len())
	logger.WithFields(logging.Fields{
		"backend": cfg.LedgerBackend,
		"entries": ledger.Len(),
	}).Info("Ledger loaded")

	httpClient := clients.NewHTTPClient(cfg.HTTPTimeout)
	a.platform = moltbook.NewClient(cfg.MoltbookBaseURL, cfg.MoltbookAPIKey, moltbook.WithHTTPClient(httpClient))
	a.memory = neutron.NewClient(neutron.Config{
		BaseURL:        cfg.NeutronBaseURL,
		APIKey:         cfg.NeutronAPIKey,
		AppID:          cfg.NeutronAppID,
		ExternalUserID: cfg.NeutronExternalUserID,
		HTTPClient:     httpClient,
		Logger:         logger,
	})

	var memoryStore ports.MemoryStore = a.memory
	if cfg.NeutronAPIKey == "" {
		logger.Warn("NEUTRON_API_KEY not set, memory recording disabled")
		memoryStore = nil
	}
	a.recorder = pipeline.NewRecorder(memoryStore, cfg.AgentName, cfg.HTTPTimeout, logger, pm)

	deps := pipeline.Deps{
		Platform:   a.platform,
		Ledger:     ledger,
		Rules:      ruleset,
		Dispatcher: pipeline.NewDispatcher(a.platform, cfg.HTTPTimeout, logger, pm),
		Recorder:   a.recorder,
		Logger:     logger,
		Metrics:    pm,
	}
	if cfg.TelegramEnabled() {
		tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			logger.WithError(err).Warn("Telegram notifier disabled")
		} else {
			deps.Notifier = tg
		}
	}

	a.pipeline = pipeline.New(deps, cfg.MoltbookAgentID, cfg.ReplyDelay)
	return a, nil
}

func openLedger(ctx context.Context, cfg config.Config, logger logging.Logger) (ports.Ledger, func() error, error) {
	switch cfg.LedgerBackend {
	case config.LedgerPostgres:
		l, err := storage.OpenPostgresLedger(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		return l, l.Close, nil
	case config.LedgerRedis:
		l, err := storage.OpenRedisLedger(ctx, cfg.RedisURL, logger)
		if err != nil {
			return nil, nil, err
		}
		return l, l.Close, nil
	default:
		l, err := storage.NewJSONLedger(cfg.LedgerPath, logger)
		if err != nil {
			return nil, nil, err
		}
		return l, nil, nil
	}
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.WithError(err).Warn("Close failed")
		}
	}
}

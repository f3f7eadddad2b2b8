package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"neutron-agent/internal/dashboard"
	"neutron-agent/internal/logging"
	"neutron-agent/internal/poller"
	"neutron-agent/internal/server"
	"neutron-agent/internal/webhook"
)

func newServeCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server, dashboard API and polling loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, rt)
		},
	}
}

func serve(ctx context.Context, rt *runtime) error {
	logger := rt.logger
	cfg := rt.cfg

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	started := time.Now()
	router := server.SetupRouter(logger, a.metrics)
	router.GET("/", server.StatusHandler(cfg.AgentName, started, a.pipeline.HandledCount))
	webhook.NewHandler(a.pipeline, cfg.WatchedPosts, logger).RegisterRoutes(router)
	dashboard.NewHandler(a.platform, a.memory, a.recorder, cfg.AgentName, cfg.WatchedPosts, logger).RegisterRoutes(router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx, server.DefaultConfig(serviceName, cfg.Port), router, logger)
	})

	if cfg.EnablePolling {
		p := poller.New(a.pipeline, cfg.WatchedPosts, cfg.PollInterval, logger)
		g.Go(func() error { return p.Run(gctx) })
		g.Go(func() error {
			forwardTriggerSignal(gctx, p.Trigger)
			return nil
		})
	} else {
		logger.Info("Polling disabled")
	}

	logger.WithFields(logging.Fields{
		"port":    cfg.Port,
		"agent":   cfg.AgentName,
		"watched": len(cfg.WatchedPosts),
	}).Info("Neutron agent running")

	return g.Wait()
}

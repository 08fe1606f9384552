package main

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/cluso-noc/pkg/api"
	"github.com/dd0wney/cluso-noc/pkg/health"
	"github.com/dd0wney/cluso-noc/pkg/logging"
	"github.com/dd0wney/cluso-noc/pkg/metrics"
	"github.com/dd0wney/cluso-noc/pkg/server"
)

var (
	serveChurn time.Duration

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the console API",
		RunE:  runServe,
	}
)

func init() {
	serveCmd.Flags().DurationVar(&serveChurn, "demo-churn", 15*time.Second, "how often the demo backend changes fault counts (0 disables)")
}

func memoryUsage() (alloc, sys uint64) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc, m.Sys
}

func registerChecks(hc *health.HealthChecker, c *console) {
	hc.RegisterLivenessCheck("memory", health.MemoryCheck(memoryUsage))
	hc.RegisterReadinessCheck("backend", health.BackendCheck(c.Ping))
	hc.RegisterReadinessCheck("device_tree", health.TreeCheck(c.TreeHealth))
	hc.RegisterReadinessCheck("document", health.DocumentCheck(c.DocumentHealth))
	hc.RegisterReadinessCheck("polling", health.PollingCheck(c.PollHealth))
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := logging.NewJSONLogger(os.Stdout, cfg.Level())
	logging.SetDefaultLogger(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	reg := metrics.DefaultRegistry()
	c, err := newConsole(ctx, cfg, logger, reg)
	if err != nil {
		return err
	}
	defer c.Close()

	hc := health.NewHealthChecker()
	registerChecks(hc, c)

	handler := api.NewServer(c,
		api.WithLogger(logger),
		api.WithMetrics(reg),
		api.WithHealth(hc),
		api.WithCORSOrigins(cfg.CORSOrigins))

	gs := server.NewGracefulServer(cfg.Listen, handler,
		server.WithLogger(logger),
		server.WithShutdownTimeout(cfg.ShutdownTimeout),
		server.WithSignals())
	gs.SetReloadFunc(c.LoadTree)
	gs.OnShutdown(cancel)

	logger.Info("console listening", logging.String("addr", cfg.Listen))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c.churn(gctx, serveChurn)
		return nil
	})
	g.Go(func() error {
		defer cancel()
		return gs.Run(gctx)
	})
	return g.Wait()
}

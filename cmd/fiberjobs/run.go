package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Swind/go-fiber-jobs/core"
	"github.com/Swind/go-fiber-jobs/internal/config"
	obs "github.com/Swind/go-fiber-jobs/observability/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/automaxprocs/maxprocs"
)

func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "run the demonstration workload",
		Flags: append(overrideFlags(),
			&cli.DurationFlag{
				Name:  "linger",
				Usage: "keep the metrics endpoint up this long after the workload",
			},
		),
		Action: RunAction,
	}
}

func RunAction(c *cli.Context) error {
	// 1. Load config
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, err := cfg.NewLogger(c.App.ErrWriter)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	// 2. Size GOMAXPROCS to the CPU quota before the thread count is resolved
	undo, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		logger.Debug(fmt.Sprintf(format, args...))
	}))
	defer undo()
	if err != nil {
		logger.Warn("failed to set GOMAXPROCS", core.F("error", err))
	}

	// 3. Build the job system
	coreCfg := cfg.CoreConfig(logger)
	coreCfg.PanicHandler = &core.LoggingPanicHandler{Logger: logger}

	var metrics *metricsServer
	if cfg.Metrics.Addr != "" {
		metrics, err = startMetricsServer(cfg.Metrics, logger)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Failed to start metrics: %v", err), 1)
		}
		defer metrics.Close()
		coreCfg.Metrics = metrics.exporter
	}

	js, err := core.NewJobSystemWithConfig(coreCfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to create job system: %v", err), 1)
	}
	if need := fibersNeeded(cfg.Workload, js.NumThreads()); need > js.NumFibers() {
		logger.Warn("fiber pool may be too small for the nested stage",
			core.F("fibers", js.NumFibers()),
			core.F("needed", need),
		)
	}
	if metrics != nil {
		metrics.poller.AddSystem("demo", js)
		metrics.poller.Start(c.Context)
	}

	// 4. Run
	var rep report
	started := time.Now()
	err = js.BootstrapMainTask(func(ctx context.Context, _ any) {
		rep = runWorkload(ctx, js, cfg.Workload)
	}, nil)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Job system failed: %v", err), 1)
	}
	elapsed := time.Since(started)

	// 5. Format output
	stats := js.Stats()
	fmt.Fprintf(c.App.Writer, "sum of 1..%d = %d (expected %d)\n", cfg.Workload.Items, rep.sum, rep.expected)
	fmt.Fprintf(c.App.Writer, "nested stage: %d leaves (expected %d)\n", rep.leaves, rep.expectedLeaves)
	fmt.Fprintf(c.App.Writer, "%d fibers, %d threads, %d jobs, %d fiber switches, %d slow waits in %v\n",
		stats.Fibers, stats.Threads, stats.JobsExecuted, stats.FiberSwitches, stats.SlowWaits, elapsed)

	if metrics != nil {
		if linger := c.Duration("linger"); linger > 0 {
			logger.Info("serving metrics", core.F("addr", cfg.Metrics.Addr), core.F("linger", linger.String()))
			select {
			case <-time.After(linger):
			case <-c.Context.Done():
			}
		}
	}

	if !rep.ok() {
		return cli.Exit("workload produced wrong results", 1)
	}
	return nil
}

type metricsServer struct {
	exporter *obs.MetricsExporter
	poller   *obs.SnapshotPoller
	server   *http.Server
}

func startMetricsServer(cfg config.Metrics, logger core.Logger) (*metricsServer, error) {
	reg := prom.NewRegistry()

	exporter, err := obs.NewMetricsExporter(cfg.Namespace, reg, obs.ExporterOptions{})
	if err != nil {
		return nil, err
	}
	poller, err := obs.NewSnapshotPoller(reg, cfg.PollInterval)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: cfg.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", core.F("error", err))
		}
	}()

	return &metricsServer{exporter: exporter, poller: poller, server: server}, nil
}

func (m *metricsServer) Close() {
	m.poller.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = m.server.Shutdown(ctx)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	v1 "github.com/kubev2v/engine-scheduler/api/v1"
	"github.com/kubev2v/engine-scheduler/internal/config"
	"github.com/kubev2v/engine-scheduler/internal/handlers"
	"github.com/kubev2v/engine-scheduler/internal/models"
	"github.com/kubev2v/engine-scheduler/internal/server"
	"github.com/kubev2v/engine-scheduler/internal/services"
	"github.com/kubev2v/engine-scheduler/internal/store"
	"github.com/kubev2v/engine-scheduler/internal/store/migrations"
	"github.com/kubev2v/engine-scheduler/internal/util"
	"github.com/kubev2v/engine-scheduler/pkg/metrics"
	"github.com/kubev2v/engine-scheduler/pkg/scheduler"
)

const mainQueueInterval = 100 * time.Millisecond

type demoOptions struct {
	spec models.WorkloadSpec
	exit bool
}

func newRunCmd(cfg *config.Configuration) *cobra.Command {
	var demo demoOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler and the HTTP API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, demo, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Server.ServerMode, "server-mode", cfg.Server.ServerMode, "Server mode (dev, prod)")
	flags.IntVar(&cfg.Server.HTTPPort, "http-port", cfg.Server.HTTPPort, "HTTP listen port")
	flags.BoolVar(&cfg.Server.Disabled, "disable-server", cfg.Server.Disabled, "Run without the HTTP API")
	flags.StringVar(&cfg.Scheduler.Name, "name", cfg.Scheduler.Name, "Scheduler name used in logs and metrics")
	flags.IntVar(&cfg.Scheduler.Workers, "workers", cfg.Scheduler.Workers, "Number of workers, 0 uses the hardware concurrency")
	flags.StringVar(&cfg.Scheduler.DrainPolicy, "drain-policy", cfg.Scheduler.DrainPolicy, "Queued tasks on stop (run, discard)")
	flags.IntVar(&cfg.Scheduler.HistoryBuffer, "history-buffer", cfg.Scheduler.HistoryBuffer, "Task records buffered before the history drops them")
	flags.StringVar(&cfg.Scheduler.MetricsNamespace, "metrics-namespace", cfg.Scheduler.MetricsNamespace, "Prometheus metric namespace")
	flags.StringVar(&cfg.DataFolder, "data-folder", cfg.DataFolder, "Folder of the history database, empty keeps it in memory")
	flags.BoolVar(&cfg.Auth.Enabled, "auth-enabled", cfg.Auth.Enabled, "Require HS256 bearer tokens on the API")
	flags.StringVar(&cfg.Auth.Secret, "auth-secret", cfg.Auth.Secret, "HMAC secret used to verify bearer tokens")
	flags.IntVar(&demo.spec.Tasks, "demo-tasks", 0, "Schedule this many frame jobs at startup")
	flags.IntVar(&demo.spec.Duration, "demo-duration-ms", 10, "Duration of each demo frame job in milliseconds")
	flags.Float64Var(&demo.spec.FailureRate, "demo-failure-rate", 0, "Probability that a demo frame attempt fails")
	flags.BoolVar(&demo.exit, "demo-exit", false, "Stop once every demo frame job has completed")

	return cmd
}

func run(ctx context.Context, cfg *config.Configuration, demo demoOptions, out io.Writer) error {
	log := zap.S().Named("engine")

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	log.Infow("configuration loaded", "config", cfg.DebugMap())

	if cfg.DataFolder != "" {
		if err := os.MkdirAll(cfg.DataFolder, 0o750); err != nil {
			return fmt.Errorf("failed to create data folder: %w", err)
		}
	}

	db, err := store.NewDB(cfg.HistoryDBPath())
	if err != nil {
		return err
	}
	if err := migrations.Run(ctx, db); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	st := store.NewStore(db)
	defer func() {
		if err := st.Close(); err != nil {
			log.Errorw("failed to close store", "error", err)
		}
	}()

	reg := prom.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	exporter, err := metrics.NewExporter(cfg.Scheduler.MetricsNamespace, cfg.Scheduler.Name, reg, metrics.ExporterOptions{})
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	policy, err := cfg.Scheduler.Policy()
	if err != nil {
		return err
	}

	history := services.NewHistoryService(st, cfg.Scheduler.HistoryBuffer)
	sched := scheduler.NewScheduler(cfg.Scheduler.Workers,
		scheduler.WithName(cfg.Scheduler.Name),
		scheduler.WithDrainPolicy(policy),
		scheduler.WithObserver(exporter),
		scheduler.WithObserver(history),
	)
	mainQueue := scheduler.NewMainQueue()
	workload := services.NewWorkloadService(sched, mainQueue)
	engine := services.NewEngineService(sched, history)

	var srv *server.Server
	if !cfg.Server.Disabled {
		h := handlers.New(engine, history, workload)
		srv, err = server.NewServer(cfg, reg, func(router *gin.RouterGroup) {
			v1.RegisterHandlers(router, h)
		})
		if err != nil {
			history.Close()
			return err
		}
	}

	if err := sched.Start(); err != nil {
		history.Close()
		return err
	}

	serverCtx, cancelServer := context.WithCancel(context.Background())
	serverErr := make(chan error, 1)
	if srv != nil {
		go func() {
			serverErr <- srv.Start(serverCtx)
			close(serverErr)
		}()
	}

	if demo.spec.Tasks > 0 {
		if _, err := workload.Start(demo.spec); err != nil {
			log.Errorw("failed to start demo workload", "error", err)
		}
	}

	runErr := pumpMainQueue(ctx, mainQueue, workload, demo, serverErr)

	// The API goes first so no workload is admitted while the pool drains.
	cancelServer()
	if srv != nil {
		if err := <-serverErr; runErr == nil {
			runErr = err
		}
	}

	log.Info("stopping scheduler")
	sched.Stop()
	workload.Close()
	mainQueue.ExecuteAll()
	history.Close()

	printSummary(out, engine.Status(), workload.Summary())
	return runErr
}

// pumpMainQueue drains the main queue on the calling goroutine until ctx is
// done, the server fails, or the demo workload completes.
func pumpMainQueue(ctx context.Context, q *scheduler.MainQueue, w *services.Workload, demo demoOptions, serverErr <-chan error) error {
	ticker := time.NewTicker(mainQueueInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-serverErr:
			if err == nil {
				err = errors.New("http server stopped unexpectedly")
			}
			return err
		case <-ticker.C:
			q.ExecuteAll()
			if demo.exit && demo.spec.Tasks > 0 {
				sum := w.Summary()
				if sum.Completed+sum.Failed >= sum.Submitted {
					return nil
				}
			}
		}
	}
}

func printSummary(out io.Writer, status models.EngineStatus, wl services.WorkloadSummary) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	s := status.Stats
	_, _ = bold.Fprintf(out, "scheduler %q %s (%d workers)\n", status.Name, s.State, s.Workers)
	_, _ = fmt.Fprintf(out, "  submitted  %d\n", s.Submitted)
	_, _ = green.Fprintf(out, "  executed   %d (%.2f%% succeeded)\n", s.Executed, util.Percent(s.Executed-s.Failed-s.Panicked, s.Executed))
	_, _ = red.Fprintf(out, "  failed     %d (panicked %d)\n", s.Failed, s.Panicked)
	_, _ = yellow.Fprintf(out, "  rejected   %d\n", s.Rejected)
	_, _ = yellow.Fprintf(out, "  discarded  %d\n", s.Discarded)
	if status.HistoryDropped > 0 {
		_, _ = yellow.Fprintf(out, "  history dropped %d records\n", status.HistoryDropped)
	}
	if wl.Submitted > 0 {
		_, _ = fmt.Fprintf(out, "  workload   %d/%d completed, %d failed\n", wl.Completed, wl.Submitted, wl.Failed)
	}
}

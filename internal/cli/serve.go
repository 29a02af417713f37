package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/corvid-review/corvid/internal/jobqueue"
	"github.com/corvid-review/corvid/internal/logging"
	"github.com/corvid-review/corvid/internal/webhook"
)

var serveWorkerCount int

// serveCmd implements "corvid serve": the long-running service process.
// It mounts the webhook ingress (internal/webhook), starts an in-process
// job-runtime worker pool (internal/jobqueue) draining the same broker the
// ingress publishes onto, and exposes a Prometheus /metrics endpoint on a
// second listener. This is the single-process deployment shape; `corvid
// worker` exists separately so operators can scale webhook ingestion and
// review execution independently.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook ingress and review worker pool",
	Long: `Run Corvid as a long-running service: listen for VCS webhooks, enqueue
review jobs, and drain them with an in-process worker pool running the full
review workflow. Listens on [server].addr for webhooks and [server]
.metrics_addr for Prometheus metrics. Shuts down gracefully on SIGINT/SIGTERM,
waiting up to [server].shutdown_timeout for in-flight reviews to finish.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&serveWorkerCount, "workers", 0, "Override the configured worker pool size (0 = use config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := logging.New("serve")

	resolved, _, err := loadAndResolveConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := resolved.Config
	if serveWorkerCount > 0 {
		cfg.Broker.WorkerCount = serveWorkerCount
	}

	if flagDryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "Would listen on %s (webhooks) and %s (metrics) with %d workers\n",
			cfg.Server.Addr, cfg.Server.MetricsAddr, cfg.Broker.WorkerCount)
		return nil
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	registry := prometheus.NewRegistry()
	svc, err := newService(ctx, cfg, logger, registry)
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer svc.close()

	router := webhook.NewRouter(webhook.Deps{
		Broker:          svc.broker,
		FeedbackSink:    svc.feedbackSink,
		DefaultPriority: 5,
		Registry:        registry,
		Logger:          logging.New("webhook"),
		Secrets: webhook.Secrets{
			GitHub:    cfg.Webhook.GitHubSecret,
			GitLab:    cfg.Webhook.GitLabSecret,
			Bitbucket: cfg.Webhook.BitbucketSecret,
		},
	})

	pool := jobqueue.NewWorkerPool(svc.broker, svc.runReviewJob, jobqueue.PoolConfig{
		WorkerCount: cfg.Broker.WorkerCount,
		MaxRetries:  cfg.Broker.MaxRetries,
		Logger:      logging.New("jobqueue"),
	})
	pool.Start(ctx)
	defer pool.Stop()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	metricsSrv := &http.Server{Addr: cfg.Server.MetricsAddr, Handler: metricsMux}

	webhookSrv := &http.Server{Addr: cfg.Server.Addr, Handler: router}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("webhook ingress listening", "addr", cfg.Server.Addr)
		if err := webhookSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("webhook listener: %w", err)
		}
	}()
	go func() {
		logger.Info("metrics endpoint listening", "addr", cfg.Server.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics listener: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received; draining in-flight work")
	case err := <-errCh:
		logger.Error("listener failed", "error", err)
		cancel()
	}

	shutdownTimeout, perr := time.ParseDuration(cfg.Server.ShutdownTimeout)
	if perr != nil || shutdownTimeout <= 0 {
		shutdownTimeout = 15 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	_ = webhookSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	pool.Stop()

	counters := pool.Counters()
	logger.Info("shutdown complete", "jobs_processed", counters.Processed, "jobs_failed", counters.Failed, "jobs_dlq", counters.DLQed)
	return nil
}

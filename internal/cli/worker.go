package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/corvid-review/corvid/internal/jobqueue"
	"github.com/corvid-review/corvid/internal/logging"
)

var workerCount int

// workerCmd implements "corvid worker": a standalone job-runtime process
// that only drains the review queue, with no webhook listener. Run this
// separately from `corvid serve` (which also runs an in-process pool) to
// scale review execution independently of webhook ingestion -- the two
// share the same Redis-backed broker (no in-memory
// coordination is required between them, only the broker). Against the
// in-memory broker (no CORVID_DATABASE_URL configured) this process has
// nothing to drain, since nothing else publishes into its own memory.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run a standalone review job-queue worker pool",
	Long: `Drain the review job queue with a bounded pool of workers, applying the
retry/dead-letter policy on failure. Run alongside or instead
of corvid serve's in-process pool to scale review execution independently of
webhook ingestion.`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

func init() {
	workerCmd.Flags().IntVar(&workerCount, "count", 0, "Override the configured worker pool size (0 = use config)")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	logger := logging.New("worker")

	resolved, _, err := loadAndResolveConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := resolved.Config
	if workerCount > 0 {
		cfg.Broker.WorkerCount = workerCount
	}

	if flagDryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "Would drain %s with %d workers (max_retries=%d)\n",
			cfg.Broker.Stream, cfg.Broker.WorkerCount, cfg.Broker.MaxRetries)
		return nil
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc, err := newService(ctx, cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer svc.close()

	pool := jobqueue.NewWorkerPool(svc.broker, svc.runReviewJob, jobqueue.PoolConfig{
		WorkerCount: cfg.Broker.WorkerCount,
		MaxRetries:  cfg.Broker.MaxRetries,
		Logger:      logging.New("jobqueue"),
	})
	pool.Start(ctx)

	logger.Info("worker pool started", "workers", cfg.Broker.WorkerCount, "stream", cfg.Broker.Stream)
	<-ctx.Done()
	logger.Info("shutdown signal received; draining in-flight jobs")
	pool.Stop()

	counters := pool.Counters()
	logger.Info("shutdown complete", "jobs_processed", counters.Processed, "jobs_failed", counters.Failed, "jobs_dlq", counters.DLQed)
	return nil
}

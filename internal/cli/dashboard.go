package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/corvid-review/corvid/internal/buildinfo"
	"github.com/corvid-review/corvid/internal/logging"
	"github.com/corvid-review/corvid/internal/tui"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Launch the review operations dashboard",
	Long: `Launch the interactive Corvid operations dashboard.

The dashboard has panels for in-flight review workflows, job-queue worker and
backlog status, budget spend, and recently completed reviews. This command
starts it in read-only preview mode with no live event feeds, with or without
a corvid.toml; a found config file only names the service in the title bar.`,
	Args: cobra.NoArgs,
	RunE: runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

// runDashboard is the RunE handler for the dashboard command. It resolves
// configuration for the title bar's service name and launches the TUI. The
// dashboard has no subprocess handle on a running `corvid serve`/`corvid
// worker` process, so it launches without live event channels (tui.AppConfig
// documents nil channels as an explicit read-only preview mode); operators
// wire it to live data by running the dashboard as part of the service
// process itself in a future iteration.
func runDashboard(cmd *cobra.Command, _ []string) error {
	if flagDryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "Would launch operations dashboard (dry-run mode)")
		return nil
	}

	logger := logging.New("dashboard")

	serviceName := "corvid"
	if resolved, _, err := loadAndResolveConfig(); err != nil {
		logger.Warn("loading config failed; launching in preview mode", "error", err)
	} else if resolved.Path != "" {
		serviceName = resolved.Path
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	info := buildinfo.GetInfo()
	cfg := tui.AppConfig{
		Version:     info.Version,
		ServiceName: serviceName,
		Ctx:         ctx,
		Cancel:      cancel,
	}

	logger.Info("launching operations dashboard", "version", info.Version, "service", serviceName)

	return tui.RunTUI(cfg)
}

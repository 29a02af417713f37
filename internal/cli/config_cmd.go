package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/corvid-review/corvid/internal/config"
)

// configCmd is the parent "config" namespace command. It has no action of its
// own -- it groups debug and validate subcommands.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  "Inspect, validate, and debug Corvid configuration.",
	// RunE shows help when invoked with no subcommand.
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// configDebugCmd implements "corvid config debug".
// It prints the fully-resolved configuration with source annotations.
var configDebugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Show resolved configuration with source annotations",
	Long: `Display the fully-resolved configuration showing each value and
the source where it came from (cli flag, environment variable, config file, or default).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resolved, _, err := loadAndResolveConfig()
		if err != nil {
			return err
		}
		printResolvedConfig(cmd, resolved)
		return nil
	},
}

// configValidateCmd implements "corvid config validate".
// It validates the resolved configuration and reports all errors and warnings.
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and report issues",
	Long:  "Check the configuration for errors and warnings.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resolved, meta, err := loadAndResolveConfig()
		if err != nil {
			return err
		}
		result := config.Validate(resolved.Config, meta)
		printValidationResult(cmd, result)
		if result.HasErrors() {
			return fmt.Errorf("configuration has %d error(s)", len(result.Errors()))
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configDebugCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

// loadAndResolveConfig loads and resolves the configuration from all sources
// (file, env, CLI flags). It returns the resolved config, the TOML metadata
// (nil when no file was found), and any loading error.
//
// When flagConfig is set, that path is used directly. Otherwise,
// config.FindConfigFile searches upward from the current directory.
func loadAndResolveConfig() (*config.ResolvedConfig, *toml.MetaData, error) {
	var (
		fileCfg *config.Config
		meta    *toml.MetaData
		cfgPath string
	)

	if flagConfig != "" {
		// Explicit --config path provided.
		cfgPath = flagConfig
		fc, md, err := config.LoadFromFile(cfgPath)
		if err != nil {
			return nil, nil, fmt.Errorf("loading config: %w", err)
		}
		fileCfg = fc
		meta = &md
	} else {
		// Auto-detect corvid.toml by walking up from cwd.
		found, err := config.FindConfigFile(".")
		if err != nil {
			return nil, nil, fmt.Errorf("finding config file: %w", err)
		}
		if found != "" {
			cfgPath = found
			fc, md, err := config.LoadFromFile(cfgPath)
			if err != nil {
				return nil, nil, fmt.Errorf("loading config: %w", err)
			}
			fileCfg = fc
			meta = &md
		}
	}

	overrides := &config.CLIOverrides{}
	if flagServerAddr != "" {
		overrides.ServerAddr = &flagServerAddr
	}
	resolved := config.Resolve(config.NewDefaults(), fileCfg, os.LookupEnv, overrides)
	resolved.Path = cfgPath

	return resolved, meta, nil
}

// ---- Lipgloss styles --------------------------------------------------------

// sourceStyle returns a lipgloss style for a given ConfigSource.
// When --no-color is active, lipgloss automatically strips ANSI because
// the root PersistentPreRunE sets the color profile to Ascii.
func sourceStyle(src config.ConfigSource) lipgloss.Style {
	switch src {
	case config.SourceFile:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("12")) // bright blue
	case config.SourceEnv:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // bright yellow
	case config.SourceCLI:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("9")) // bright red
	default: // SourceDefault
		return lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // bright green
	}
}

var (
	styleHeader    = lipgloss.NewStyle().Bold(true)
	styleSeparator = lipgloss.NewStyle()
	styleSection   = lipgloss.NewStyle().Bold(true)
	styleErrorLbl  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)  // red
	styleWarnLbl   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true) // yellow
	styleSuccess   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))            // green
)

// ---- printResolvedConfig ----------------------------------------------------

const fieldWidth = 24 // column width for field names

// printResolvedConfig writes the formatted resolved configuration to cmd's
// output writer (stdout by default).
func printResolvedConfig(cmd *cobra.Command, rc *config.ResolvedConfig) {
	out := cmd.OutOrStdout()

	header := styleHeader.Render("Configuration Debug")
	sep := styleSeparator.Render(strings.Repeat("=", len("Configuration Debug")))
	fmt.Fprintln(out, header)
	fmt.Fprintln(out, sep)
	fmt.Fprintln(out)

	if rc.Path != "" {
		fmt.Fprintf(out, "Config file: %s\n", rc.Path)
	} else {
		fmt.Fprintln(out, "Config file: none found")
	}
	fmt.Fprintln(out)

	c := rc.Config

	fmt.Fprintln(out, styleSection.Render("[server]"))
	printField(out, "addr", fmtStr(c.Server.Addr), rc.Sources["server.addr"])
	printField(out, "metrics_addr", fmtStr(c.Server.MetricsAddr), rc.Sources["server.metrics_addr"])
	printField(out, "shutdown_timeout", fmtStr(c.Server.ShutdownTimeout), rc.Sources["server.shutdown_timeout"])
	fmt.Fprintln(out)

	fmt.Fprintln(out, styleSection.Render("[webhook]"))
	printField(out, "enabled_providers", fmtSlice(c.Webhook.EnabledProviders), rc.Sources["webhook.enabled_providers"])
	printField(out, "github_secret", secretPresence(c.Webhook.GitHubSecret), config.SourceEnv)
	printField(out, "gitlab_secret", secretPresence(c.Webhook.GitLabSecret), config.SourceEnv)
	printField(out, "bitbucket_secret", secretPresence(c.Webhook.BitbucketSecret), config.SourceEnv)
	fmt.Fprintln(out)

	fmt.Fprintln(out, styleSection.Render("[broker]"))
	printField(out, "addr", fmtStr(c.Broker.Addr), rc.Sources["broker.addr"])
	printField(out, "stream", fmtStr(c.Broker.Stream), rc.Sources["broker.stream"])
	printField(out, "dlq_stream", fmtStr(c.Broker.DLQStream), rc.Sources["broker.dlq_stream"])
	printField(out, "consumer_group", fmtStr(c.Broker.ConsumerGroup), rc.Sources["broker.consumer_group"])
	printField(out, "worker_count", fmt.Sprintf("%d", c.Broker.WorkerCount), rc.Sources["broker.worker_count"])
	printField(out, "max_retries", fmt.Sprintf("%d", c.Broker.MaxRetries), rc.Sources["broker.max_retries"])
	fmt.Fprintln(out)

	fmt.Fprintln(out, styleSection.Render("[model]"))
	printField(out, "api_key", secretPresence(c.Model.APIKey), config.SourceEnv)
	fmt.Fprintln(out)

	fmt.Fprintln(out, styleSection.Render("[provider]"))
	printField(out, "token", secretPresence(c.Provider.Token), config.SourceEnv)
	printField(out, "base_url", fmtStr(c.Provider.BaseURL), rc.Sources["provider.base_url"])
	fmt.Fprintln(out)

	fmt.Fprintln(out, styleSection.Render("[budget]"))
	printField(out, "daily_usd", fmt.Sprintf("%.2f", c.Budget.DailyUSD), rc.Sources["budget.daily_usd"])
	printField(out, "per_pr_usd", fmt.Sprintf("%.2f", c.Budget.PerPRUSD), rc.Sources["budget.per_pr_usd"])
	printField(out, "monthly_usd", fmt.Sprintf("%.2f", c.Budget.MonthlyUSD), rc.Sources["budget.monthly_usd"])
	printField(out, "warning_threshold", fmt.Sprintf("%.2f", c.Budget.WarningThreshold), rc.Sources["budget.warning_threshold"])
	fmt.Fprintln(out)

	fmt.Fprintln(out, styleSection.Render("[review]"))
	printField(out, "max_suggestions", fmt.Sprintf("%d", c.Review.MaxSuggestions), rc.Sources["review.max_suggestions"])
	printField(out, "severity_threshold", fmtStr(c.Review.SeverityThreshold), rc.Sources["review.severity_threshold"])
	printField(out, "enable_analyzers", fmtSlice(c.Review.EnableAnalyzers), config.SourceDefault)
	printField(out, "max_files_per_review", fmt.Sprintf("%d", c.Review.MaxFilesPerReview), rc.Sources["review.max_files_per_review"])
	printField(out, "max_tokens_per_review", fmt.Sprintf("%d", c.Review.MaxTokensPerReview), rc.Sources["review.max_tokens_per_review"])
	printField(out, "min_priority_for_inclusion", fmtStr(c.Review.MinPriorityForInclusion), rc.Sources["review.min_priority_for_inclusion"])
	printField(out, "chunk_size", fmt.Sprintf("%d", c.Review.ChunkSize), rc.Sources["review.chunk_size"])
	printField(out, "exclude_globs", fmtSlice(c.Review.ExcludeGlobs), config.SourceDefault)
	fmt.Fprintln(out)
}

// secretPresence reports "<set>" or "<unset>" rather than ever printing a
// secret's actual value to the terminal.
func secretPresence(s string) string {
	if s == "" {
		return "<unset>"
	}
	return "<set>"
}

// printField writes a single key = value (source: ...) line.
func printField(out io.Writer, name, value string, src config.ConfigSource) {
	// Left-pad the field name to fieldWidth.
	padded := fmt.Sprintf("  %-*s", fieldWidth, name)
	srcLabel := sourceStyle(src).Render(fmt.Sprintf("(source: %s)", src))
	line := fmt.Sprintf("%s = %-40s %s\n", padded, value, srcLabel)
	fmt.Fprint(out, line)
}

// fmtStr formats a string value for display (quoted).
func fmtStr(s string) string {
	return fmt.Sprintf("%q", s)
}

// fmtSlice formats a string slice for display.
func fmtSlice(ss []string) string {
	if len(ss) == 0 {
		return "[]"
	}
	quoted := make([]string, len(ss))
	for i, s := range ss {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// ---- printValidationResult --------------------------------------------------

// printValidationResult writes the formatted validation report to cmd's
// output writer.
func printValidationResult(cmd *cobra.Command, result *config.ValidationResult) {
	out := cmd.OutOrStdout()

	header := styleHeader.Render("Configuration Validation")
	sep := styleSeparator.Render(strings.Repeat("=", len("Configuration Validation")))
	fmt.Fprintln(out, header)
	fmt.Fprintln(out, sep)
	fmt.Fprintln(out)

	errs := result.Errors()
	warns := result.Warnings()

	if len(errs) == 0 && len(warns) == 0 {
		fmt.Fprintln(out, styleSuccess.Render("No issues found."))
		return
	}

	if len(errs) > 0 {
		fmt.Fprintln(out, styleErrorLbl.Render("Errors:"))
		for _, issue := range errs {
			fmt.Fprintf(out, "  [%s] %s\n", issue.Field, issue.Message)
		}
		fmt.Fprintln(out)
	}

	if len(warns) > 0 {
		fmt.Fprintln(out, styleWarnLbl.Render("Warnings:"))
		for _, issue := range warns {
			fmt.Fprintf(out, "  [%s] %s\n", issue.Field, issue.Message)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintf(out, "%d error(s), %d warning(s)\n", len(errs), len(warns))
}

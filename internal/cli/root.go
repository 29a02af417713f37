package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/corvid-review/corvid/internal/logging"
)

// Global flag values accessible to all subcommands.
var (
	flagVerbose    bool
	flagQuiet      bool
	flagConfig     string
	flagDir        string
	flagDryRun     bool
	flagNoColor    bool
	flagServerAddr string
)

// rootCmd is the base command for Corvid.
var rootCmd = &cobra.Command{
	Use:   "corvid",
	Short: "Automated pull-request code review service",
	Long: `Corvid reviews pull requests automatically: it ingests webhook events from
GitHub, GitLab, and Bitbucket, fans a PR's diff out across security, style,
logic, and pattern analyzers, validates findings with an LLM judge, and
publishes the surviving suggestions back as review comments -- all under a
configurable cost budget.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	// RunE shows full help when invoked with no subcommand. Without RunE,
	// Cobra only prints the Long description (omitting Usage and Flags).
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Check env vars for flags not explicitly set on command line.
		if !cmd.Flags().Changed("verbose") && os.Getenv("CORVID_VERBOSE") != "" {
			flagVerbose = true
		}
		if !cmd.Flags().Changed("quiet") && os.Getenv("CORVID_QUIET") != "" {
			flagQuiet = true
		}
		if !cmd.Flags().Changed("no-color") && (os.Getenv("NO_COLOR") != "" || os.Getenv("CORVID_NO_COLOR") != "") {
			flagNoColor = true
		}

		// Initialize logging.
		jsonFormat := os.Getenv("CORVID_LOG_FORMAT") == "json"
		logging.Setup(flagVerbose, flagQuiet, jsonFormat)

		// Handle --no-color: disable colored output.
		if flagNoColor {
			lipgloss.SetColorProfile(termenv.Ascii)
		}

		// Handle --dir (change working directory).
		if flagDir != "" {
			if err := os.Chdir(flagDir); err != nil {
				return fmt.Errorf("changing directory to %s: %w", flagDir, err)
			}
		}

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose (debug) output (env: CORVID_VERBOSE)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress all output except errors (env: CORVID_QUIET)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to corvid.toml config file")
	rootCmd.PersistentFlags().StringVar(&flagDir, "dir", "", "Override working directory")
	rootCmd.PersistentFlags().BoolVar(&flagDryRun, "dry-run", false, "Show planned actions without executing")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output (env: CORVID_NO_COLOR, NO_COLOR)")
}

// Execute runs the root command and returns the exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// NewRootCmd returns a new instance of the root command for use in external
// tools such as the shell completion generator. It initialises a fresh cobra
// command tree so that it can be used independently of the global rootCmd.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           rootCmd.Use,
		Short:         rootCmd.Short,
		Long:          rootCmd.Long,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	// Attach all registered subcommands from the global tree.
	for _, child := range rootCmd.Commands() {
		cmd.AddCommand(child)
	}
	return cmd
}

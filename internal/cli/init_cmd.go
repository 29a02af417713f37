package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/corvid-review/corvid/internal/config"
	"github.com/corvid-review/corvid/internal/logging"
)

var (
	initFlagForce       bool
	initFlagInteractive bool
)

// initCmd implements "corvid init". It scaffolds a corvid.toml populated
// with Corvid's built-in defaults in the current directory, so a fresh
// deployment has a file to edit rather than starting from a blank page.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold a corvid.toml in the current directory",
	Long: `Write a corvid.toml populated with Corvid's built-in defaults to the
current directory. Secrets (webhook signing secrets, the model API key, the
provider token) are never written to the file -- they are always read from
the environment (CORVID_WEBHOOK_GITHUB_SECRET, CORVID_MODEL_API_KEY,
CORVID_PROVIDER_TOKEN, etc.).

Existing files are preserved unless --force is supplied.`,
	Args: cobra.NoArgs,

	// Own PersistentPreRunE, which replaces the root one for init. Replicates
	// the env-var checks, logging setup, color disable, and --dir handling
	// from the root PersistentPreRunE; neither loads corvid.toml.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Root().PersistentFlags().Changed("verbose") && os.Getenv("CORVID_VERBOSE") != "" {
			flagVerbose = true
		}
		if !cmd.Root().PersistentFlags().Changed("quiet") && os.Getenv("CORVID_QUIET") != "" {
			flagQuiet = true
		}
		if !cmd.Root().PersistentFlags().Changed("no-color") &&
			(os.Getenv("NO_COLOR") != "" || os.Getenv("CORVID_NO_COLOR") != "") {
			flagNoColor = true
		}

		jsonFormat := os.Getenv("CORVID_LOG_FORMAT") == "json"
		logging.Setup(flagVerbose, flagQuiet, jsonFormat)

		if flagNoColor {
			lipgloss.SetColorProfile(termenv.Ascii)
		}

		if flagDir != "" {
			if err := os.Chdir(flagDir); err != nil {
				return fmt.Errorf("changing directory to %s: %w", flagDir, err)
			}
		}

		return nil
	},

	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initFlagForce, "force", false, "Overwrite an existing corvid.toml")
	initCmd.Flags().BoolVarP(&initFlagInteractive, "interactive", "i", false, "Collect provider, broker, budget, and analyzer settings through a setup wizard")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	destDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	path := filepath.Join(destDir, config.ConfigFileName)
	if _, statErr := os.Stat(path); statErr == nil && !initFlagForce {
		return fmt.Errorf("%s already exists in %s; use --force to overwrite", config.ConfigFileName, destDir)
	}

	content := defaultConfigTOML
	if initFlagInteractive {
		answers, wErr := runInitWizard()
		if wErr != nil {
			return wErr
		}
		content = renderConfigTOML(answers)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", config.ConfigFileName, err)
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		return fmt.Errorf("writing %s: %w", config.ConfigFileName, err)
	}

	stderr := os.Stderr
	fmt.Fprintf(stderr, "Wrote %s\n\n", path)
	fmt.Fprintln(stderr, "Next steps:")
	fmt.Fprintf(stderr, "  1. Edit %s to configure server, broker, and review settings\n", config.ConfigFileName)
	fmt.Fprintln(stderr, "  2. Export CORVID_WEBHOOK_GITHUB_SECRET (and/or gitlab/bitbucket) for signature verification")
	fmt.Fprintln(stderr, "  3. Export CORVID_MODEL_API_KEY and CORVID_PROVIDER_TOKEN")
	fmt.Fprintln(stderr, "  4. Export CORVID_DATABASE_URL to persist checkpoints/budget/feedback in Postgres (omit to run in-memory, single-process)")
	fmt.Fprintln(stderr, "  5. Run: corvid config validate")
	fmt.Fprintln(stderr, "  6. Run: corvid serve")

	return nil
}

// defaultConfigTOML mirrors config.NewDefaults(), hand-written with comments
// rather than generated by the TOML encoder so the scaffolded file reads as
// documentation. Secrets are deliberately absent: they are environment-only.
const defaultConfigTOML = `# Corvid configuration. Secrets (webhook signing secrets, model API key,
# provider token, database URL) are never stored here -- set them as
# environment variables instead (see "corvid init" output).

[server]
addr = ":8080"
metrics_addr = ":9090"
shutdown_timeout = "15s"

[webhook]
enabled_providers = ["github"]

[broker]
addr = "localhost:6379"
stream = "corvid:reviews"
dlq_stream = "corvid:reviews:dlq"
consumer_group = "corvid-workers"
worker_count = 10
max_retries = 3

[provider]
base_url = ""

[budget]
daily_usd = 50.0
per_pr_usd = 5.0
monthly_usd = 1000.0
warning_threshold = 0.8

[review]
max_suggestions = 30
severity_threshold = "suggestion"
enable_analyzers = ["security", "style", "logic", "pattern"]
max_files_per_review = 50
max_tokens_per_review = 100000
min_priority_for_inclusion = "MEDIUM"
chunk_size = 5000
exclude_globs = []
`

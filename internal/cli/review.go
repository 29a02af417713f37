package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/corvid-review/corvid/internal/analyzer"
	"github.com/corvid-review/corvid/internal/budget"
	"github.com/corvid-review/corvid/internal/config"
	"github.com/corvid-review/corvid/internal/dedup"
	"github.com/corvid-review/corvid/internal/judge"
	"github.com/corvid-review/corvid/internal/logging"
	"github.com/corvid-review/corvid/internal/modelrouter"
	"github.com/corvid-review/corvid/internal/pr"
	"github.com/corvid-review/corvid/internal/provider"
	"github.com/corvid-review/corvid/internal/workflow"
)

var (
	reviewOwner   string
	reviewRepo    string
	reviewPR      int
	reviewPublish bool
)

// reviewCmd implements "corvid review --owner O --repo R --pr N": run the
// seven-stage review workflow once, synchronously, against a live PR,
// without going through the webhook/job-queue ingress. Intended for local
// testing of a single PR and for CI integration where a dedicated webhook
// deployment is unavailable.
var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Run a one-shot review against a single pull request",
	Long: `Fetch a pull request's diff directly from its provider, run it through
the full review pipeline (chunking, analyzer fan-out, deduplication,
severity filtering, LLM judge validation), and print the surviving
suggestions. Pass --publish to post them back as review comments instead of
just printing them.`,
	Args: cobra.NoArgs,
	RunE: runReview,
}

func init() {
	reviewCmd.Flags().StringVar(&reviewOwner, "owner", "", "Repository owner (required)")
	reviewCmd.Flags().StringVar(&reviewRepo, "repo", "", "Repository name (required)")
	reviewCmd.Flags().IntVar(&reviewPR, "pr", 0, "Pull request number (required)")
	reviewCmd.Flags().BoolVar(&reviewPublish, "publish", false, "Publish surviving suggestions as review comments instead of printing them")
	_ = reviewCmd.MarkFlagRequired("owner")
	_ = reviewCmd.MarkFlagRequired("repo")
	_ = reviewCmd.MarkFlagRequired("pr")
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, _ []string) error {
	logger := logging.New("review")

	resolved, _, err := loadAndResolveConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := resolved.Config

	if cfg.Provider.Token == "" {
		return fmt.Errorf("CORVID_PROVIDER_TOKEN is not set; required to fetch the PR diff")
	}

	gh := provider.NewGitHub(cfg.Provider.Token)

	event := pr.PREvent{
		Provider:     pr.GitHub,
		RepoOwner:    reviewOwner,
		RepoName:     reviewRepo,
		PRNumber:     reviewPR,
		Action:       pr.Synchronize,
		SourceBranch: "head",
		TargetBranch: "base",
	}
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid review target: %w", err)
	}

	analyzers := analyzer.NewRegistry()
	var augmenter analyzer.ModelAugmenter
	if cfg.Model.APIKey != "" {
		client := modelrouter.NewAnthropicClient(cfg.Model.APIKey)
		router := modelrouter.New(client)
		augmenter = analyzer.NewRouterAugmenter(router)
	}
	for _, a := range []analyzer.Analyzer{
		&analyzer.Security{Augmenter: augmenter},
		&analyzer.Style{Augmenter: augmenter},
		&analyzer.Logic{Augmenter: augmenter},
		&analyzer.Pattern{Augmenter: augmenter},
	} {
		if err := analyzers.Register(a); err != nil {
			return fmt.Errorf("registering analyzer %s: %w", a.Name(), err)
		}
	}

	var suggestionJudge workflow.SuggestionValidator
	if cfg.Model.APIKey != "" {
		client := modelrouter.NewAnthropicClient(cfg.Model.APIKey)
		suggestionJudge = judge.New(modelrouter.New(client))
	}

	enforcer := budget.NewEnforcer(budget.Config{
		DailyBudgetUSD:   cfg.Budget.DailyUSD,
		PerPRBudgetUSD:   cfg.Budget.PerPRUSD,
		MonthlyBudgetUSD: cfg.Budget.MonthlyUSD,
		WarningThreshold: cfg.Budget.WarningThreshold,
		RepoDailyBudgets: cfg.Budget.RepoDailyUSD,
	}, nil)
	ctx := cmd.Context()
	if !enforcer.CanReviewPR(ctx, event.Repo(), event.PRNumber, 0) {
		return fmt.Errorf("budget exceeded for %s; refusing to start review", event.Repo())
	}

	var comments workflow.CommentPoster
	if reviewPublish {
		comments = gh
	} else {
		comments = noopCommentPoster{}
	}

	handlers := workflow.NewHandlers(gh, comments, analyzers, dedup.NewDeduplicator(), suggestionJudge, 1)
	registry := workflow.NewRegistry()
	workflow.RegisterReviewHandlers(registry, handlers)

	engineOpts := []workflow.EngineOption{
		workflow.WithLogger(logging.New("workflow")),
		workflow.WithDryRun(flagDryRun),
	}
	if stateStore, ssErr := workflow.NewStateStore(filepath.Join(".corvid", "state")); ssErr == nil {
		engineOpts = append(engineOpts, workflow.WithCheckpointing(stateStore))
	} else {
		logger.Warn("state store unavailable; running without local checkpoints", "error", ssErr)
	}
	engine := workflow.NewEngine(registry, engineOpts...)
	def := workflow.ReviewWorkflowDefinition()

	reviewID := pr.ReviewID(event, time.Now())
	rs := workflow.NewReviewState(reviewID, event, reviewConfigFrom(cfg.Review))
	ws := workflow.NewWorkflowStateFor(rs)

	if flagDryRun {
		stepOutputs := make(map[string]string, len(def.Steps))
		for _, sd := range def.Steps {
			if h, hErr := registry.Get(sd.Name); hErr == nil {
				stepOutputs[sd.Name] = h.DryRun(ws)
			}
		}
		formatter := workflow.NewDryRunFormatter(cmd.OutOrStdout(), !flagNoColor)
		formatter.Write(formatter.FormatWorkflowDryRun(def, ws, stepOutputs))
	}

	final, err := engine.Run(ctx, def, ws)
	if err != nil {
		return fmt.Errorf("running review workflow: %w", err)
	}

	result := workflow.GetReviewState(final)
	if result.Error != "" {
		logger.Error("review ended with an error", "error", result.Error)
	}

	printReviewResult(cmd, result)
	return nil
}

func reviewConfigFrom(r config.ReviewConfig) pr.ReviewConfig {
	enabled := make(map[string]bool, len(r.EnableAnalyzers))
	for _, name := range r.EnableAnalyzers {
		enabled[name] = true
	}
	return pr.ReviewConfig{
		MaxSuggestions:          r.MaxSuggestions,
		SeverityThreshold:       r.SeverityThreshold,
		EnableAgents:            enabled,
		MaxFilesPerReview:       r.MaxFilesPerReview,
		MaxTokensPerReview:      r.MaxTokensPerReview,
		MinPriorityForInclusion: r.MinPriorityForInclusion,
		ExcludeGlobs:            r.ExcludeGlobs,
		ChunkSize:               r.ChunkSize,
	}
}

func printReviewResult(cmd *cobra.Command, rs *workflow.ReviewState) {
	out := cmd.OutOrStdout()
	if rs == nil {
		fmt.Fprintln(out, "no review state produced")
		return
	}

	fmt.Fprintf(out, "Review %s: %d suggestion(s) survived judging\n", rs.ReviewID, len(rs.ValidatedSuggestions))
	if rs.Diff != "" {
		elapsed := ""
		if !rs.CompletedAt.IsZero() {
			elapsed = fmt.Sprintf(" in %s", rs.CompletedAt.Sub(rs.CreatedAt).Round(time.Millisecond))
		}
		fmt.Fprintf(out, "Analyzed %s of diff across %d chunk(s)%s\n", humanize.Bytes(uint64(len(rs.Diff))), len(rs.Chunks), elapsed)
	}
	for _, s := range rs.ValidatedSuggestions {
		fmt.Fprintf(out, "  [%s] %s:%d %s\n", strings.ToUpper(string(s.Severity)), s.FilePath, s.LineNumber, s.Message)
	}
	if rs.Summary != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, rs.Summary)
	}
}

// noopCommentPoster is used when --publish is not set: the publish stage
// still runs (recording Passed/Summary on the ReviewState) but posts no
// comments to the provider.
type noopCommentPoster struct{}

func (noopCommentPoster) PostReviewComments(ctx context.Context, owner, repo string, prNumber int, comments []pr.ReviewComment) error {
	return nil
}

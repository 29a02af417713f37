// Package pr defines the canonical, provider-neutral pull-request data
// model that flows through the rest of Corvid: the PREvent the webhook
// ingress produces, the Job the job runtime queues, and the ReviewComment
// the publish stage projects back out.
package pr

import (
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Provider tags which VCS a PREvent originated from.
type Provider string

const (
	GitHub    Provider = "github"
	GitLab    Provider = "gitlab"
	Bitbucket Provider = "bitbucket"
)

func (p Provider) valid() bool {
	switch p {
	case GitHub, GitLab, Bitbucket:
		return true
	default:
		return false
	}
}

// Action is the webhook action that produced the event.
type Action string

const (
	Opened      Action = "opened"
	Synchronize Action = "synchronize"
	Reopened    Action = "reopened"
	Closed      Action = "closed"
	Merged      Action = "merged"
	Edited      Action = "edited"
)

// PREvent is the canonical, provider-neutral pull/merge-request event.
// Created by webhook ingress, immutable thereafter, referenced throughout
// the workflow.
type PREvent struct {
	Provider      Provider `json:"provider"`
	RepoOwner     string   `json:"repo_owner"`
	RepoName      string   `json:"repo_name"`
	PRNumber      int      `json:"pr_number"`
	Action        Action   `json:"action"`
	SourceBranch  string   `json:"source_branch"`
	TargetBranch  string   `json:"target_branch"`
	HeadSHA       string   `json:"head_sha"`
	Title         string   `json:"title"`
	Body          string   `json:"body,omitempty"`
	Author        string   `json:"author"`
	URL           string   `json:"url,omitempty"`
	RawPayload    []byte   `json:"-"`
}

// Repo formats the "owner/name" key used for budget overrides, message
// attributes, and idempotency-key derivation.
func (e PREvent) Repo() string {
	return fmt.Sprintf("%s/%s", e.RepoOwner, e.RepoName)
}

// ReviewID derives the stable review (thread) identifier for one end-to-end
// review: the provider/repo/PR tuple stays as a greppable prefix, and an
// xxhash over the tuple plus the receipt timestamp makes the id unique per
// run while keeping the checkpoint key short and fixed-width.
func ReviewID(e PREvent, at time.Time) string {
	h := xxhash.New()
	fmt.Fprintf(h, "%s/%s#%d@%d", e.Provider, e.Repo(), e.PRNumber, at.UTC().Unix())
	return fmt.Sprintf("%s-%s-%s-%d-%016x", e.Provider, e.RepoOwner, e.RepoName, e.PRNumber, h.Sum64())
}

// Validate checks the invariants a PREvent must satisfy before it is
// admitted into the pipeline.
func (e PREvent) Validate() error {
	if !e.Provider.valid() {
		return fmt.Errorf("pr: unknown provider %q", e.Provider)
	}
	if e.RepoOwner == "" || e.RepoName == "" {
		return fmt.Errorf("pr: repo owner/name must not be empty")
	}
	if e.PRNumber <= 0 {
		return fmt.Errorf("pr: pr_number must be positive, got %d", e.PRNumber)
	}
	return nil
}

// ReviewableAction reports whether action represents an action the review
// pipeline should act on. "closed"/"merged" without a new commit carry no
// diff to review; the webhook ingress responds 200/"ignored" for these.
func (e PREvent) ReviewableAction() bool {
	switch e.Action {
	case Opened, Synchronize, Reopened:
		return true
	default:
		return false
	}
}

// ChunkInfo is a span of one file's diff (ParseUnifiedDiff merges all of a
// file's hunks into one), the unit of analyzer input. Created by the chunk_analyzer stage; read-only downstream.
type ChunkInfo struct {
	FilePath  string `json:"file_path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Content   string `json:"content"`
	Language  string `json:"language"`
}

// ReviewComment is an externally publishable comment: the projection of a
// Suggestion onto the provider's comment model.
type ReviewComment struct {
	FilePath   string `json:"file_path"`
	LineNumber int    `json:"line_number"`
	Message    string `json:"message"`
	Severity   string `json:"severity"`
	Suggestion string `json:"suggestion,omitempty"`
}

// ReviewConfig is the effective configuration for one review.
type ReviewConfig struct {
	MaxSuggestions    int             `json:"max_suggestions"`
	SeverityThreshold string          `json:"severity_threshold"`
	EnableAgents      map[string]bool `json:"enable_agents"`
	CustomRules       map[string]any  `json:"custom_rules,omitempty"`

	// MaxFilesPerReview, MaxTokensPerReview, and MinPriorityForInclusion
	// bound chunk_analyzer's admission pass (internal/optimizer); ExcludeGlobs
	// forces matching paths to optimizer.PrioritySkip ahead of the regex
	// priority table.
	MaxFilesPerReview       int      `json:"max_files_per_review"`
	MaxTokensPerReview      int      `json:"max_tokens_per_review"`
	MinPriorityForInclusion string  `json:"min_priority_for_inclusion"`
	ExcludeGlobs            []string `json:"exclude_globs,omitempty"`

	// ChunkSize caps how many characters of hunk content parallel_agents
	// sees in one ChunkInfo; a hunk larger than this is split further by
	// internal/optimizer.ChunkLargeFile.
	ChunkSize int `json:"chunk_size"`
}

// DefaultReviewConfig installs the defaults ingest_pr applies when the
// loaded configuration leaves a field unset.
func DefaultReviewConfig() ReviewConfig {
	return ReviewConfig{
		MaxSuggestions:    30,
		SeverityThreshold: "suggestion",
		EnableAgents: map[string]bool{
			"security": true,
			"style":    true,
			"logic":    true,
			"pattern":  true,
		},
		MaxFilesPerReview:       50,
		MaxTokensPerReview:      100000,
		MinPriorityForInclusion: "MEDIUM",
		ChunkSize:               5000,
	}
}

// Job is a unit of work on the review queue.
type Job struct {
	ID              string    `json:"id"`
	Event           PREvent   `json:"pr_event"`
	Priority        int       `json:"priority"`
	ReceivedAt      time.Time `json:"received_at"`
	DeliveryAttempt int       `json:"delivery_attempt"`
}

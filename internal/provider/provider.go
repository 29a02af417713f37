// Package provider implements the VCS provider capability: fetching a
// pull request's diff and optional AGENTS.md instructions, and publishing
// review comments back to the originating VCS. The GitHub adapter is a
// narrow wrapper over *github.Client; workflow stages depend only on the
// one or two operations they actually call.
package provider

import (
	"context"

	"github.com/corvid-review/corvid/internal/pr"
)

// Adapter is the full VCS provider capability: the union of
// what ingest_pr (workflow.DiffFetcher) and publish (workflow.CommentPoster)
// each need from a VCS integration, so one concrete adapter instance
// satisfies both narrow interfaces the workflow stages declare without the
// workflow package importing this one.
type Adapter interface {
	FetchDiff(ctx context.Context, event pr.PREvent) (string, error)
	FetchAgentsMD(ctx context.Context, event pr.PREvent) (string, error)
	PostReviewComments(ctx context.Context, owner, repo string, prNumber int, comments []pr.ReviewComment) error
}

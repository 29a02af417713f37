package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/go-github/v68/github"

	"github.com/corvid-review/corvid/internal/corverr"
	"github.com/corvid-review/corvid/internal/pr"
)

// agentsMDPaths are tried in order; the first one found in the PR's head
// branch is used, matching the convention of AGENTS.md living at repo root
// or under .github/.
var agentsMDPaths = []string{"AGENTS.md", ".github/AGENTS.md"}

// GitHub is the reference Adapter implementation, wrapping *github.Client:
// one struct, one embedded client, constructed via
// github.NewClient(nil).WithAuthToken(token).
type GitHub struct {
	client *github.Client
}

// NewGitHub constructs a GitHub adapter authenticated with a personal
// access token or installation token. Returns nil if token is empty.
func NewGitHub(token string) *GitHub {
	if token == "" {
		return nil
	}
	return &GitHub{client: github.NewClient(nil).WithAuthToken(token)}
}

// NewGitHubWithClient wraps an already-constructed *github.Client, used by
// tests to inject a client pointed at an httptest server.
func NewGitHubWithClient(gh *github.Client) *GitHub {
	return &GitHub{client: gh}
}

// FetchDiff implements Adapter via the PR's raw diff media type.
func (g *GitHub) FetchDiff(ctx context.Context, event pr.PREvent) (string, error) {
	diff, _, err := g.client.PullRequests.GetRaw(ctx, event.RepoOwner, event.RepoName, event.PRNumber,
		github.RawOptions{Type: github.Diff})
	if err != nil {
		return "", corverr.New(corverr.ProviderFail, fmt.Errorf("fetching diff for %s#%d: %w", event.Repo(), event.PRNumber, err))
	}
	return diff, nil
}

// FetchAgentsMD implements Adapter. A missing file at every candidate path
// is not an error: it means the repo carries no AGENTS.md, not that the
// fetch failed.
func (g *GitHub) FetchAgentsMD(ctx context.Context, event pr.PREvent) (string, error) {
	for _, path := range agentsMDPaths {
		content, _, resp, err := g.client.Repositories.GetContents(ctx, event.RepoOwner, event.RepoName, path,
			&github.RepositoryContentGetOptions{Ref: event.HeadSHA})
		if err != nil {
			if resp != nil && resp.StatusCode == 404 {
				continue
			}
			return "", corverr.New(corverr.ProviderFail, fmt.Errorf("fetching %s for %s: %w", path, event.Repo(), err))
		}
		if content == nil {
			continue
		}
		text, err := content.GetContent()
		if err != nil {
			return "", corverr.New(corverr.ProviderFail, fmt.Errorf("decoding %s for %s: %w", path, event.Repo(), err))
		}
		return text, nil
	}
	return "", nil
}

// PostReviewComments implements Adapter by submitting a single GitHub pull
// request review carrying one draft comment per ReviewComment: one review
// call posts every inline comment atomically rather than N separate issue
// comments.
func (g *GitHub) PostReviewComments(ctx context.Context, owner, repo string, prNumber int, comments []pr.ReviewComment) error {
	if len(comments) == 0 {
		return nil
	}

	draftComments := make([]*github.DraftReviewComment, 0, len(comments))
	for _, c := range comments {
		body := c.Message
		if c.Suggestion != "" {
			body += "\n\n```suggestion\n" + c.Suggestion + "\n```"
		}
		line := c.LineNumber
		draftComments = append(draftComments, &github.DraftReviewComment{
			Path: github.Ptr(c.FilePath),
			Line: github.Ptr(line),
			Body: github.Ptr(body),
		})
	}

	_, _, err := g.client.PullRequests.CreateReview(ctx, owner, repo, prNumber, &github.PullRequestReviewRequest{
		Event:    github.Ptr("COMMENT"),
		Comments: draftComments,
	})
	if err != nil {
		return corverr.New(corverr.ProviderFail, fmt.Errorf("posting review to %s/%s#%d: %w", owner, repo, prNumber, err))
	}
	return nil
}

// IsNotFound reports whether err wraps a GitHub 404 response, useful for
// callers distinguishing "file missing" from a genuine transport failure.
func IsNotFound(err error) bool {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) {
		return ghErr.Response != nil && ghErr.Response.StatusCode == 404
	}
	return false
}

package webhook

import (
	"encoding/json"
	"fmt"

	"github.com/corvid-review/corvid/internal/pr"
)

// githubPullRequestPayload is the subset of GitHub's pull_request webhook
// event fields needed to build a PREvent.
type githubPullRequestPayload struct {
	Action      string `json:"action"`
	Number      int    `json:"number"`
	PullRequest struct {
		Number int    `json:"number"`
		Title  string `json:"title"`
		Body   string `json:"body"`
		HTMLURL string `json:"html_url"`
		Merged bool   `json:"merged"`
		Head   struct {
			Ref string `json:"ref"`
			SHA string `json:"sha"`
		} `json:"head"`
		Base struct {
			Ref string `json:"ref"`
		} `json:"base"`
		User struct {
			Login string `json:"login"`
		} `json:"user"`
	} `json:"pull_request"`
	Repository struct {
		Name  string `json:"name"`
		Owner struct {
			Login string `json:"login"`
		} `json:"owner"`
	} `json:"repository"`
}

var githubActions = map[string]pr.Action{
	"opened":      pr.Opened,
	"synchronize": pr.Synchronize,
	"reopened":    pr.Reopened,
	"closed":      pr.Closed,
	"edited":      pr.Edited,
}

// normalizeGitHub parses a GitHub pull_request webhook payload into a
// PREvent. Returns ok=false for payloads that are not a reviewable pull
// request event (wrong action, or not a pull_request event at all), which
// the caller maps to a 200 "ignored" response rather than an error.
func normalizeGitHub(body []byte) (pr.PREvent, bool, error) {
	var p githubPullRequestPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return pr.PREvent{}, false, fmt.Errorf("webhook: github: decoding payload: %w", err)
	}
	if p.PullRequest.Number == 0 && p.Number == 0 {
		return pr.PREvent{}, false, nil
	}

	action, ok := githubActions[p.Action]
	if !ok {
		return pr.PREvent{}, false, nil
	}
	if p.PullRequest.Merged && action == pr.Closed {
		action = pr.Merged
	}

	number := p.PullRequest.Number
	if number == 0 {
		number = p.Number
	}

	event := pr.PREvent{
		Provider:     pr.GitHub,
		RepoOwner:    p.Repository.Owner.Login,
		RepoName:     p.Repository.Name,
		PRNumber:     number,
		Action:       action,
		SourceBranch: p.PullRequest.Head.Ref,
		TargetBranch: p.PullRequest.Base.Ref,
		HeadSHA:      p.PullRequest.Head.SHA,
		Title:        p.PullRequest.Title,
		Body:         p.PullRequest.Body,
		Author:       p.PullRequest.User.Login,
		URL:          p.PullRequest.HTMLURL,
		RawPayload:   body,
	}
	return event, true, nil
}

// gitlabMergeRequestPayload is the subset of GitLab's merge_request webhook
// event fields needed to build a PREvent.
type gitlabMergeRequestPayload struct {
	ObjectKind string `json:"object_kind"`
	Project    struct {
		PathWithNamespace string `json:"path_with_namespace"`
	} `json:"project"`
	ObjectAttributes struct {
		IID          int    `json:"iid"`
		Action       string `json:"action"`
		SourceBranch string `json:"source_branch"`
		TargetBranch string `json:"target_branch"`
		Title        string `json:"title"`
		Description  string `json:"description"`
		URL          string `json:"url"`
		LastCommit   struct {
			ID string `json:"id"`
		} `json:"last_commit"`
	} `json:"object_attributes"`
	User struct {
		Username string `json:"username"`
	} `json:"user"`
}

var gitlabActions = map[string]pr.Action{
	"open":    pr.Opened,
	"update":  pr.Synchronize,
	"reopen":  pr.Reopened,
	"close":   pr.Closed,
	"merge":   pr.Merged,
	"approved": pr.Edited,
}

// normalizeGitLab parses a GitLab merge_request webhook payload into a
// PREvent.
func normalizeGitLab(body []byte) (pr.PREvent, bool, error) {
	var p gitlabMergeRequestPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return pr.PREvent{}, false, fmt.Errorf("webhook: gitlab: decoding payload: %w", err)
	}
	if p.ObjectKind != "merge_request" {
		return pr.PREvent{}, false, nil
	}

	action, ok := gitlabActions[p.ObjectAttributes.Action]
	if !ok {
		return pr.PREvent{}, false, nil
	}

	owner, name := splitRepoPath(p.Project.PathWithNamespace)

	event := pr.PREvent{
		Provider:     pr.GitLab,
		RepoOwner:    owner,
		RepoName:     name,
		PRNumber:     p.ObjectAttributes.IID,
		Action:       action,
		SourceBranch: p.ObjectAttributes.SourceBranch,
		TargetBranch: p.ObjectAttributes.TargetBranch,
		HeadSHA:      p.ObjectAttributes.LastCommit.ID,
		Title:        p.ObjectAttributes.Title,
		Body:         p.ObjectAttributes.Description,
		Author:       p.User.Username,
		URL:          p.ObjectAttributes.URL,
		RawPayload:   body,
	}
	return event, true, nil
}

// bitbucketPullRequestPayload is the subset of Bitbucket's pullrequest:*
// webhook event fields needed to build a PREvent. Bitbucket signals the
// event type via the X-Event-Key header rather than a body field.
type bitbucketPullRequestPayload struct {
	PullRequest struct {
		ID     int    `json:"id"`
		Title  string `json:"title"`
		Source struct {
			Branch struct {
				Name string `json:"name"`
			} `json:"branch"`
			Commit struct {
				Hash string `json:"hash"`
			} `json:"commit"`
		} `json:"source"`
		Destination struct {
			Branch struct {
				Name string `json:"name"`
			} `json:"branch"`
		} `json:"destination"`
		Author struct {
			Nickname string `json:"nickname"`
		} `json:"author"`
		Links struct {
			HTML struct {
				Href string `json:"href"`
			} `json:"html"`
		} `json:"links"`
	} `json:"pullrequest"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

var bitbucketEventActions = map[string]pr.Action{
	"pullrequest:created":   pr.Opened,
	"pullrequest:updated":   pr.Synchronize,
	"pullrequest:fulfilled": pr.Merged,
	"pullrequest:rejected":  pr.Closed,
}

// normalizeBitbucket parses a Bitbucket pullrequest:* webhook payload
// (identified by the X-Event-Key header) into a PREvent.
func normalizeBitbucket(eventKey string, body []byte) (pr.PREvent, bool, error) {
	action, ok := bitbucketEventActions[eventKey]
	if !ok {
		return pr.PREvent{}, false, nil
	}

	var p bitbucketPullRequestPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return pr.PREvent{}, false, fmt.Errorf("webhook: bitbucket: decoding payload: %w", err)
	}

	owner, name := splitRepoPath(p.Repository.FullName)

	event := pr.PREvent{
		Provider:     pr.Bitbucket,
		RepoOwner:    owner,
		RepoName:     name,
		PRNumber:     p.PullRequest.ID,
		Action:       action,
		SourceBranch: p.PullRequest.Source.Branch.Name,
		TargetBranch: p.PullRequest.Destination.Branch.Name,
		HeadSHA:      p.PullRequest.Source.Commit.Hash,
		Title:        p.PullRequest.Title,
		Author:       p.PullRequest.Author.Nickname,
		URL:          p.PullRequest.Links.HTML.Href,
		RawPayload:   body,
	}
	return event, true, nil
}

// splitRepoPath splits "owner/name" (and "owner/sub/name" GitLab group
// paths, where everything before the last slash is treated as the owner)
// into its two components.
func splitRepoPath(path string) (owner, name string) {
	idx := -1
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", path
	}
	return path[:idx], path[idx+1:]
}

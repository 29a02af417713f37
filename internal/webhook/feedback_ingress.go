package webhook

import (
	"encoding/json"
	"fmt"

	"github.com/corvid-review/corvid/internal/feedback"
	"github.com/corvid-review/corvid/internal/pr"
)

// feedbackPayload is the common shape across the three providers' reaction
// and review-comment webhooks: a reacted-to (or commented-on) location, the
// reacting user, and the repo/PR it belongs to. Provider-specific field
// names are folded into this one struct per provider in normalizeFeedback;
// richer provider-specific payloads (e.g. GitHub's distinct "issue_comment"
// vs "pull_request_review_comment" shapes) are out of scope for this
// collaborator surface; feedback intake is a thin adapter, not part of the
// review pipeline.
type feedbackPayload struct {
	Action  string `json:"action"`
	Comment struct {
		Path string `json:"path"`
		Line int    `json:"line"`
		Body string `json:"body"`
	} `json:"comment"`
	Reaction struct {
		Content string `json:"content"`
	} `json:"reaction"`
	Sender struct {
		Login string `json:"login"`
	} `json:"sender"`
	User struct {
		Username string `json:"username"`
	} `json:"user"`
	Repository struct {
		Name  string `json:"name"`
		Owner struct {
			Login string `json:"login"`
		} `json:"owner"`
		FullName string `json:"full_name"`
	} `json:"repository"`
	PullRequest struct {
		Number int `json:"number"`
	} `json:"pull_request"`
}

// normalizeFeedback parses a provider's feedback webhook payload (emoji
// reaction or review comment) into a feedback.Record. idSeed is used to
// derive a stable-enough record id when the payload carries none.
func normalizeFeedback(provider pr.Provider, idSeed string, body []byte, now int64) (feedback.Record, error) {
	var p feedbackPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return feedback.Record{}, fmt.Errorf("webhook: feedback: decoding payload: %w", err)
	}

	owner, name := p.Repository.Owner.Login, p.Repository.Name
	if owner == "" && p.Repository.FullName != "" {
		owner, name = splitRepoPath(p.Repository.FullName)
	}

	user := p.Sender.Login
	if user == "" {
		user = p.User.Username
	}

	if p.Reaction.Content != "" {
		return feedback.NormalizeReaction(idSeed, provider, owner, name, p.PullRequest.Number,
			p.Comment.Path, p.Comment.Line, user, []string{p.Reaction.Content}, now), nil
	}
	return feedback.NormalizeComment(idSeed, provider, owner, name, p.PullRequest.Number,
		p.Comment.Path, p.Comment.Line, user, p.Comment.Body, now), nil
}

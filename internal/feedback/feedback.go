// Package feedback implements the FeedbackSink capability: normalizing
// emoji-reaction, review-state, and comment events from a provider's
// "feedback" webhook stream into a canonical FeedbackRecord and persisting
// it. The feedback ingress mirrors the review ingress: the same signature
// and normalization discipline, but feeding a feedback sink rather than
// the review pipeline. Online retraining on this signal is out of scope.
package feedback

import (
	"context"

	"github.com/corvid-review/corvid/internal/pr"
)

// Type classifies the sentiment a reaction or comment carries.
type Type string

const (
	Positive Type = "positive"
	Negative Type = "negative"
	Neutral  Type = "neutral"
	Confused Type = "confused"
)

// emojiScore maps a reaction emoji to its sentiment score and type,
// modeled on original_source's emoji->score table: thumbs-up/hooray/heart
// read as positive, thumbs-down as negative, confused as its own confused
// type with a negative score, and laugh as neutral. Unknown emojis default to neutral/zero rather than being
// dropped, so every reaction is captured even if its sentiment is unclear.
var emojiScore = map[string]struct {
	Type  Type
	Score float64
}{
	"+1":       {Positive, 1.0},
	"thumbsup": {Positive, 1.0},
	"hooray":   {Positive, 0.9},
	"heart":    {Positive, 0.8},
	"laugh":    {Neutral, 0.2},
	"confused": {Confused, -0.6},
	"-1":       {Negative, -1.0},
	"thumbsdown": {Negative, -1.0},
}

// Record is the canonical, provider-neutral feedback event.
type Record struct {
	ID            string   `json:"id"`
	Provider      pr.Provider `json:"provider"`
	EventType     string   `json:"event_type"`
	RepoOwner     string   `json:"repo_owner"`
	RepoName      string   `json:"repo_name"`
	PRNumber      int      `json:"pr_number"`
	FilePath      string   `json:"file_path,omitempty"`
	LineNumber    int      `json:"line_number,omitempty"`
	User          string   `json:"user"`
	Emojis        []string `json:"emojis,omitempty"`
	PrimaryEmoji  string   `json:"primary_emoji,omitempty"`
	FeedbackType  Type     `json:"feedback_type"`
	Score         float64  `json:"score"`
	Confidence    float64  `json:"confidence"`
	IsActionable  bool     `json:"is_actionable"`
	Timestamp     int64    `json:"timestamp"`
}

// NormalizeReaction builds a Record from an emoji-reaction event: id, the
// originating repo/PR/file/line, the user who reacted, and the list of
// emoji names attached to the comment being reacted to. The first emoji in
// the list (the reaction that triggered the webhook) is treated as primary.
// Confidence scales with how many emojis agree on sentiment sign; a lone
// reaction gets confidence 0.6, unanimous agreement across two or more gets
// 1.0, and otherwise it is the share of emojis agreeing with the primary one.
func NormalizeReaction(id string, provider pr.Provider, owner, repo string, prNumber int, filePath string, line int, user string, emojis []string, ts int64) Record {
	rec := Record{
		ID:         id,
		Provider:   provider,
		EventType:  "reaction",
		RepoOwner:  owner,
		RepoName:   repo,
		PRNumber:   prNumber,
		FilePath:   filePath,
		LineNumber: line,
		User:       user,
		Emojis:     emojis,
		Timestamp:  ts,
	}
	if len(emojis) > 0 {
		rec.PrimaryEmoji = emojis[0]
	}

	if len(emojis) == 0 {
		rec.FeedbackType = Neutral
		rec.Confidence = 0
		return rec
	}

	var total float64
	var agree int
	primary, ok := emojiScore[rec.PrimaryEmoji]
	if !ok {
		primary.Type = Neutral
	}
	rec.FeedbackType = primary.Type
	for _, e := range emojis {
		s := emojiScore[e]
		total += s.Score
		if sign(s.Score) == sign(primary.Score) {
			agree++
		}
	}
	rec.Score = clamp(total/float64(len(emojis)), -1, 1)

	switch {
	case len(emojis) == 1:
		rec.Confidence = 0.6
	case agree == len(emojis):
		rec.Confidence = 1.0
	default:
		rec.Confidence = float64(agree) / float64(len(emojis))
	}
	rec.IsActionable = rec.FeedbackType == Negative || rec.FeedbackType == Confused
	return rec
}

// NormalizeComment builds a Record from a plain reply/comment feedback
// event (no emoji payload): sentiment defaults to neutral with moderate
// confidence since the text itself is not analyzed here (that is the
// excluded learning/analytics surface); the record
// still carries enough to be queried and joined against suggestions later.
func NormalizeComment(id string, provider pr.Provider, owner, repo string, prNumber int, filePath string, line int, user, body string, ts int64) Record {
	return Record{
		ID:           id,
		Provider:     provider,
		EventType:    "comment",
		RepoOwner:    owner,
		RepoName:     repo,
		PRNumber:     prNumber,
		FilePath:     filePath,
		LineNumber:   line,
		User:         user,
		FeedbackType: Neutral,
		Score:        0,
		Confidence:   0.3,
		IsActionable: false,
		Timestamp:    ts,
	}
}

func sign(f float64) int {
	switch {
	case f > 0:
		return 1
	case f < 0:
		return -1
	default:
		return 0
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Sink is the FeedbackSink capability: persist a normalized Record. The
// webhook ingress's feedback endpoints are its only caller; it is otherwise
// a pure collaborator surface, never read by the review pipeline.
type Sink interface {
	Record(ctx context.Context, rec Record) error
}

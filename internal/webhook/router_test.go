package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/corvid-review/corvid/internal/feedback"
	"github.com/corvid-review/corvid/internal/jobqueue"
)

func sign(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

const githubOpenedPayload = `{
	"action": "opened",
	"number": 42,
	"pull_request": {
		"number": 42,
		"title": "Add feature",
		"body": "Description",
		"html_url": "https://github.com/acme/widgets/pull/42",
		"head": {"ref": "feature", "sha": "abc123"},
		"base": {"ref": "main"},
		"user": {"login": "alice"}
	},
	"repository": {
		"name": "widgets",
		"owner": {"login": "acme"}
	}
}`

func TestReviewHandlerGitHubAcceptsSignedOpenedEvent(t *testing.T) {
	broker := jobqueue.NewMemoryBroker(3)
	deps := Deps{Broker: broker, Secrets: Secrets{GitHub: "sekrit"}}
	router := NewRouter(deps)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/github", bytes.NewBufferString(githubOpenedPayload))
	req.Header.Set("X-Hub-Signature-256", sign("sekrit", githubOpenedPayload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	stats, err := broker.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Depth != 1 {
		t.Fatalf("expected 1 pending job, got %d", stats.Depth)
	}
}

func TestReviewHandlerGitHubRejectsBadSignature(t *testing.T) {
	broker := jobqueue.NewMemoryBroker(3)
	deps := Deps{Broker: broker, Secrets: Secrets{GitHub: "sekrit"}}
	router := NewRouter(deps)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/github", bytes.NewBufferString(githubOpenedPayload))
	req.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestReviewHandlerIgnoresNonReviewableAction(t *testing.T) {
	broker := jobqueue.NewMemoryBroker(3)
	deps := Deps{Broker: broker}
	router := NewRouter(deps)

	body := `{"action":"labeled","number":1,"pull_request":{"number":1},"repository":{"name":"w","owner":{"login":"acme"}}}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/github", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for ignored action, got %d", rec.Code)
	}
	stats, _ := broker.Stats(context.Background())
	if stats.Depth != 0 {
		t.Fatalf("expected no job enqueued for ignored action, got %d pending", stats.Depth)
	}
}

func TestReviewHandlerGitLabNoSignatureConfiguredBypassesCheck(t *testing.T) {
	broker := jobqueue.NewMemoryBroker(3)
	deps := Deps{Broker: broker}
	router := NewRouter(deps)

	body := `{
		"object_kind": "merge_request",
		"project": {"path_with_namespace": "acme/widgets"},
		"object_attributes": {
			"iid": 7, "action": "open", "source_branch": "feat", "target_branch": "main",
			"title": "t", "last_commit": {"id": "deadbeef"}
		},
		"user": {"username": "bob"}
	}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/gitlab", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestReviewHandlerBitbucketUsesEventKeyHeader(t *testing.T) {
	broker := jobqueue.NewMemoryBroker(3)
	deps := Deps{Broker: broker}
	router := NewRouter(deps)

	body := `{
		"pullrequest": {
			"id": 3, "title": "t",
			"source": {"branch": {"name": "feat"}, "commit": {"hash": "abc"}},
			"destination": {"branch": {"name": "main"}},
			"author": {"nickname": "carol"},
			"links": {"html": {"href": "https://bitbucket.org/acme/widgets/pull-requests/3"}}
		},
		"repository": {"full_name": "acme/widgets"}
	}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/bitbucket", bytes.NewBufferString(body))
	req.Header.Set("X-Event-Key", "pullrequest:created")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestFeedbackHandlerRecordsReaction(t *testing.T) {
	sink := feedback.NewMemorySink()
	deps := Deps{Broker: jobqueue.NewMemoryBroker(3), FeedbackSink: sink}
	router := NewRouter(deps)

	body := `{
		"reaction": {"content": "+1"},
		"comment": {"path": "main.go", "line": 10},
		"sender": {"login": "alice"},
		"repository": {"name": "widgets", "owner": {"login": "acme"}},
		"pull_request": {"number": 42}
	}`
	req := httptest.NewRequest(http.MethodPost, "/feedback/github", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(sink.Records) != 1 {
		t.Fatalf("expected 1 recorded feedback event, got %d", len(sink.Records))
	}
	if sink.Records[0].FeedbackType != feedback.Positive {
		t.Fatalf("expected positive feedback, got %s", sink.Records[0].FeedbackType)
	}
}

func TestFeedbackHandlerRejectsBadSignature(t *testing.T) {
	deps := Deps{Broker: jobqueue.NewMemoryBroker(3), Secrets: Secrets{GitHub: "sekrit"}}
	router := NewRouter(deps)

	body := `{"reaction":{"content":"+1"}}`
	req := httptest.NewRequest(http.MethodPost, "/feedback/github", bytes.NewBufferString(body))
	req.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

package webhook

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/corvid-review/corvid/internal/feedback"
	"github.com/corvid-review/corvid/internal/jobqueue"
	"github.com/corvid-review/corvid/internal/pr"
)

// Secrets holds the per-provider webhook signing secrets. An empty field is
// an explicit opt-out of signature verification for that provider.
type Secrets struct {
	GitHub    string
	GitLab    string
	Bitbucket string
}

func (s Secrets) forProvider(p pr.Provider) string {
	switch p {
	case pr.GitHub:
		return s.GitHub
	case pr.GitLab:
		return s.GitLab
	case pr.Bitbucket:
		return s.Bitbucket
	default:
		return ""
	}
}

// Deps bundles the webhook ingress's collaborators: the queue it publishes
// review jobs onto, the sink it records feedback events into, per-provider
// secrets, the default job priority, and an optional metrics registry.
type Deps struct {
	Broker       jobqueue.MessageBroker
	FeedbackSink feedback.Sink
	Secrets      Secrets
	DefaultPriority int
	Registry     *prometheus.Registry
	Logger       *log.Logger
}

// NewRouter builds the chi.Mux mounting /webhooks/{github,gitlab,bitbucket}
// and /feedback/{github,gitlab,bitbucket}.
func NewRouter(deps Deps) *chi.Mux {
	if deps.DefaultPriority <= 0 {
		deps.DefaultPriority = 5
	}

	var registerer prometheus.Registerer
	if deps.Registry != nil {
		registerer = deps.Registry
	}
	var metricsReg *prometheus.Registerer
	if registerer != nil {
		metricsReg = &registerer
	}
	metrics := newHTTPMetrics(metricsReg)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/webhooks/github", metrics.instrument("webhooks.github", deps.reviewHandler(pr.GitHub)))
	r.Post("/webhooks/gitlab", metrics.instrument("webhooks.gitlab", deps.reviewHandler(pr.GitLab)))
	r.Post("/webhooks/bitbucket", metrics.instrument("webhooks.bitbucket", deps.reviewHandler(pr.Bitbucket)))

	r.Post("/feedback/github", metrics.instrument("feedback.github", deps.feedbackHandler(pr.GitHub)))
	r.Post("/feedback/gitlab", metrics.instrument("feedback.gitlab", deps.feedbackHandler(pr.GitLab)))
	r.Post("/feedback/bitbucket", metrics.instrument("feedback.bitbucket", deps.feedbackHandler(pr.Bitbucket)))

	return r
}

// sigHeader names the signature header each provider sends.
func sigHeader(p pr.Provider) string {
	switch p {
	case pr.GitHub:
		return "X-Hub-Signature-256"
	case pr.GitLab:
		return "X-Gitlab-Token"
	case pr.Bitbucket:
		return "X-Hub-Signature"
	default:
		return ""
	}
}

// reviewHandler returns the HTTP handler for provider's /webhooks endpoint:
// verify signature, parse+normalize to a PREvent, enqueue a review Job.
// Response codes: 202 accepted, 200/"ignored" for
// non-reviewable payloads, 401 on signature failure, 500 on internal error.
func (d Deps) reviewHandler(provider pr.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			d.log("error", "reading webhook body", "provider", provider, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		secret := d.Secrets.forProvider(provider)
		if err := verifySignature(provider, secret, req.Header.Get(sigHeader(provider)), string(body)); err != nil {
			d.log("warn", "webhook signature rejected", "provider", provider, "error", err)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var (
			event pr.PREvent
			ok    bool
		)
		switch provider {
		case pr.GitHub:
			event, ok, err = normalizeGitHub(body)
		case pr.GitLab:
			event, ok, err = normalizeGitLab(body)
		case pr.Bitbucket:
			event, ok, err = normalizeBitbucket(req.Header.Get("X-Event-Key"), body)
		default:
			http.Error(w, "unknown provider", http.StatusInternalServerError)
			return
		}
		if err != nil {
			d.log("error", "normalizing webhook payload", "provider", provider, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if !ok || !event.ReviewableAction() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ignored"))
			return
		}
		if err := event.Validate(); err != nil {
			d.log("warn", "invalid normalized event", "provider", provider, "error", err)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ignored"))
			return
		}

		job := pr.Job{
			Event:      event,
			Priority:   d.DefaultPriority,
			ReceivedAt: time.Now(),
		}
		ctx, cancel := context.WithTimeout(req.Context(), 10*time.Second)
		defer cancel()
		if _, err := d.Broker.Publish(ctx, job); err != nil {
			d.log("error", "publishing review job", "provider", provider, "repo", event.Repo(), "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("accepted"))
	}
}

// feedbackHandler returns the HTTP handler for provider's /feedback
// endpoint: verify signature (same discipline as the review ingress),
// normalize, and record into the FeedbackSink.
func (d Deps) feedbackHandler(provider pr.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		secret := d.Secrets.forProvider(provider)
		if err := verifySignature(provider, secret, req.Header.Get(sigHeader(provider)), string(body)); err != nil {
			d.log("warn", "feedback signature rejected", "provider", provider, "error", err)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		idSeed := req.Header.Get("X-GitHub-Delivery")
		if idSeed == "" {
			idSeed = req.Header.Get("X-Gitlab-Event-UUID")
		}
		if idSeed == "" {
			idSeed = req.Header.Get("X-Request-UUID")
		}

		rec, err := normalizeFeedback(provider, idSeed, body, time.Now().Unix())
		if err != nil {
			d.log("error", "normalizing feedback payload", "provider", provider, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		if d.FeedbackSink != nil {
			if err := d.FeedbackSink.Record(req.Context(), rec); err != nil {
				d.log("error", "recording feedback", "provider", provider, "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
		}

		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("accepted"))
	}
}

func (d Deps) log(level, msg string, kvs ...any) {
	if d.Logger == nil {
		return
	}
	switch level {
	case "error":
		d.Logger.Error(msg, kvs...)
	case "warn":
		d.Logger.Warn(msg, kvs...)
	default:
		d.Logger.Info(msg, kvs...)
	}
}

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/corvid-review/corvid/internal/analyzer"
	"github.com/corvid-review/corvid/internal/budget"
	"github.com/corvid-review/corvid/internal/checkpoint"
	"github.com/corvid-review/corvid/internal/config"
	"github.com/corvid-review/corvid/internal/dedup"
	"github.com/corvid-review/corvid/internal/feedback"
	"github.com/corvid-review/corvid/internal/jobqueue"
	"github.com/corvid-review/corvid/internal/judge"
	"github.com/corvid-review/corvid/internal/modelrouter"
	"github.com/corvid-review/corvid/internal/pr"
	"github.com/corvid-review/corvid/internal/provider"
	"github.com/corvid-review/corvid/internal/workflow"
)

// service bundles every collaborator the `serve` and `worker` commands share:
// a MessageBroker, a CheckpointStore-backed Checkpointer, a FeedbackSink, a
// BudgetEnforcer, and a fully wired workflow.Engine. Both commands build one
// via newService: serve drives both of the broker's sides (HTTP ingress
// publishing and worker pool consuming), worker drives only the consuming one.
type service struct {
	cfg          *config.Config
	logger       *log.Logger
	broker       jobqueue.MessageBroker
	feedbackSink feedback.Sink
	checkpoints  checkpoint.Store
	enforcer     *budget.Enforcer
	provider     *provider.GitHub
	engine       *workflow.Engine
	registry     *workflow.Registry
	registerer   prometheus.Registerer

	pgPool      *pgxpool.Pool
	redisClient *redis.Client
}

// close releases any pooled connections the service opened. Safe to call on
// a zero-value service or one that never connected to Postgres/Redis.
func (s *service) close() {
	if s.redisClient != nil {
		_ = s.redisClient.Close()
	}
	if s.pgPool != nil {
		s.pgPool.Close()
	}
}

// newService wires every collaborator: a Redis Streams MessageBroker and a
// Postgres pool backing
// CheckpointStore/CostLedger/FeedbackSink when cfg.Database.URL is set, or
// their in-memory counterparts otherwise (the posture `corvid review` and
// local development use). The Postgres and Redis connections, when opened,
// are returned inside *service so the caller can close them on shutdown.
func newService(ctx context.Context, cfg *config.Config, logger *log.Logger, reg prometheus.Registerer) (*service, error) {
	svc := &service{cfg: cfg, logger: logger, registerer: reg}

	var (
		checkpointStore checkpoint.Store
		ledger          budget.Ledger
	)

	if cfg.Database.URL != "" {
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		svc.pgPool = pool

		pgCheckpoints := checkpoint.NewPostgresStore(pool)
		if err := pgCheckpoints.EnsureSchema(ctx); err != nil {
			svc.close()
			return nil, fmt.Errorf("ensuring checkpoint schema: %w", err)
		}
		checkpointStore = pgCheckpoints

		pgLedger := budget.NewPostgresLedger(pool)
		if err := pgLedger.EnsureSchema(ctx); err != nil {
			svc.close()
			return nil, fmt.Errorf("ensuring budget schema: %w", err)
		}
		ledger = pgLedger

		pgFeedback := feedback.NewPostgresSink(pool)
		if err := pgFeedback.EnsureSchema(ctx); err != nil {
			svc.close()
			return nil, fmt.Errorf("ensuring feedback schema: %w", err)
		}
		svc.feedbackSink = pgFeedback
	} else {
		checkpointStore = checkpoint.NewMemoryStore()
		svc.feedbackSink = feedback.NewMemorySink()
		logger.Warn("no database configured (CORVID_DATABASE_URL unset); checkpoints, cost ledger, and feedback are in-memory and do not survive a restart")
	}

	if cfg.Broker.Addr != "" && cfg.Database.URL != "" {
		rc := redis.NewClient(&redis.Options{Addr: cfg.Broker.Addr})
		if err := rc.Ping(ctx).Err(); err != nil {
			svc.close()
			return nil, fmt.Errorf("connecting to broker at %s: %w", cfg.Broker.Addr, err)
		}
		svc.redisClient = rc

		broker, err := jobqueue.NewRedisBroker(ctx, rc, jobqueue.RedisBrokerConfig{
			Stream:        cfg.Broker.Stream,
			DLQStream:     cfg.Broker.DLQStream,
			ConsumerGroup: cfg.Broker.ConsumerGroup,
			MaxRetries:    cfg.Broker.MaxRetries,
			BlockFor:      5 * time.Second,
		})
		if err != nil {
			svc.close()
			return nil, fmt.Errorf("initializing message broker: %w", err)
		}
		svc.broker = broker
	} else {
		svc.broker = jobqueue.NewMemoryBroker(cfg.Broker.MaxRetries)
		logger.Warn("no database configured; using the in-memory broker (single process, not durable across restarts)")
	}

	svc.enforcer = budget.NewEnforcer(budget.Config{
		DailyBudgetUSD:   cfg.Budget.DailyUSD,
		PerPRBudgetUSD:   cfg.Budget.PerPRUSD,
		MonthlyBudgetUSD: cfg.Budget.MonthlyUSD,
		WarningThreshold: cfg.Budget.WarningThreshold,
		RepoDailyBudgets: cfg.Budget.RepoDailyUSD,
	}, ledger)

	if cfg.Provider.Token != "" {
		svc.provider = provider.NewGitHub(cfg.Provider.Token)
	}

	analyzers := analyzer.NewRegistry()
	var augmenter analyzer.ModelAugmenter
	var suggestionJudge workflow.SuggestionValidator
	if cfg.Model.APIKey != "" {
		client := modelrouter.NewAnthropicClient(cfg.Model.APIKey)
		router := modelrouter.New(client)
		augmenter = analyzer.NewRouterAugmenter(router)
		suggestionJudge = judge.New(router)
	}
	for _, a := range []analyzer.Analyzer{
		&analyzer.Security{Augmenter: augmenter},
		&analyzer.Style{Augmenter: augmenter},
		&analyzer.Logic{Augmenter: augmenter},
		&analyzer.Pattern{Augmenter: augmenter},
		&analyzer.Complexity{},
	} {
		if err := analyzers.Register(a); err != nil {
			svc.close()
			return nil, fmt.Errorf("registering analyzer %s: %w", a.Name(), err)
		}
	}

	var diffs workflow.DiffFetcher
	var comments workflow.CommentPoster
	if svc.provider != nil {
		diffs = svc.provider
		comments = svc.provider
	}

	// Concurrency here is the analyzer fan-out width within one chunk
	// (the parallel_agents stage), independent of the broker's worker
	// pool size; four matches the number of built-in analyzers so none of
	// them waits on another within a chunk.
	handlers := workflow.NewHandlers(diffs, comments, analyzers, dedup.NewDeduplicator(), suggestionJudge, 4)
	svc.registry = workflow.NewRegistry()
	workflow.RegisterReviewHandlers(svc.registry, handlers)

	svc.checkpoints = checkpointStore
	cp := checkpoint.NewCheckpointer(checkpointStore, ctx)
	svc.engine = workflow.NewEngine(svc.registry,
		workflow.WithLogger(logger),
		workflow.WithCheckpointing(cp),
	)

	return svc, nil
}

// runReviewJob drives one Job through the full review workflow: budget
// check, then the checkpointed ingest->chunk->fan-out->aggregate->filter->
// judge->publish state machine. A budget denial is not an error (the
// review terminates gracefully and publishes no comments); every other
// failure returns an error so the job runtime's retry/DLQ policy applies.
func (s *service) runReviewJob(ctx context.Context, job pr.Job) error {
	event := job.Event
	if !s.enforcer.CanReviewPR(ctx, event.Repo(), event.PRNumber, 0) {
		s.logger.Warn("budget exceeded; skipping review", "repo", event.Repo(), "pr", event.PRNumber)
		return nil
	}

	// Restart semantics: a redelivered job keeps its ReceivedAt, so its
	// review id is stable across attempts; an existing checkpoint means an
	// earlier attempt made progress, and the engine resumes at its recorded
	// step instead of starting over at ingest_pr.
	reviewID := pr.ReviewID(event, job.ReceivedAt)
	var ws *workflow.WorkflowState
	if s.checkpoints != nil {
		if saved, err := s.checkpoints.Load(ctx, reviewID); err == nil && workflow.GetReviewState(saved) != nil {
			if saved.CurrentStep == workflow.StepDone {
				s.logger.Info("review already completed; acking redelivery", "review", reviewID)
				return nil
			}
			s.logger.Info("resuming review from checkpoint", "review", reviewID, "step", saved.CurrentStep)
			ws = saved
		}
	}
	if ws == nil {
		rs := workflow.NewReviewState(reviewID, event, reviewConfigFrom(s.cfg.Review))
		ws = workflow.NewWorkflowStateFor(rs)
	}

	final, err := s.engine.Run(ctx, workflow.ReviewWorkflowDefinition(), ws)
	if err != nil {
		return fmt.Errorf("running review workflow for %s#%d: %w", event.Repo(), event.PRNumber, err)
	}

	result := workflow.GetReviewState(final)
	if result != nil && result.Error != "" {
		return fmt.Errorf("review %s ended with an error: %s", reviewID, result.Error)
	}
	return nil
}

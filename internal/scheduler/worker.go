package scheduler

import (
	"context"
	"fmt"
	"time"

	"atendimento_backend/internal/config"
	"atendimento_backend/internal/notification/outbox"
	"atendimento_backend/internal/notification/webhook"
	"atendimento_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Worker struct {
	server      *asynq.Server
	mux         *asynq.ServeMux
	repo        *outbox.Repository
	deliverer   *webhook.Deliverer
	maxAttempts int
	log         *logger.Logger
}

func NewWorker(cfg *config.Config, pool *pgxpool.Pool, deliverer *webhook.Deliverer, log *logger.Logger) (*Worker, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(cfg.RedisURL)
	if err != nil {
		return nil, err
	}

	queue := cfg.AsynqQueueName
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.AsynqConcurrency
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:      server,
		mux:         mux,
		repo:        outbox.New(pool),
		deliverer:   deliverer,
		maxAttempts: cfg.WebhookMaxAttempts,
		log:         log,
	}

	mux.HandleFunc(TaskWebhookDeliver, w.handleWebhookDeliver)

	return w, nil
}

// handleWebhookDeliver attempts one delivery. Failures reschedule the row with
// exponential backoff until the attempt budget runs out; duplicates are
// possible and subscribers are expected to deduplicate (at-least-once).
func (w *Worker) handleWebhookDeliver(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseWebhookDeliverPayload(task)
	if err != nil {
		return err
	}

	outboxID, err := uuid.Parse(payload.OutboxID)
	if err != nil {
		return err
	}

	if err := w.repo.MarkProcessing(ctx, outboxID); err != nil {
		return err
	}

	rec, err := w.repo.GetByID(ctx, outboxID)
	if err != nil {
		return err
	}

	if !w.deliverer.Enabled() {
		return w.repo.MarkSucceeded(ctx, outboxID)
	}

	if err := w.deliverer.Deliver(ctx, rec); err != nil {
		if rec.Attempts >= w.maxAttempts {
			w.log.Error("webhook delivery exhausted", "outboxId", outboxID, "attempts", rec.Attempts, "error", err)
			return w.repo.MarkFailed(ctx, outboxID, err.Error())
		}
		msg := err.Error()
		runAt := time.Now().Add(backoff(rec.Attempts))
		return w.repo.MarkPending(ctx, outboxID, runAt, &msg)
	}

	return w.repo.MarkSucceeded(ctx, outboxID)
}

// backoff doubles per attempt starting at 30 seconds, capped at 15 minutes.
func backoff(attempts int) time.Duration {
	d := 30 * time.Second
	for i := 1; i < attempts && d < 15*time.Minute; i++ {
		d *= 2
	}
	if d > 15*time.Minute {
		d = 15 * time.Minute
	}
	return d
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

package scheduler

import (
	"context"
	"fmt"
	"time"

	"atendimento_backend/internal/config"
	"atendimento_backend/internal/notification/outbox"
	"atendimento_backend/platform/logger"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WebhookOutboxDispatcher periodically claims due outbox rows and hands each
// one to the worker as an asynq task. Claimed rows are flipped to enqueued so
// a second dispatcher instance skips them.
type WebhookOutboxDispatcher struct {
	client *asynq.Client
	queue  string
	batch  int
	repo   *outbox.Repository
	log    *logger.Logger
}

func NewWebhookOutboxDispatcher(cfg *config.Config, pool *pgxpool.Pool, log *logger.Logger) (*WebhookOutboxDispatcher, error) {
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

	return &WebhookOutboxDispatcher{
		client: asynq.NewClient(opt),
		queue:  queue,
		batch:  cfg.WebhookDispatchBatch,
		repo:   outbox.New(pool),
		log:    log,
	}, nil
}

func (d *WebhookOutboxDispatcher) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

func (d *WebhookOutboxDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil || d.repo == nil {
		return
	}

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		records, err := d.repo.ClaimPending(ctx, d.batch)
		if err != nil {
			d.log.Warn("outbox claim failed", "error", err)
			continue
		}

		for _, rec := range records {
			task, err := NewWebhookDeliverTask(WebhookDeliverPayload{OutboxID: rec.ID.String()})
			if err != nil {
				msg := err.Error()
				_ = d.repo.MarkPending(ctx, rec.ID, rec.RunAt, &msg)
				continue
			}

			if _, err := d.client.EnqueueContext(ctx, task, asynq.ProcessAt(rec.RunAt), asynq.Queue(d.queue)); err != nil {
				msg := err.Error()
				_ = d.repo.MarkPending(ctx, rec.ID, rec.RunAt, &msg)
			}
		}
	}
}

package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/N8Nexus-ai/product/internal/outbox"
	"github.com/N8Nexus-ai/product/platform/config"
	"github.com/N8Nexus-ai/product/platform/logger"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OutboxDispatcher polls the enrichment outbox and enqueues a pipeline task
// per claimed row. Claiming uses FOR UPDATE SKIP LOCKED, so running more than
// one dispatcher is safe.
type OutboxDispatcher struct {
	client   *asynq.Client
	queue    string
	interval time.Duration
	batch    int
	repo     *outbox.Repository
	log      *logger.Logger
}

func NewOutboxDispatcher(cfg config.SchedulerConfig, pool *pgxpool.Pool, log *logger.Logger) (*OutboxDispatcher, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	interval := cfg.GetOutboxPollInterval()
	if interval <= 0 {
		interval = 2 * time.Second
	}

	batch := cfg.GetOutboxBatchSize()
	if batch < 1 {
		batch = 50
	}

	return &OutboxDispatcher{
		client:   asynq.NewClient(opt),
		queue:    queue,
		interval: interval,
		batch:    batch,
		repo:     outbox.New(pool),
		log:      log,
	}, nil
}

func (d *OutboxDispatcher) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

func (d *OutboxDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil || d.repo == nil {
		return
	}

	ticker := time.NewTicker(d.interval)
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
			task, err := NewLeadPipelineTask(LeadPipelinePayload{
				OutboxID:  rec.ID.String(),
				LeadID:    rec.LeadID.String(),
				CompanyID: rec.CompanyID.String(),
			})
			if err != nil {
				msg := err.Error()
				_ = d.repo.MarkPending(ctx, rec.ID, &msg)
				continue
			}

			_, err = d.client.EnqueueContext(ctx, task, asynq.ProcessAt(rec.RunAt), asynq.Queue(d.queue))
			if err != nil {
				msg := err.Error()
				_ = d.repo.MarkPending(ctx, rec.ID, &msg)
				continue
			}
		}
	}
}

package scheduler

import (
	"context"
	"fmt"

	"github.com/N8Nexus-ai/product/internal/outbox"
	"github.com/N8Nexus-ai/product/platform/config"
	"github.com/N8Nexus-ai/product/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// maxPipelineAttempts caps how often one outbox row is retried before it is
// parked as failed.
const maxPipelineAttempts = 3

// Pipeline is the slice of the lead controller the worker drives.
type Pipeline interface {
	ProcessPipeline(ctx context.Context, leadID uuid.UUID) error
}

type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	pipeline Pipeline
	outbox   *outbox.Repository
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, pipeline Pipeline, outboxRepo *outbox.Repository, log *logger.Logger) (*Worker, error) {
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

	concurrency := cfg.GetWorkerConcurrency()
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
		server:   server,
		mux:      mux,
		pipeline: pipeline,
		outbox:   outboxRepo,
		log:      log,
	}

	mux.HandleFunc(TaskLeadPipeline, w.handleLeadPipeline)

	return w, nil
}

// handleLeadPipeline runs the enrichment, scoring, and dispatch chain for one
// outbox row. Failures put the row back to pending until the attempt cap is
// reached; the outbox is the retry mechanism, so asynq is always told the
// task succeeded.
func (w *Worker) handleLeadPipeline(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLeadPipelinePayload(task)
	if err != nil {
		return err
	}

	outboxID, err := uuid.Parse(payload.OutboxID)
	if err != nil {
		return err
	}
	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return err
	}

	attempts, err := w.outbox.MarkProcessing(ctx, outboxID)
	if err != nil {
		return err
	}

	if err := w.pipeline.ProcessPipeline(ctx, leadID); err != nil {
		w.log.Warn("lead pipeline run failed",
			"lead_id", leadID.String(),
			"attempt", attempts,
			"error", err.Error(),
		)
		if attempts >= maxPipelineAttempts {
			_ = w.outbox.MarkFailed(ctx, outboxID, err.Error())
			return nil
		}
		msg := err.Error()
		_ = w.outbox.MarkPending(ctx, outboxID, &msg)
		return nil
	}

	return w.outbox.MarkSucceeded(ctx, outboxID)
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

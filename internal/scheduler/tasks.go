// Package scheduler runs the background side of the pipeline: the durable
// outbox poller that enqueues asynq tasks and the worker that executes them.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskLeadPipeline = "leads.pipeline"

type LeadPipelinePayload struct {
	OutboxID  string `json:"outboxId"`
	LeadID    string `json:"leadId"`
	CompanyID string `json:"companyId"`
}

func NewLeadPipelineTask(payload LeadPipelinePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadPipeline, data), nil
}

func ParseLeadPipelinePayload(task *asynq.Task) (LeadPipelinePayload, error) {
	var payload LeadPipelinePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LeadPipelinePayload{}, err
	}
	return payload, nil
}

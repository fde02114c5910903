package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskWebhookDeliver = "webhooks.deliver"

type WebhookDeliverPayload struct {
	OutboxID string `json:"outboxId"`
}

func NewWebhookDeliverTask(payload WebhookDeliverPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWebhookDeliver, data), nil
}

func ParseWebhookDeliverPayload(task *asynq.Task) (WebhookDeliverPayload, error) {
	var payload WebhookDeliverPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return WebhookDeliverPayload{}, err
	}
	return payload, nil
}

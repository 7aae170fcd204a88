package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskCrawlSource = "crawl.source"

const TaskCrawlAll = "crawl.all"

type CrawlSourcePayload struct {
	SourceID string `json:"sourceId"`
}

func NewCrawlSourceTask(payload CrawlSourcePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCrawlSource, data), nil
}

func ParseCrawlSourcePayload(task *asynq.Task) (CrawlSourcePayload, error) {
	var payload CrawlSourcePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return CrawlSourcePayload{}, err
	}
	return payload, nil
}

func NewCrawlAllTask() *asynq.Task {
	return asynq.NewTask(TaskCrawlAll, nil)
}

package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-cbt/internal/config"
	"github.com/stemsi/exstem-cbt/internal/model"
)

// QueueResultSink hands results to the ResultWorker through a Redis list.
type QueueResultSink struct {
	rdb *redis.Client
}

// NewQueueResultSink creates a new QueueResultSink.
func NewQueueResultSink(rdb *redis.Client) *QueueResultSink {
	return &QueueResultSink{rdb: rdb}
}

// Submit enqueues one result.
func (s *QueueResultSink) Submit(ctx context.Context, result *model.QuizResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, data).Err(); err != nil {
		return fmt.Errorf("enqueue result: %w", err)
	}
	return nil
}

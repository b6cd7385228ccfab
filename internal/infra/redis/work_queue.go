package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-grading-service/internal/domain"
)

// WorkQueue is a Redis list used as a grading task queue: producers LPUSH,
// consumers BRPOP, so every task goes to exactly one consumer.
type WorkQueue struct {
	client      *redis.Client
	key         string
	pollTimeout time.Duration
	logger      *log.Logger
}

func NewWorkQueue(client *redis.Client, key string, logger *log.Logger) *WorkQueue {
	if key == "" {
		key = "grading-queue"
	}
	if logger == nil {
		logger = log.Default()
	}
	return &WorkQueue{client: client, key: key, pollTimeout: 2 * time.Second, logger: logger}
}

func (q *WorkQueue) Enqueue(ctx context.Context, req domain.GradingRequest) error {
	raw, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode grading task: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, raw).Err(); err != nil {
		return fmt.Errorf("push grading task: %w", err)
	}
	return nil
}

// Dequeue blocks until a well-formed task arrives or ctx is done.
// Malformed payloads are logged and skipped.
func (q *WorkQueue) Dequeue(ctx context.Context) (domain.GradingRequest, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.GradingRequest{}, err
		}
		res, err := q.client.BRPop(ctx, q.pollTimeout, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return domain.GradingRequest{}, ctxErr
			}
			return domain.GradingRequest{}, fmt.Errorf("pop grading task: %w", err)
		}
		if len(res) != 2 {
			continue
		}

		var req domain.GradingRequest
		if err := json.Unmarshal([]byte(res[1]), &req); err != nil {
			q.logger.Printf("skip malformed grading task %q: %v", res[1], err)
			continue
		}
		return req, nil
	}
}

// Len reports the queue depth.
func (q *WorkQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

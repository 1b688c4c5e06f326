// Package queue implements the Redis work queue between the scan pipeline and
// the background consumer.
package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"inboxpilot/core/domain"
	"inboxpilot/core/port/out"
)

const (
	queueKey      = "email:process:queue"
	processingKey = "email:process:active"
)

// RedisQueue is a FIFO list plus a processing set. The set is the only
// cross-consumer lock: membership means some consumer owns that job. There is
// no lease, so a crashed holder strands the job until the set is cleared.
type RedisQueue struct {
	client *redis.Client
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job *domain.QueueJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal queue job: %w", err)
	}
	if err := q.client.RPush(ctx, queueKey, payload).Err(); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

// Dequeue pops the oldest job, or (nil, nil) when the queue is empty.
func (q *RedisQueue) Dequeue(ctx context.Context) (*domain.QueueJob, error) {
	payload, err := q.client.LPop(ctx, queueKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue job: %w", err)
	}

	var job domain.QueueJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return nil, fmt.Errorf("unmarshal queue job: %w", err)
	}
	return &job, nil
}

func (q *RedisQueue) IsLocked(ctx context.Context, jobID string) (bool, error) {
	return q.client.SIsMember(ctx, processingKey, jobID).Result()
}

func (q *RedisQueue) Lock(ctx context.Context, jobID string) error {
	return q.client.SAdd(ctx, processingKey, jobID).Err()
}

func (q *RedisQueue) Unlock(ctx context.Context, jobID string) error {
	return q.client.SRem(ctx, processingKey, jobID).Err()
}

var _ out.WorkQueue = (*RedisQueue)(nil)

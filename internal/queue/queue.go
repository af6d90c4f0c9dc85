// Package queue is the worker-pool transport: a Redis list carries enqueued
// job ids to worker processes, and per-worker heartbeat keys make liveness
// observable to the dispatcher's availability probe.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Transport is the broker interface. Implementations must be safe for
// concurrent use.
type Transport interface {
	Ping(ctx context.Context) error
	// Enqueue hands a job id to the worker pool and returns the task id
	// assigned to the delivery.
	Enqueue(ctx context.Context, jobID uuid.UUID) (string, error)
	// Dequeue blocks up to timeout for the next task. Returns (nil, nil)
	// when the timeout elapses with an empty queue.
	Dequeue(ctx context.Context, timeout time.Duration) (*Task, error)
	// Workers lists the ids of workers with a live heartbeat.
	Workers(ctx context.Context) ([]string, error)
}

// Task is the envelope pushed through the broker.
type Task struct {
	ID         string    `json:"id"`
	JobID      uuid.UUID `json:"job_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// RedisQueue implements Transport using go-redis/v9.
type RedisQueue struct {
	client *redis.Client
}

// NewRedisQueue creates a new RedisQueue from a Redis URL.
func NewRedisQueue(redisURL string) (*RedisQueue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisQueue{client: redis.NewClient(opts)}, nil
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}

func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

func (q *RedisQueue) Enqueue(ctx context.Context, jobID uuid.UUID) (string, error) {
	task := Task{
		ID:         uuid.NewString(),
		JobID:      jobID,
		EnqueuedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("marshal task: %w", err)
	}
	if err := q.client.LPush(ctx, JobQueueKey(), payload).Err(); err != nil {
		return "", fmt.Errorf("enqueue job %s: %w", jobID, err)
	}
	return task.ID, nil
}

func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*Task, error) {
	res, err := q.client.BRPop(ctx, timeout, JobQueueKey()).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue: %w", err)
	}
	// BRPOP returns [key, value]
	var task Task
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		return nil, fmt.Errorf("unmarshal task: %w", err)
	}
	return &task, nil
}

// RegisterWorker refreshes the heartbeat key for workerID. Callers renew it
// periodically; the key expiring is what marks the worker dead.
func (q *RedisQueue) RegisterWorker(ctx context.Context, workerID string, ttl time.Duration) error {
	return q.client.Set(ctx, WorkerKey(workerID), time.Now().UTC().Format(time.RFC3339), ttl).Err()
}

// DeregisterWorker removes the heartbeat key immediately, for clean shutdown.
func (q *RedisQueue) DeregisterWorker(ctx context.Context, workerID string) error {
	return q.client.Del(ctx, WorkerKey(workerID)).Err()
}

// IncrWithExpiry increments a counter and refreshes its expiry in one
// round trip. Used by the API rate limiter.
func (q *RedisQueue) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	pipe := q.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, expiry)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (q *RedisQueue) Workers(ctx context.Context) ([]string, error) {
	var workers []string
	iter := q.client.Scan(ctx, 0, WorkerKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		workers = append(workers, iter.Val()[len(WorkerKey("")):])
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan workers: %w", err)
	}
	return workers, nil
}

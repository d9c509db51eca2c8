// Package queue is the job dispatch transport between the API and the worker:
// a single Redis list fed with LPUSH and drained with BRPOP, which makes it
// FIFO. Delivery is at-most-once. A popped message is gone even if the
// consumer dies before finishing it.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Producer is the API side of the queue.
type Producer interface {
	Push(ctx context.Context, msg []byte) error
}

// Consumer is the worker side of the queue.
type Consumer interface {
	// Pop blocks for up to timeout. It returns (nil, nil) when nothing
	// arrived in time.
	Pop(ctx context.Context, timeout time.Duration) ([]byte, error)
}

// RedisQueue implements Producer and Consumer on one Redis list.
type RedisQueue struct {
	client *redis.Client
	name   string
}

// NewRedisQueue returns a queue backed by the list called name.
func NewRedisQueue(client *redis.Client, name string) *RedisQueue {
	return &RedisQueue{client: client, name: name}
}

// Name returns the Redis key of the list.
func (q *RedisQueue) Name() string {
	return q.name
}

func (q *RedisQueue) Push(ctx context.Context, msg []byte) error {
	if err := q.client.LPush(ctx, q.name, msg).Err(); err != nil {
		return fmt.Errorf("push to %s: %w", q.name, err)
	}
	return nil
}

func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	res, err := q.client.BRPop(ctx, timeout, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pop from %s: %w", q.name, err)
	}
	// BRPOP replies with [key, value].
	if len(res) != 2 {
		return nil, fmt.Errorf("pop from %s: unexpected reply of length %d", q.name, len(res))
	}
	return []byte(res[1]), nil
}

// Len reports the number of messages waiting.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.name).Result()
}

func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Package queue delivers runnable task ids from the API to task workers.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apperrors "github.com/allisson/resourcegateway/internal/errors"
)

// RedisQueue is a FIFO of task ids backed by a Redis list.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, addr string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, apperrors.Wrap(err, "failed to connect to redis")
	}
	return client, nil
}

// NewRedisQueue creates a RedisQueue on the list at key.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	return &RedisQueue{client: client, key: key}
}

// Publish appends ids to the tail of the list.
func (q *RedisQueue) Publish(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = id.String()
	}
	if err := q.client.RPush(ctx, q.key, values...).Err(); err != nil {
		return apperrors.Wrap(err, "failed to publish tasks")
	}
	return nil
}

// Consume pops the head of the list, waiting up to timeout. Entries that are not
// task ids are dropped.
func (q *RedisQueue) Consume(ctx context.Context, timeout time.Duration) (uuid.UUID, bool, error) {
	result, err := q.client.BLPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, false, nil
		}
		if ctx.Err() != nil {
			return uuid.Nil, false, ctx.Err()
		}
		return uuid.Nil, false, apperrors.Wrap(err, "failed to consume tasks")
	}

	// result[0] is the key, result[1] the value.
	if len(result) < 2 {
		return uuid.Nil, false, nil
	}
	id, err := uuid.Parse(result[1])
	if err != nil {
		return uuid.Nil, false, nil
	}
	return id, true, nil
}

// Len returns the number of ids waiting.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get queue length")
	}
	return n, nil
}

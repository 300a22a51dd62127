package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fantics-casino/backend/internal/retry"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis list queues
const (
	QueueTransactions     = "queue:transactions"
	QueueTelegramPayments = "queue:telegram_payments"
)

// RedisQueue is a FIFO work queue on a Redis list: producers LPUSH, consumers BRPOP.
type RedisQueue struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisQueue(client *redis.Client, log *zap.Logger) *RedisQueue {
	return &RedisQueue{client: client, log: log}
}

func (q *RedisQueue) Push(ctx context.Context, queue string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return retry.Do(ctx, publishPolicy, func(ctx context.Context) error {
		return q.client.LPush(ctx, queue, data).Err()
	})
}

// Pop waits up to timeout for the next item. It returns nil, nil when the wait times out.
func (q *RedisQueue) Pop(ctx context.Context, queue string, timeout time.Duration) ([]byte, error) {
	res, err := q.client.BRPop(ctx, timeout, queue).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// BRPOP returns [key, value]
	if len(res) != 2 {
		return nil, nil
	}
	return []byte(res[1]), nil
}

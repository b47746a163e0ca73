package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/akylbek/payment-system/pix-payments/internal/models"
)

const RetryQueueKey = "pix:notifications:retry"

// RedisQueue is a FIFO list: LPUSH on enqueue, BRPOP on dequeue.
type RedisQueue struct {
	client redis.Cmdable
	key    string
}

func NewRedisQueue(client redis.Cmdable) *RedisQueue {
	return &RedisQueue{client: client, key: RetryQueueKey}
}

func (q *RedisQueue) Enqueue(ctx context.Context, n models.PaymentConfirmedNotification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, data).Err()
}

func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*models.PaymentConfirmedNotification, error) {
	res, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// res is [key, value]
	if len(res) != 2 {
		return nil, errors.New("unexpected BRPOP reply")
	}
	var n models.PaymentConfirmedNotification
	if err := json.Unmarshal([]byte(res[1]), &n); err != nil {
		return nil, err
	}
	return &n, nil
}

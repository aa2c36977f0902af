package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/engagement-hub/pkg/circuitbreaker"
	"github.com/jwalitptl/engagement-hub/pkg/messaging"
	"github.com/jwalitptl/engagement-hub/pkg/metrics"
)

type RedisQueue struct {
	client  *redis.Client
	cb      *circuitbreaker.CircuitBreaker
	logger  *zerolog.Logger
	metrics *metrics.Metrics
}

type Config struct {
	URL          string
	MaxRetries   int
	RetryBackoff time.Duration
	PoolSize     int
	MinIdleConns int
}

func NewRedisQueue(config Config, logger *zerolog.Logger, m *metrics.Metrics) (*RedisQueue, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Configure connection pooling
	opts.MaxRetries = config.MaxRetries
	opts.MinRetryBackoff = config.RetryBackoff
	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	opts.MinIdleConns = config.MinIdleConns

	client := redis.NewClient(opts)

	// Test connection
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewFromClient(client, logger, m), nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client *redis.Client, logger *zerolog.Logger, m *metrics.Metrics) *RedisQueue {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if m == nil {
		m = metrics.Nop()
	}
	return &RedisQueue{
		client: client,
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "redis-queue",
			MaxFailures: 5,
			Timeout:     5 * time.Second,
		}),
		logger:  logger,
		metrics: m,
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, queue string, message []byte) error {
	err := q.cb.Execute(func() error {
		return q.client.LPush(ctx, queue, message).Err()
	})
	q.observe("enqueue", err)
	if err != nil {
		return fmt.Errorf("failed to enqueue to %s: %w", queue, err)
	}
	return nil
}

// Dequeue blocks up to timeout for the oldest message. It returns
// messaging.ErrEmpty when nothing arrived.
func (q *RedisQueue) Dequeue(ctx context.Context, queue string, timeout time.Duration) ([]byte, error) {
	var payload []byte
	err := q.cb.Execute(func() error {
		res, err := q.client.BRPop(ctx, timeout, queue).Result()
		if err != nil {
			return err
		}
		// BRPOP returns [key, value]
		if len(res) != 2 {
			return fmt.Errorf("unexpected BRPOP reply of %d elements", len(res))
		}
		payload = []byte(res[1])
		return nil
	}, isEmpty)

	if isEmpty(err) {
		return nil, messaging.ErrEmpty
	}
	q.observe("dequeue", err)
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue from %s: %w", queue, err)
	}
	return payload, nil
}

func (q *RedisQueue) Len(ctx context.Context, queue string) (int64, error) {
	n, err := q.client.LLen(ctx, queue).Result()
	q.observe("llen", err)
	return n, err
}

// Ping is used by readiness checks.
func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}

func (q *RedisQueue) observe(op string, err error) {
	status := "success"
	if err != nil {
		status = "error"
		q.logger.Warn().Err(err).Str("operation", op).Msg("Redis queue operation failed")
	}
	q.metrics.RedisOperations.WithLabelValues(op, status).Inc()
}

func isEmpty(err error) bool {
	return errors.Is(err, redis.Nil)
}

var _ messaging.Queue = (*RedisQueue)(nil)

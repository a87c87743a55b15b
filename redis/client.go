// Package redis wraps the asynq client, server and scheduler used by the
// reminder queue run mode.
package redis

import (
	"context"
	"fmt"
	"sync"

	"github.com/hibiken/asynq"

	"github.com/mastermindankur/warrantywallet/redis/config"
)

// Client wraps the asynq task producer.
type Client struct {
	client *asynq.Client
	cfg    *config.RedisConfig
	mu     sync.RWMutex
}

// NewClient creates a task queue client and verifies the Redis connection.
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*Client, error) {
	if err := cfg.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	client := asynq.NewClient(clientOpt(cfg))

	return &Client{
		client: client,
		cfg:    cfg,
	}, nil
}

// EnqueueTask enqueues a task with the given type and payload. Scheduling
// behaviour can be tuned with asynq options such as asynq.MaxRetry,
// asynq.Queue, asynq.ProcessAt and asynq.Unique.
func (c *Client) EnqueueTask(ctx context.Context, taskType string, payload []byte, opts ...asynq.Option) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	task := asynq.NewTask(taskType, payload)

	if _, err := c.client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("failed to enqueue task %s: %w", taskType, err)
	}

	return nil
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}

	return nil
}

// IsHealthy reports whether the Redis connection is usable.
func (c *Client) IsHealthy(ctx context.Context) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.cfg.Ping(ctx) == nil
}

func clientOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:      cfg.GetRedisAddr(),
		Password:  cfg.Password,
		DB:        cfg.DB,
		TLSConfig: cfg.TLSConfig(),
	}
}

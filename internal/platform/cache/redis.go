package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	clientName  = "fincompare"
	pingTimeout = 5 * time.Second
)

// Option adjusts the client options before connecting.
type Option func(*redis.Options)

// WithDB selects the logical database shared by the export store and asynq.
func WithDB(db int) Option {
	return func(o *redis.Options) { o.DB = db }
}

// New connects to Redis at addr and verifies the connection with PING. The
// client is closed again when the ping fails.
func New(ctx context.Context, addr string, opts ...Option) (*redis.Client, error) {
	options := &redis.Options{Addr: addr, ClientName: clientName}
	for _, opt := range opts {
		opt(options)
	}
	client := redis.NewClient(options)

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: ping %s: %w", addr, err)
	}
	return client, nil
}

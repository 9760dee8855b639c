// Package db opens the Redis connection shared by the token stores.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/naukovi-znahidky/client/config"
	"github.com/redis/go-redis/v9"
)

const (
	defaultPingTimeout  = 5 * time.Second
	defaultDialTimeout  = 5 * time.Second
	defaultConnMaxIdle  = 2 * time.Minute
	defaultConnMaxLife  = 30 * time.Minute
	defaultMaxIdleConns = 5
	defaultPoolSize     = 25
)

// Open connects to Redis and verifies the connection.
func Open(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            cfg.Redis.Addr,
		Password:        cfg.Redis.Password,
		DB:              cfg.Redis.DB,
		DialTimeout:     defaultDialTimeout,
		ConnMaxIdleTime: defaultConnMaxIdle,
		ConnMaxLifetime: defaultConnMaxLife,
		MaxIdleConns:    defaultMaxIdleConns,
		PoolSize:        defaultPoolSize,
	})

	ctx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Redis.Addr, err)
	}

	return client, nil
}

package db

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"autoblog/config"
	"autoblog/logger"
)

// NewRedis 는 redis.url 이 비어 있으면 (nil, nil) 을 반환한다.
// 이 경우 호출자는 Redis 없이 동작하는 구현으로 대체한다.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Log.Infof("Redis connected (%s)", opts.Addr)
	return rdb, nil
}

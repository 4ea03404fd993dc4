package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"autoblog/logger"
)

type RedisHostCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisHostCache(rdb *redis.Client, ttl time.Duration) *RedisHostCache {
	return &RedisHostCache{rdb: rdb, ttl: ttl}
}

func (c *RedisHostCache) Get(ctx context.Context, host string) (primitive.ObjectID, bool, error) {
	v, err := c.rdb.Get(ctx, hostKey(host)).Result()
	if errors.Is(err, redis.Nil) {
		return primitive.NilObjectID, false, nil
	}
	if err != nil {
		return primitive.NilObjectID, false, err
	}
	id, err := primitive.ObjectIDFromHex(v)
	if err != nil {
		// 손상된 값은 지우고 miss 로 처리
		_ = c.rdb.Del(ctx, hostKey(host)).Err()
		return primitive.NilObjectID, false, nil
	}
	return id, true, nil
}

func (c *RedisHostCache) Set(ctx context.Context, host string, ownerID primitive.ObjectID) error {
	return c.rdb.Set(ctx, hostKey(host), ownerID.Hex(), c.ttl).Err()
}

func (c *RedisHostCache) Invalidate(ctx context.Context, hosts ...string) error {
	if len(hosts) == 0 {
		return nil
	}
	keys := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if h != "" {
			keys = append(keys, hostKey(h))
		}
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// 토큰이 일치할 때만 지워 TTL 만료 후 다른 프로세스가 잡은 잠금을 풀지 않는다.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisBatchLock struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisBatchLock(rdb *redis.Client, ttl time.Duration) *RedisBatchLock {
	return &RedisBatchLock{rdb: rdb, ttl: ttl}
}

func (l *RedisBatchLock) Acquire(ctx context.Context, ownerID primitive.ObjectID) (func(), error) {
	key := lockKey(ownerID)
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Err(); err != nil {
			logger.Log.Warnf("release batch lock %s: %v", key, err)
		}
	}, nil
}

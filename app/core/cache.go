package core

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/loreweave/loreweave/pkg/types"
)

func NewRedisClient(cfg RedisConfig) redis.UniversalClient {
	if cfg.Cluster {
		return redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    cfg.ClusterAddrs,
			Password: cfg.ClusterPasswd,
		})
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

type redisCache struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisCache(client redis.UniversalClient, prefix string) types.Cache {
	return &redisCache{client: client, prefix: prefix}
}

func (c *redisCache) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

func (c *redisCache) Get(ctx context.Context, key string) (string, error) {
	res, err := c.client.Get(ctx, c.key(key)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return res, err
}

func (c *redisCache) SetEx(ctx context.Context, key, value string, expiresAt time.Duration) error {
	return c.client.SetEx(ctx, c.key(key), value, expiresAt).Err()
}

func (c *redisCache) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return c.client.Expire(ctx, c.key(key), expiration).Err()
}

// EmptyCache 未配置redis时的空实现，所有读取都视为未命中
type EmptyCache struct{}

func (c EmptyCache) Get(ctx context.Context, key string) (string, error) {
	return "", nil
}

func (c EmptyCache) SetEx(ctx context.Context, key, value string, expiresAt time.Duration) error {
	return nil
}

func (c EmptyCache) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return nil
}

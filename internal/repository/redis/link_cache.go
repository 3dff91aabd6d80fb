package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NordCoder/Shortly/internal/domain/link"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ link.Cache = (*LinkCache)(nil)

// LinkCache maps short codes to their target URL.
type LinkCache struct {
	client redis.Cmdable
	logger *zap.Logger
	prefix string
}

func NewLinkCache(client redis.Cmdable, logger *zap.Logger) *LinkCache {
	return &LinkCache{
		client: client,
		logger: logger.With(zap.String("component", "redis.link_cache")),
		prefix: "link:",
	}
}

func (c *LinkCache) key(short string) string { return c.prefix + short }

func (c *LinkCache) Get(ctx context.Context, short string) (string, bool, error) {
	v, err := c.client.Get(ctx, c.key(short)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		c.logger.Warn("cache get failed", zap.String("short_url", short), zap.Error(err))
		return "", false, fmt.Errorf("cache get: %w", err)
	}
	return v, true, nil
}

func (c *LinkCache) Set(ctx context.Context, short, originalURL string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, c.key(short), originalURL, ttl).Err(); err != nil {
		c.logger.Warn("cache set failed", zap.String("short_url", short), zap.Error(err))
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (c *LinkCache) Delete(ctx context.Context, short string) error {
	if err := c.client.Del(ctx, c.key(short)).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

package translate

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache keeps chunk translations in Redis under translate:{lang}:{sha1(text)}.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func cacheKey(lang, text string) string {
	sum := sha1.Sum([]byte(text))
	return "translate:" + lang + ":" + hex.EncodeToString(sum[:])
}

func (c *RedisCache) Get(ctx context.Context, lang, text string) (string, bool, error) {
	v, err := c.client.Get(ctx, cacheKey(lang, text)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get failure: %w", err)
	}
	return v, true, nil
}

func (c *RedisCache) Set(ctx context.Context, lang, text, translated string) error {
	if err := c.client.Set(ctx, cacheKey(lang, text), translated, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failure: %w", err)
	}
	return nil
}

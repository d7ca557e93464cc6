package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"

	errx "github.com/community-assistant/server/internal/core/error"
)

const cacheKeyPrefix = "embedding:"

// RedisCache stores embeddings as little-endian float32 blobs.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache keeps entries for ttl; zero keeps them forever.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, contentHash string) ([]float32, error) {
	b, err := c.client.Get(ctx, cacheKeyPrefix+contentHash).Bytes()
	if err != nil {
		return nil, errx.WrapRedis(err)
	}
	return DecodeVector(b)
}

func (c *RedisCache) Put(ctx context.Context, contentHash string, embedding []float32) error {
	if err := c.client.Set(ctx, cacheKeyPrefix+contentHash, EncodeVector(embedding), c.ttl).Err(); err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}

// ContentHash is the SHA-256 hex digest of text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Package repo keeps chat sessions and transcripts in Redis.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/community-assistant/server/internal/assistant/model"
	errx "github.com/community-assistant/server/internal/core/error"
	logx "github.com/community-assistant/server/pkg/logger"
)

// SessionNotFoundMessage is the safe message of a missing session.
const SessionNotFoundMessage = "session not found"

type RedisSessionRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisSessionRepository(rdb redis.Cmdable, ttl time.Duration) *RedisSessionRepository {
	return &RedisSessionRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisSessionRepository) sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

func (r *RedisSessionRepository) Create(ctx context.Context, s model.Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	key := r.sessionKey(s.ID)
	ok, err := r.rdb.SetNX(ctx, key, b, r.ttl).Result()
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to store session")
		return errx.WrapRedis(err)
	}
	if !ok {
		return errx.BadRequest(fmt.Errorf("session %s already exists", s.ID), "session already exists")
	}
	return nil
}

func (r *RedisSessionRepository) Get(ctx context.Context, id string) (*model.Session, error) {
	key := r.sessionKey(id)
	b, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errx.NotFound(SessionNotFoundMessage)
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load session")
		return nil, errx.WrapRedis(err)
	}

	var s model.Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", id, err)
	}
	if r.ttl > 0 {
		if err := r.rdb.Expire(ctx, key, r.ttl).Err(); err != nil {
			logx.Warn().Err(err).Str("key", key).Msg("failed to extend session TTL")
		}
	}
	return &s, nil
}

func (r *RedisSessionRepository) Delete(ctx context.Context, id string) error {
	n, err := r.rdb.Del(ctx, r.sessionKey(id)).Result()
	if err != nil {
		return errx.WrapRedis(err)
	}
	if n == 0 {
		return errx.NotFound(SessionNotFoundMessage)
	}
	return nil
}

var _ model.SessionRepository = (*RedisSessionRepository)(nil)

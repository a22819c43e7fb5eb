// Package repo persists completed conversation turns for the history lookup.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/orchestrator/internal/core/error"
	logx "github.com/Chative-core-poc-v1/orchestrator/pkg/logger"
)

// RedisHistoryRepository keeps each session's messages in a Redis list.
type RedisHistoryRepository struct {
	rdb         redis.Cmdable
	ttl         time.Duration
	maxMessages int64
}

// NewRedisHistoryRepository keeps at most maxTurns user/assistant pairs per
// session; maxTurns <= 0 keeps everything.
func NewRedisHistoryRepository(rdb redis.Cmdable, ttl time.Duration, maxTurns int) *RedisHistoryRepository {
	return &RedisHistoryRepository{rdb: rdb, ttl: ttl, maxMessages: int64(maxTurns) * 2}
}

func (r *RedisHistoryRepository) sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s:messages", sessionID)
}

func (r *RedisHistoryRepository) AddMessage(ctx context.Context, sessionID string, message *schema.Message) error {
	b, err := json.Marshal(message)
	if err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to marshal message")
		return fmt.Errorf("marshal message: %w", err)
	}
	key := r.sessionKey(sessionID)

	pipe := r.rdb.TxPipeline()
	pipe.RPush(ctx, key, b)
	if r.maxMessages > 0 {
		pipe.LTrim(ctx, key, -r.maxMessages, -1)
	}
	// extend TTL on touch
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to push message to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisHistoryRepository) LoadHistory(ctx context.Context, sessionID string) (*model.ConversationHistory, error) {
	key := r.sessionKey(sessionID)

	rows, err := r.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &model.ConversationHistory{SessionID: sessionID, Messages: []*schema.Message{}}, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load session history from redis")
		return nil, errx.WrapRedis(err)
	}

	msgs := make([]*schema.Message, 0, len(rows))
	for i, s := range rows {
		var m schema.Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			logx.Error().Err(err).Str("session_id", sessionID).Int("index", i).Msg("failed to unmarshal message")
			return nil, fmt.Errorf("unmarshal message at index %d: %w", i, err)
		}
		msgs = append(msgs, &m)
	}
	return &model.ConversationHistory{SessionID: sessionID, Messages: msgs}, nil
}

func (r *RedisHistoryRepository) ClearHistory(ctx context.Context, sessionID string) error {
	key := r.sessionKey(sessionID)
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete session history from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisHistoryRepository) GetMessageCount(ctx context.Context, sessionID string) (int, error) {
	key := r.sessionKey(sessionID)
	n, err := r.rdb.LLen(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to get message count from redis")
		return 0, errx.WrapRedis(err)
	}
	return int(n), nil
}

// NopHistoryRepository is used when no Redis is configured: writes are
// dropped and every lookup is empty.
type NopHistoryRepository struct{}

func (NopHistoryRepository) AddMessage(context.Context, string, *schema.Message) error { return nil }

func (NopHistoryRepository) LoadHistory(_ context.Context, sessionID string) (*model.ConversationHistory, error) {
	return &model.ConversationHistory{SessionID: sessionID, Messages: []*schema.Message{}}, nil
}

func (NopHistoryRepository) ClearHistory(context.Context, string) error { return nil }

func (NopHistoryRepository) GetMessageCount(context.Context, string) (int, error) { return 0, nil }

var (
	_ model.HistoryRepository = (*RedisHistoryRepository)(nil)
	_ model.HistoryRepository = NopHistoryRepository{}
)

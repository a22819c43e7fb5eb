package repo

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/Chative-core-poc-v1/orchestrator/internal/core/error"
)

func unreachable(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestSessionKey(t *testing.T) {
	r := NewRedisHistoryRepository(nil, time.Hour, 50)
	assert.Equal(t, "session:abc:messages", r.sessionKey("abc"))
	assert.Equal(t, int64(100), r.maxMessages)
}

func TestRedisFailuresAreWrapped(t *testing.T) {
	r := NewRedisHistoryRepository(unreachable(t), time.Hour, 10)
	ctx := context.Background()

	err := r.AddMessage(ctx, "s-1", schema.UserMessage("where is my order"))
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, errx.StatusOf(err))

	_, err = r.LoadHistory(ctx, "s-1")
	assert.Equal(t, http.StatusBadGateway, errx.StatusOf(err))

	_, err = r.GetMessageCount(ctx, "s-1")
	assert.Equal(t, http.StatusBadGateway, errx.StatusOf(err))

	assert.Equal(t, http.StatusBadGateway, errx.StatusOf(r.ClearHistory(ctx, "s-1")))
}

func TestNopHistoryRepository(t *testing.T) {
	var r NopHistoryRepository
	ctx := context.Background()

	require.NoError(t, r.AddMessage(ctx, "s-1", schema.UserMessage("hi")))
	h, err := r.LoadHistory(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "s-1", h.SessionID)
	assert.Empty(t, h.Messages)

	n, err := r.GetMessageCount(ctx, "s-1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/cache"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/memory"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/services"
	errx "github.com/Chative-core-poc-v1/orchestrator/internal/core/error"
)

type fakeRunner struct {
	got  model.Query
	resp model.QueryResponse
	err  error
}

func (f *fakeRunner) Process(_ context.Context, q model.Query) (model.QueryResponse, error) {
	f.got = q
	if f.err != nil {
		return model.QueryResponse{}, f.err
	}
	return f.resp, nil
}

type fakeProber []services.Readiness

func (f fakeProber) Ping(context.Context) []services.Readiness { return f }

type fakeStats cache.Stats

func (f fakeStats) Stats() cache.Stats { return cache.Stats(f) }

type fakeHistory struct {
	msgs []*schema.Message
	err  error
}

func (f *fakeHistory) AddMessage(context.Context, string, *schema.Message) error { return nil }

func (f *fakeHistory) LoadHistory(_ context.Context, id string) (*model.ConversationHistory, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.ConversationHistory{SessionID: id, Messages: f.msgs}, nil
}

func (f *fakeHistory) ClearHistory(context.Context, string) error { return nil }

func (f *fakeHistory) GetMessageCount(context.Context, string) (int, error) { return len(f.msgs), nil }

func serve(t *testing.T, h echo.HandlerFunc, method, target, body string, params ...string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if len(params) == 2 {
		c.SetParamNames(params[0])
		c.SetParamValues(params[1])
	}
	require.NoError(t, h(c))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestProcessQuery(t *testing.T) {
	runner := &fakeRunner{resp: model.QueryResponse{
		RunID:        "run-1",
		SessionID:    "s-1",
		Response:     "Your order has shipped.",
		ServicesUsed: []model.ServiceName{model.ServiceOrder},
		Success:      true,
		Intent:       "order_inquiry",
		Confidence:   0.85,
		Details:      model.ExecutionDetails{Path: model.PathPattern},
	}}
	h := NewHandler(Config{Runner: runner})

	rec := serve(t, h.ProcessQuery, http.MethodPost, "/v1/query",
		`{"query":"where is order ORD-1","session_id":"s-1","user_id":"USR-1","trace":true}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "where is order ORD-1", runner.got.Text)
	assert.Equal(t, "USR-1", runner.got.UserID)
	assert.True(t, runner.got.WithTrace)

	body := decode(t, rec)
	assert.Equal(t, "Your order has shipped.", body["response"])
	assert.Equal(t, true, body["success"])
	assert.Equal(t, []any{"order"}, body["services_used"])
	assert.Equal(t, "pattern", body["execution_details"].(map[string]any)["path"])
}

func TestProcessQueryErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		msg    string
	}{
		{"bad json", `{"query":`, nil, http.StatusBadRequest, "invalid request body"},
		{"empty query", `{"query":"  "}`, errx.BadRequest(errx.ErrEmptyQuery), http.StatusBadRequest, "query text is empty"},
		{"graph failure", `{"query":"hi"}`, errors.New("graph exploded"), http.StatusInternalServerError, errx.SystemErrorMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(Config{Runner: &fakeRunner{err: tt.err}})
			rec := serve(t, h.ProcessQuery, http.MethodPost, "/v1/query", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.msg, decode(t, rec)["error"])
		})
	}
}

func TestGetSessionHistory(t *testing.T) {
	hist := &fakeHistory{msgs: []*schema.Message{
		schema.UserMessage("where is my refund"),
		schema.AssistantMessage("Your refund was issued.", nil),
	}}
	h := NewHandler(Config{History: hist})

	rec := serve(t, h.GetSessionHistory, http.MethodGet, "/v1/sessions/s-9/history", "", "session_id", "s-9")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "s-9", body["session_id"])
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "Your refund was issued.", msgs[1].(map[string]any)["content"])
}

func TestGetSessionHistoryWithoutRepository(t *testing.T) {
	h := NewHandler(Config{})
	rec := serve(t, h.GetSessionHistory, http.MethodGet, "/v1/sessions/s-9/history", "", "session_id", "s-9")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["messages"])
}

func TestGetSessionHistoryStoreError(t *testing.T) {
	h := NewHandler(Config{History: &fakeHistory{err: errx.WrapRedis(errors.New("connection refused"))}})
	rec := serve(t, h.GetSessionHistory, http.MethodGet, "/v1/sessions/s-9/history", "", "session_id", "s-9")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, errx.RedisErrorMessage, decode(t, rec)["error"])
}

type fakeSessions map[string]*memory.Window

func (f fakeSessions) Get(id string) (*memory.Window, bool) {
	w, ok := f[id]
	return w, ok
}

func TestGetSessionContext(t *testing.T) {
	w := memory.NewWindow("s-1", model.ContextConfig{})
	w.AddMessage(schema.User, "where is my refund", nil)
	w.AddMessage(schema.Assistant, "Your refund was issued yesterday.", nil)
	w.AddMessage(schema.User, "and the shipping address", nil)
	w.AddEntity(model.EntityOrderID, "ORD-20001", "Gaming Monitor")
	h := NewHandler(Config{Sessions: fakeSessions{"s-1": w}})

	t.Run("full view", func(t *testing.T) {
		rec := serve(t, h.GetSessionContext, http.MethodGet, "/v1/sessions/s-1/context", "", "session_id", "s-1")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "s-1", body["session_id"])
		assert.Len(t, body["messages"], 3)
		assert.Len(t, body["entity_references"], 1)
	})

	t.Run("filtered by query", func(t *testing.T) {
		rec := serve(t, h.GetSessionContext, http.MethodGet, "/v1/sessions/s-1/context?query=refund+status", "", "session_id", "s-1")
		require.Equal(t, http.StatusOK, rec.Code)
		msgs := decode(t, rec)["messages"].([]any)
		require.Len(t, msgs, 2)
		assert.Equal(t, "where is my refund", msgs[0].(map[string]any)["content"])
	})

	t.Run("unknown session", func(t *testing.T) {
		rec := serve(t, h.GetSessionContext, http.MethodGet, "/v1/sessions/nope/context", "", "session_id", "nope")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("no session store", func(t *testing.T) {
		rec := serve(t, NewHandler(Config{}).GetSessionContext, http.MethodGet, "/v1/sessions/s-1/context", "", "session_id", "s-1")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHealth(t *testing.T) {
	stats := fakeStats{Hits: 3, Misses: 1, HitRate: 0.75, Size: 2, MaxSize: 100}

	t.Run("healthy", func(t *testing.T) {
		h := NewHandler(Config{
			Services:     fakeProber{{Service: model.ServiceOrder, Ready: true}},
			Cache:        stats,
			ReasonerMode: "deterministic",
		})
		rec := serve(t, h.Health, http.MethodGet, "/health", "")

		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "deterministic", body["reasoner"])
		assert.Equal(t, 0.75, body["cache"].(map[string]any)["hit_rate"])
	})

	t.Run("degraded", func(t *testing.T) {
		h := NewHandler(Config{Services: fakeProber{
			{Service: model.ServiceOrder, Ready: true},
			{Service: model.ServiceSupport, Ready: false, Error: "database is closed"},
		}})
		rec := serve(t, h.Health, http.MethodGet, "/health", "")

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "degraded", decode(t, rec)["status"])
	})
}

func TestCacheStats(t *testing.T) {
	h := NewHandler(Config{Cache: fakeStats{Hits: 1, Misses: 1, HitRate: 0.5, Size: 1, MaxSize: 100}})
	rec := serve(t, h.CacheStats, http.MethodGet, "/v1/cache/stats", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, 0.5, body["hit_rate"])
	assert.Equal(t, float64(100), body["max_size"])

	rec = serve(t, NewHandler(Config{}).CacheStats, http.MethodGet, "/v1/cache/stats", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoutesRegistered(t *testing.T) {
	e := echo.New()
	NewHandler(Config{Metrics: http.NotFoundHandler()}).RegisterRoutes(e)

	paths := map[string]bool{}
	for _, r := range e.Routes() {
		paths[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"POST /v1/query",
		"GET /v1/sessions/:session_id/history",
		"GET /v1/sessions/:session_id/context",
		"GET /v1/cache/stats",
		"GET /health",
		"GET /metrics",
	} {
		assert.True(t, paths[want], want)
	}
}

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/cache"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/executor"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/graph"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
)

var (
	_ cache.Observer    = (*PrometheusRecorder)(nil)
	_ executor.Observer = (*PrometheusRecorder)(nil)
	_ graph.RunObserver = (*PrometheusRecorder)(nil)
)

func TestRecorderCounts(t *testing.T) {
	p := NewPrometheusRecorder()

	p.ObserveCacheLookup(true)
	p.ObserveCacheLookup(false)
	p.ObserveCacheLookup(false)
	p.ObserveServiceCall(model.ServiceOrder, true, 20*time.Millisecond)
	p.ObserveServiceCall(model.ServiceOrder, false, time.Second)
	p.ObserveRun(model.PathPattern, true, 50*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(p.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.serviceCalls.WithLabelValues("order", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.runsTotal.WithLabelValues("pattern", "success")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	p := NewPrometheusRecorder()
	p.ObserveRun(model.PathDecomposition, false, time.Millisecond)

	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	res, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), `orchestrator_runs_total{path="decomposition",status="error"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

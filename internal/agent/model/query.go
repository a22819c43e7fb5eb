package model

import (
	"time"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/trace"
)

// Query is the immutable inbound request.
type Query struct {
	Text      string    `json:"text"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id,omitempty"`
	ArrivedAt time.Time `json:"arrived_at"`
	WithTrace bool      `json:"with_trace,omitempty"`
}

// RoutePath names the routing tier that resolved a query.
type RoutePath string

const (
	PathCache         RoutePath = "cache"
	PathPattern       RoutePath = "pattern"
	PathDecomposition RoutePath = "decomposition"
	PathClassifier    RoutePath = "classifier"
	PathDefault       RoutePath = "default"
)

// ExecutionDetails is the diagnostic part of a response.
type ExecutionDetails struct {
	Path             RoutePath               `json:"path"`
	Pattern          PatternTag              `json:"pattern,omitempty"`
	Batches          [][]ServiceName         `json:"batches,omitempty"`
	ForcedBatch      bool                    `json:"forced_batch,omitempty"`
	EstimatedMS      int64                   `json:"estimated_ms"`
	TimingsMS        map[string]float64      `json:"timings_ms"`
	LatencyMS        map[ServiceName]float64 `json:"service_latency_ms,omitempty"`
	ResultConfidence map[ServiceName]float64 `json:"result_confidence,omitempty"`
	Failures         map[ServiceName]string  `json:"failures,omitempty"`
	Transitions      []Transition            `json:"transitions"`
}

// QueryResponse is always well formed; Error is set only for routing
// ambiguity and total failure.
type QueryResponse struct {
	RunID        string           `json:"run_id"`
	SessionID    string           `json:"session_id"`
	Response     string           `json:"response"`
	ServicesUsed []ServiceName    `json:"services_used"`
	Success      bool             `json:"success"`
	Intent       string           `json:"intent"`
	Confidence   float64          `json:"confidence"`
	Error        string           `json:"error,omitempty"`
	CostUSD      float64          `json:"cost_usd"`
	Details      ExecutionDetails `json:"execution_details"`
	Trace        *trace.Trace     `json:"trace,omitempty"`
	// WithTrace mirrors Query.WithTrace.
	WithTrace bool `json:"-"`
}

package model

import (
	"time"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/trace"
)

// RunState stores per-invocation state for the Eino Graph.
// Concurrency model:
//   - Registered as Graph Local State via compose.WithGenLocalState.
//   - Read and written only inside state handlers or compose.ProcessState,
//     which Eino serializes, so no mutex is needed here.
//   - Chain is shared with executor goroutines and locks internally.
type RunState struct {
	RunID     string
	SessionID string
	Machine   *Machine
	Chain     *trace.Chain
	Timings   map[string]time.Duration
	StartedAt time.Time

	// Accumulated reasoning-model cost (USD) for this query
	TotalCostUSD float64
}

// NewRunState starts a run in Listening.
func NewRunState() *RunState {
	return &RunState{
		Machine:   NewMachine(),
		Timings:   map[string]time.Duration{},
		StartedAt: time.Now(),
	}
}

// Turn is the payload passed between graph nodes for one query.
type Turn struct {
	Query     Query
	RunID     string
	Routing   Routing
	Plan      ExecutionPlan
	Results   map[ServiceName]ServiceResult
	Completed []ServiceName
	// Context is the executor's accumulated context after the last batch.
	Context map[string]string
	// Failure is set when the run must end in the Error state.
	Failure error
}

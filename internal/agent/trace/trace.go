// Package trace records the chain of routing and execution decisions made
// while answering one query.
package trace

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// StepType names a kind of decision in the chain.
type StepType string

const (
	StepQueryReceived        StepType = "query_received"
	StepPatternMatch         StepType = "pattern_match"
	StepIntentClassification StepType = "intent_classification"
	StepEntityExtraction     StepType = "entity_extraction"
	StepAgentSelection       StepType = "agent_selection"
	StepDependencyAnalysis   StepType = "dependency_analysis"
	StepExecutionPlanning    StepType = "execution_planning"
	StepAgentExecution       StepType = "agent_execution"
	StepDataExtraction       StepType = "data_extraction"
	StepResponseSynthesis    StepType = "response_synthesis"
	StepErrorRecovery        StepType = "error_recovery"
)

// Step is one recorded decision.
type Step struct {
	Number      int            `json:"number"`
	Type        StepType       `json:"type"`
	Description string         `json:"description"`
	Decision    string         `json:"decision"`
	Confidence  float64        `json:"confidence"`
	DurationMS  float64        `json:"duration_ms"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Trace is the immutable snapshot returned to callers.
type Trace struct {
	Steps      []Step  `json:"steps"`
	Confidence float64 `json:"confidence"`
	TotalMS    float64 `json:"total_ms"`
}

// Chain is safe for concurrent use; executor goroutines append recovery steps.
type Chain struct {
	mu        sync.Mutex
	query     string
	sessionID string
	steps     []Step
	started   time.Time
	stepStart time.Time
	now       func() time.Time
}

// New starts a chain for one query.
func New(query, sessionID string) *Chain {
	now := time.Now()
	return &Chain{query: query, sessionID: sessionID, started: now, stepStart: now, now: time.Now}
}

// Start marks the beginning of the next step's timing window.
func (c *Chain) Start() {
	c.mu.Lock()
	c.stepStart = c.now()
	c.mu.Unlock()
}

// Add appends a step timed from the last Start.
func (c *Chain) Add(t StepType, description, decision string, confidence float64, meta map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps = append(c.steps, Step{
		Number:      len(c.steps) + 1,
		Type:        t,
		Description: description,
		Decision:    decision,
		Confidence:  confidence,
		DurationMS:  float64(c.now().Sub(c.stepStart).Microseconds()) / 1000,
		Metadata:    meta,
	})
	c.stepStart = c.now()
}

// Confidence is the product of all step confidences; 0 for an empty chain.
func (c *Chain) Confidence() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.confidenceLocked()
}

func (c *Chain) confidenceLocked() float64 {
	if len(c.steps) == 0 {
		return 0
	}
	conf := 1.0
	for _, s := range c.steps {
		conf *= s.Confidence
	}
	return conf
}

// Len returns the number of recorded steps.
func (c *Chain) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.steps)
}

// Snapshot copies the chain.
func (c *Chain) Snapshot() Trace {
	c.mu.Lock()
	defer c.mu.Unlock()
	steps := make([]Step, len(c.steps))
	copy(steps, c.steps)
	return Trace{
		Steps:      steps,
		Confidence: c.confidenceLocked(),
		TotalMS:    float64(c.now().Sub(c.started).Microseconds()) / 1000,
	}
}

// Summary renders the chain as log-friendly text.
func (c *Chain) Summary() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var b strings.Builder
	q := c.query
	if len(q) > 50 {
		q = q[:50] + "..."
	}
	fmt.Fprintf(&b, "reasoning chain session=%s query=%q\n", c.sessionID, q)
	for _, s := range c.steps {
		fmt.Fprintf(&b, "  %d. [%s] %s -> %s (%.0f%%, %.1fms)\n",
			s.Number, s.Type, s.Description, s.Decision, s.Confidence*100, s.DurationMS)
	}
	fmt.Fprintf(&b, "  final confidence %.0f%%", c.confidenceLocked()*100)
	return b.String()
}

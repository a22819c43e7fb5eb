package model

import "time"

// EstimatedBatchTime is the planning estimate per batch.
const EstimatedBatchTime = 500 * time.Millisecond

// AgentRequirement states that a service is needed, why, and which services
// must run before it. DependsOn never contains Service itself.
type AgentRequirement struct {
	Service   ServiceName   `json:"service"`
	Reason    string        `json:"reason"`
	DependsOn []ServiceName `json:"depends_on,omitempty"`
	Priority  int           `json:"priority"`
}

// ExecutionPlan is an ordered list of batches; every dependency of a service
// in batch i appears in some batch j < i unless Forced is set.
type ExecutionPlan struct {
	Batches       [][]ServiceName               `json:"batches"`
	Dependencies  map[ServiceName][]ServiceName `json:"dependencies"`
	Forced        bool                          `json:"forced"`
	EstimatedTime time.Duration                 `json:"estimated_time"`
}

// Services flattens the plan in batch order.
func (p ExecutionPlan) Services() []ServiceName {
	var out []ServiceName
	for _, b := range p.Batches {
		out = append(out, b...)
	}
	return out
}

// BatchOf returns the batch index holding s, or -1.
func (p ExecutionPlan) BatchOf(s ServiceName) int {
	for i, b := range p.Batches {
		for _, name := range b {
			if name == s {
				return i
			}
		}
	}
	return -1
}

package model

import "time"

// CachedIntent is a memoised routing decision. It is never served once
// now - CreatedAt exceeds TTL.
type CachedIntent struct {
	Intent     string            `json:"intent"`
	Confidence float64           `json:"confidence"`
	Entities   []ExtractedEntity `json:"entities"`
	Services   []ServiceName     `json:"services"`
	Pattern    PatternTag        `json:"pattern"`
	CreatedAt  time.Time         `json:"created_at"`
	TTL        time.Duration     `json:"ttl"`
}

// Expired reports whether the entry is stale at now.
func (c CachedIntent) Expired(now time.Time) bool {
	return now.Sub(c.CreatedAt) > c.TTL
}

// Routing is the outcome of the Routing state.
type Routing struct {
	Intent       string             `json:"intent"`
	Confidence   float64            `json:"confidence"`
	Entities     []ExtractedEntity  `json:"entities"`
	Requirements []AgentRequirement `json:"requirements"`
	Pattern      PatternTag         `json:"pattern"`
	Path         RoutePath          `json:"path"`
	Complexity   int                `json:"complexity"`
}

// Services lists the required services in requirement order.
func (r Routing) Services() []ServiceName {
	out := make([]ServiceName, 0, len(r.Requirements))
	for _, req := range r.Requirements {
		out = append(out, req.Service)
	}
	return out
}

// Classification is the structured output of the text-reasoning classifier.
type Classification struct {
	Intent       string             `json:"intent"`
	Confidence   float64            `json:"intent_confidence"`
	Entities     []ExtractedEntity  `json:"entities"`
	Requirements []AgentRequirement `json:"required_agents"`
	Complexity   int                `json:"complexity"`
}

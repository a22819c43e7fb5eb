// Package recovery retries failed service calls with a transformed request
// chosen from the failure text, and scores confidence.
package recovery

import "strings"

// Action is a recovery strategy.
type Action string

const (
	ActionDirect   Action = "direct_lookup"
	ActionBroaden  Action = "broaden_search"
	ActionSimplify Action = "simplify"
	ActionCache    Action = "cache_or_fallback"
)

// Classification names the error class and the action chosen for it.
type Classification struct {
	ErrorType string `json:"error_type"`
	Strategy  string `json:"strategy"`
	Action    Action `json:"action"`
}

type rule struct {
	Classification
	patterns []string
}

// Evaluated in order; the first rule with a matching substring wins.
var rules = []rule{
	{Classification{"sql_syntax", "Use direct lookup", ActionDirect}, []string{"syntax error", "no such column", "no such table"}},
	{Classification{"empty_result", "Broaden search criteria", ActionBroaden}, []string{"no results", "empty", "not found"}},
	{Classification{"timeout", "Simplify request", ActionSimplify}, []string{"timeout", "timed out", "too long"}},
	{Classification{"llm_error", "Use cached result or direct lookup", ActionCache}, []string{"rate limit", "api error", "connection"}},
}

var unknown = Classification{"unknown", "Use direct lookup", ActionDirect}

// Classify maps failure text to a recovery action.
func Classify(errText string) Classification {
	lower := strings.ToLower(errText)
	for _, r := range rules {
		for _, p := range r.patterns {
			if strings.Contains(lower, p) {
				return r.Classification
			}
		}
	}
	return unknown
}

// Package reasoner is the boundary to the text-reasoning service: intent
// classification and answer synthesis, backed by a chat model or by a
// deterministic keyword heuristic when no model is configured.
package reasoner

import (
	"context"
	"errors"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/decomposer"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
)

// Reasoner may fail on every call; callers own the fallbacks.
type Reasoner interface {
	Classify(ctx context.Context, query, history string) (model.Classification, Usage, error)
	Synthesize(ctx context.Context, query, data string) (string, Usage, error)
	Mode() string
}

// Usage is the token usage and cost of one model call.
type Usage struct {
	Model            string  `json:"model,omitempty"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	CostUSD          float64 `json:"cost_usd"`
}

// ErrNoModel is returned by the deterministic reasoner for synthesis.
var ErrNoModel = errors.New("no text-reasoning model configured")

const (
	ModeModel         = "model"
	ModeDeterministic = "deterministic"
)

const deterministicConfidence = 0.5

// Deterministic classifies by intent keywords and never synthesizes.
type Deterministic struct{}

func (Deterministic) Mode() string { return ModeDeterministic }

func (Deterministic) Classify(_ context.Context, query, _ string) (model.Classification, Usage, error) {
	d := decomposer.Decompose(query)
	if len(d.SubQueries) == 0 {
		return model.Classification{}, Usage{}, errors.New("no intent keywords found")
	}
	intent := d.SubQueries[0].Intent
	if len(d.SubQueries) > 1 {
		intent = model.IntentMulti
	}
	return model.Classification{
		Intent:       intent,
		Confidence:   deterministicConfidence,
		Requirements: d.Requirements(),
		Complexity:   len(d.ExecutionOrder),
	}, Usage{}, nil
}

func (Deterministic) Synthesize(context.Context, string, string) (string, Usage, error) {
	return "", Usage{}, ErrNoModel
}

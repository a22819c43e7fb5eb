package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/decomposer"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/matcher"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/reasoner"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/recovery"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/trace"
	errx "github.com/Chative-core-poc-v1/orchestrator/internal/core/error"
	logx "github.com/Chative-core-poc-v1/orchestrator/pkg/logger"
)

const (
	decompositionConfidence = 0.8
	defaultConfidence       = 0.3
)

// Route resolves the services for a query: intent cache, then the pattern
// table for single-intent text, then decomposition (unless one pattern spans
// every detected service), then the classifier, and finally the order
// service as a low-confidence default. Only classifier decisions are cached.
func (d *Deps) Route(ctx context.Context, q model.Query, history string, chain *trace.Chain) (model.Routing, reasoner.Usage) {
	text := q.Text
	chain.Start()
	entities := model.DedupeEntities(d.Matcher.ExtractEntities(text))
	chain.Add(trace.StepEntityExtraction,
		fmt.Sprintf("Extracted %d entities", len(entities)),
		entitySummary(entities),
		entityConfidence(entities),
		map[string]any{"entities": len(entities)})

	chain.Start()
	if c, ok := d.Cache.Get(text); ok {
		chain.Add(trace.StepIntentClassification,
			"Found cached intent classification",
			fmt.Sprintf("Using cached: %s (confidence: %.0f%%)", c.Intent, c.Confidence*100),
			c.Confidence,
			map[string]any{"cache_hit": true, "pattern": c.Pattern})
		cached := make([]model.ExtractedEntity, 0, len(c.Entities))
		for _, e := range c.Entities {
			e.Source = model.SourceCache
			cached = append(cached, e)
		}
		return model.Routing{
			Intent:       c.Intent,
			Confidence:   c.Confidence,
			Entities:     model.DedupeEntities(append(entities, cached...)),
			Requirements: requirementsFor(c.Services, "From cache: "+c.Intent),
			Pattern:      c.Pattern,
			Path:         model.PathCache,
			Complexity:   len(c.Services),
		}, reasoner.Usage{}
	}

	multi := decomposer.IsMultiIntent(text)
	if !multi {
		if ok, tag, _ := d.Matcher.CanHandle(text); ok {
			return patternRouting(tag, entities, chain), reasoner.Usage{}
		}
	}

	if multi {
		dec := decomposer.Decompose(text)
		// a pattern that already spans every detected service wins
		if tag, ok := d.Matcher.MatchCovering(text, dec.Services()); ok {
			return patternRouting(tag, entities, chain), reasoner.Usage{}
		}
		if len(dec.SubQueries) > 0 {
			intent := model.IntentMulti
			if len(dec.SubQueries) == 1 {
				intent = dec.SubQueries[0].Intent
			}
			chain.Add(trace.StepIntentClassification,
				fmt.Sprintf("Multi-intent query detected (%d intents)", len(dec.SubQueries)),
				fmt.Sprintf("Execution order: %v", dec.ExecutionOrder),
				decompositionConfidence,
				map[string]any{"sub_queries": len(dec.SubQueries), "intents": dec.Intents()})
			return model.Routing{
				Intent:       intent,
				Confidence:   decompositionConfidence,
				Entities:     entities,
				Requirements: dec.Requirements(),
				Pattern:      model.PatternUnknown,
				Path:         model.PathDecomposition,
				Complexity:   len(dec.ExecutionOrder),
			}, reasoner.Usage{}
		}
	}

	cls, usage, err := d.Reasoner.Classify(ctx, text, history)
	if err != nil {
		logx.Warn().Err(err).Str("session_id", q.SessionID).Str("mode", d.Reasoner.Mode()).
			Msg("classification failed, routing to the order service")
		chain.Add(trace.StepErrorRecovery,
			"Classification failed: "+clip(err.Error(), 50),
			"Using default fallback to the order service",
			defaultConfidence,
			map[string]any{"error": err.Error()})
		return model.Routing{
			Intent:     model.IntentGeneral,
			Confidence: defaultConfidence,
			Entities:   entities,
			Requirements: []model.AgentRequirement{
				{Service: model.ServiceOrder, Reason: "Default fallback", Priority: 1},
			},
			Pattern:    model.PatternUnknown,
			Path:       model.PathDefault,
			Complexity: 1,
		}, usage
	}

	r := model.Routing{
		Intent:       cls.Intent,
		Confidence:   cls.Confidence,
		Entities:     model.DedupeEntities(append(entities, cls.Entities...)),
		Requirements: cls.Requirements,
		Pattern:      model.PatternUnknown,
		Path:         model.PathClassifier,
		Complexity:   cls.Complexity,
	}
	chain.Add(trace.StepIntentClassification,
		"No pattern match and no cached intent, asked the classifier",
		fmt.Sprintf("Classifier identified intent: %s", cls.Intent),
		cls.Confidence,
		map[string]any{"mode": d.Reasoner.Mode(), "cost_usd": usage.CostUSD})

	services := r.Services()
	if len(services) > 0 && cls.Confidence >= d.Routing.ConfidenceFloor {
		d.Cache.Set(text, model.CachedIntent{
			Intent:     cls.Intent,
			Confidence: cls.Confidence,
			Entities:   cls.Entities,
			Services:   services,
			Pattern:    model.PatternUnknown,
		})
	}
	return r, usage
}

func patternRouting(tag model.PatternTag, entities []model.ExtractedEntity, chain *trace.Chain) model.Routing {
	services := tag.Services()
	chain.Add(trace.StepPatternMatch,
		"Pattern matched: "+string(tag),
		"Route from the pattern table, skip classification",
		matcher.MatchConfidence,
		map[string]any{"pattern": tag, "entities_found": len(entities)})
	logx.Debug().Str("pattern", string(tag)).Interface("services", services).Msg("pattern route")
	return model.Routing{
		Intent:       tag.Intent(),
		Confidence:   matcher.MatchConfidence,
		Entities:     entities,
		Requirements: requirementsFor(services, "Pattern: "+string(tag)),
		Pattern:      tag,
		Path:         model.PathPattern,
		Complexity:   len(services),
	}
}

// requirementsFor builds requirements for a fixed service list using the
// decomposer's dependency rule.
func requirementsFor(services []model.ServiceName, reason string) []model.AgentRequirement {
	present := make(map[model.ServiceName]bool, len(services))
	for _, s := range services {
		present[s] = true
	}
	deps := decomposer.Dependencies(present)
	out := make([]model.AgentRequirement, 0, len(services))
	for i, s := range services {
		out = append(out, model.AgentRequirement{Service: s, Reason: reason, DependsOn: deps[s], Priority: i + 1})
	}
	return out
}

// checkRouting returns the reason a routing decision cannot be executed.
func checkRouting(r model.Routing, floor float64) error {
	if r.Confidence < floor {
		return fmt.Errorf("%w (%.2f < %.2f)", errx.ErrLowConfidence, r.Confidence, floor)
	}
	if len(r.Requirements) == 0 {
		return errx.ErrNoServices
	}
	return nil
}

func entityConfidence(entities []model.ExtractedEntity) float64 {
	if len(entities) == 0 {
		return 1
	}
	return matcher.MeanConfidence(entities)
}

func entitySummary(entities []model.ExtractedEntity) string {
	if len(entities) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(entities))
	for _, e := range entities {
		parts = append(parts, string(e.Type)+"="+e.Value)
	}
	return strings.Join(parts, ", ")
}

// agentSelection scores the routed services for the trace.
func agentSelection(r model.Routing, forced bool) float64 {
	clarity := 1.0
	if forced {
		clarity = 0.7
	}
	return recovery.AgentSelectionConfidence(r.Confidence, clarity)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}

// Package matcher classifies query text into known phrasings and extracts
// typed entities without calling the text-reasoning service.
package matcher

import (
	"strings"
	"unicode"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
)

const (
	// MatchConfidence is assigned to any pattern hit.
	MatchConfidence = 0.85
	// EntityConfidence is assigned to every regex-extracted entity.
	EntityConfidence = 0.8
	// DefaultThreshold is the confidence a match needs to bypass classification.
	DefaultThreshold = 0.7

	minEntityLen = 3
)

// Matcher is immutable after construction and safe for concurrent use.
type Matcher struct {
	patterns  []patternRule
	entities  []entityRule
	threshold float64
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithThreshold overrides the can-handle confidence floor.
func WithThreshold(t float64) Option {
	return func(m *Matcher) {
		if t > 0 {
			m.threshold = t
		}
	}
}

// New compiles the pattern and entity tables.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		patterns:  buildPatterns(),
		entities:  buildEntityRules(),
		threshold: DefaultThreshold,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match returns the first pattern whose regex matches, or PatternUnknown with
// zero confidence.
func (m *Matcher) Match(text string) (model.PatternTag, float64) {
	lower := strings.ToLower(text)
	for _, rule := range m.patterns {
		for _, re := range rule.regexes {
			if re.MatchString(lower) {
				return rule.tag, MatchConfidence
			}
		}
	}
	return model.PatternUnknown, 0
}

// ExtractEntities runs every entity rule independently. Duplicates are kept;
// callers dedupe by (type, value).
func (m *Matcher) ExtractEntities(text string) []model.ExtractedEntity {
	var out []model.ExtractedEntity
	for _, rule := range m.entities {
		for _, re := range rule.regexes {
			for _, sub := range re.FindAllStringSubmatch(text, -1) {
				value := sub[0]
				if len(sub) > 1 {
					value = sub[1]
				}
				value = strings.TrimSpace(value)
				if len(value) < minEntityLen {
					continue
				}
				if rule.needsDigit && !hasDigit(value) {
					continue
				}
				out = append(out, model.ExtractedEntity{
					Type:       rule.typ,
					Value:      value,
					Confidence: EntityConfidence,
					Source:     model.SourcePattern,
				})
			}
		}
	}
	return out
}

// CanHandle reports whether the query can be routed from the pattern table
// alone. Entities are returned either way.
func (m *Matcher) CanHandle(text string) (bool, model.PatternTag, []model.ExtractedEntity) {
	tag, conf := m.Match(text)
	entities := m.ExtractEntities(text)
	if tag != model.PatternUnknown && conf >= m.threshold {
		return true, tag, entities
	}
	return false, model.PatternUnknown, entities
}

// MatchCovering returns the first pattern, in table order, that matches text
// and whose services include every service in need.
func (m *Matcher) MatchCovering(text string, need []model.ServiceName) (model.PatternTag, bool) {
	if len(need) == 0 || MatchConfidence < m.threshold {
		return model.PatternUnknown, false
	}
	lower := strings.ToLower(text)
	for _, rule := range m.patterns {
		if !covers(rule.tag.Services(), need) {
			continue
		}
		for _, re := range rule.regexes {
			if re.MatchString(lower) {
				return rule.tag, true
			}
		}
	}
	return model.PatternUnknown, false
}

func covers(have, need []model.ServiceName) bool {
	for _, n := range need {
		found := false
		for _, h := range have {
			if h == n {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// MeanConfidence averages entity confidences; 0 when there are none.
func MeanConfidence(entities []model.ExtractedEntity) float64 {
	if len(entities) == 0 {
		return 0
	}
	var sum float64
	for _, e := range entities {
		sum += e.Confidence
	}
	return sum / float64(len(entities))
}

func hasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

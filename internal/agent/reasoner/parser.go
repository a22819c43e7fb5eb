package reasoner

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/orchestrator/internal/core/error"
	logx "github.com/Chative-core-poc-v1/orchestrator/pkg/logger"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen = 64 * 1024
	maxAgents     = 8
	maxEntities   = 32
	maxValueLen   = 256
	maxErrSnippet = 200
)

// ErrMalformed marks classifier output that could not be read as JSON.
var ErrMalformed = errors.New("malformed classifier output")

type rawClassification struct {
	Intent     string          `json:"intent"`
	Confidence json.RawMessage `json:"intent_confidence"`
	Entities   []struct {
		Type  string `json:"type"`
		Value any    `json:"value"`
	} `json:"entities"`
	Agents []struct {
		Agent     string   `json:"agent"`
		Reason    string   `json:"reason"`
		DependsOn []string `json:"depends_on"`
	} `json:"required_agents"`
	Complexity json.RawMessage `json:"complexity"`
}

// ParseClassification reads the classifier's JSON answer. Fenced or
// surrounding prose is tolerated. Unknown services and entity types are
// dropped and recorded in the returned warnings.
func ParseClassification(content string) (out model.Classification, warnings []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "classification_parser").Interface("panic", r).Msg("panic recovered")
			out = model.Classification{}
			err = errx.New(fmt.Errorf("classification parser panic"), http.StatusInternalServerError, errx.SystemErrorMessage)
		}
	}()

	if len(content) > maxContentLen {
		logx.Warn().Str("component", "classification_parser").Int("orig_len", len(content)).
			Msg("content truncated due to size limit")
		content = content[:maxContentLen]
	}
	body, ok := extractJSON(content)
	if !ok {
		return model.Classification{}, nil, fmt.Errorf("%w: no JSON object in %q", ErrMalformed, safeSnippet(content))
	}

	var raw rawClassification
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return model.Classification{}, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	warn := func(format string, args ...any) { warnings = append(warnings, fmt.Sprintf(format, args...)) }

	out.Intent = strings.TrimSpace(raw.Intent)
	if out.Intent == "" || !utf8.ValidString(out.Intent) {
		warn("intent: missing or invalid")
		out.Intent = model.IntentGeneral
	}

	conf, cerr := parseConfidence(raw.Confidence)
	if cerr != nil {
		warn("intent_confidence: %v", cerr)
	}
	out.Confidence = conf
	out.Complexity = parseComplexity(raw.Complexity)

	for i, e := range raw.Entities {
		if i >= maxEntities {
			warn("entities: capped at %d", maxEntities)
			break
		}
		t := model.EntityType(strings.ToLower(strings.TrimSpace(e.Type)))
		val := strings.TrimSpace(fmt.Sprint(e.Value))
		if !t.Valid() {
			warn("entity: unknown type %q", e.Type)
			continue
		}
		if e.Value == nil || val == "" || len(val) > maxValueLen || !utf8.ValidString(val) {
			warn("entity: invalid value for %s", t)
			continue
		}
		out.Entities = append(out.Entities, model.ExtractedEntity{
			Type: t, Value: val, Confidence: out.Confidence, Source: model.SourceClassifier,
		})
	}
	out.Entities = model.DedupeEntities(out.Entities)

	seen := map[model.ServiceName]bool{}
	for _, a := range raw.Agents {
		if len(out.Requirements) >= maxAgents {
			break
		}
		name, err := model.ParseServiceName(a.Agent)
		if err != nil {
			warn("agent: %v", err)
			continue
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		req := model.AgentRequirement{Service: name, Reason: strings.TrimSpace(a.Reason), Priority: len(out.Requirements) + 1}
		for _, d := range a.DependsOn {
			dep, err := model.ParseServiceName(d)
			if err != nil {
				warn("depends_on: %v", err)
				continue
			}
			if dep != name {
				req.DependsOn = append(req.DependsOn, dep)
			}
		}
		out.Requirements = append(out.Requirements, req)
	}
	return out, warnings, nil
}

// extractJSON returns the outermost {...} span of s.
func extractJSON(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func parseConfidence(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("missing")
	}
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse: %w", err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid number")
	}
	if v > 1 && v <= 100 {
		v /= 100
	}
	if v < 0 || v > 1 {
		return 0, fmt.Errorf("out of range")
	}
	return v, nil
}

func parseComplexity(raw json.RawMessage) int {
	s := strings.ToLower(strings.Trim(strings.TrimSpace(string(raw)), `"`))
	switch s {
	case "simple", "":
		return 1
	case "moderate", "medium":
		return 2
	case "complex", "high":
		return 3
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return 1
}

func safeSnippet(s string) string {
	if len(s) > maxErrSnippet {
		return s[:maxErrSnippet] + "..."
	}
	return s
}

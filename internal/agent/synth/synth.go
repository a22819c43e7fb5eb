package synth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/reasoner"
	logx "github.com/Chative-core-poc-v1/orchestrator/pkg/logger"
)

const (
	NoDataMessage = "I apologize, but I couldn't find relevant information for your query. Could you please provide more details?"
	errorTemplate = "I apologize, but I encountered an issue while processing your request. Error: %s. Please try again or contact our support team."
)

// ErrorMessage is the apology returned from the Error state.
func ErrorMessage(reason string) string {
	if strings.TrimSpace(reason) == "" {
		reason = "Unknown error occurred"
	}
	return fmt.Sprintf(errorTemplate, reason)
}

// Fallback builds the bullet answer used when synthesis is unavailable.
func Fallback(sections []Section) string {
	parts := []string{"Based on our records:"}
	for _, s := range sections {
		for i, it := range s.Items {
			if i >= maxFallbackRecords {
				break
			}
			switch s.Service {
			case model.ServiceOrder:
				parts = append(parts, fmt.Sprintf("• Order %s...: %s - $%s",
					prefix(or(it.Get("order_id"), "N/A"), 8), or(it.Get("status"), "Unknown"), or(it.Get("total_amount"), "0")))
			case model.ServiceLogistics:
				parts = append(parts, fmt.Sprintf("• Shipment: %s at %s",
					or(it.Get("status"), "Unknown"), or(it.Get("current_location"), "Unknown")))
			case model.ServicePayment:
				parts = append(parts, fmt.Sprintf("• Transaction: %s - $%s (%s)",
					or(it.Get("type"), "Unknown"), or(it.Get("amount"), "0"), or(it.Get("status"), "Unknown")))
			case model.ServiceSupport:
				parts = append(parts, fmt.Sprintf("• Ticket: %s - Assigned to %s",
					or(it.Get("status"), "Unknown"), or(it.Get("assigned_to"), "Unassigned")))
			}
		}
	}
	return strings.Join(parts, "\n")
}

// Answer is the outcome of one synthesis.
type Answer struct {
	Text     string
	Fallback bool
	Sections []Section
	Usage    reasoner.Usage
	Latency  time.Duration
}

// Synthesizer asks the reasoner for the final answer and never fails: any
// reasoner error degrades to the bullet template.
type Synthesizer struct {
	r reasoner.Reasoner
}

func New(r reasoner.Reasoner) *Synthesizer {
	return &Synthesizer{r: r}
}

func (s *Synthesizer) Answer(ctx context.Context, query string, results map[model.ServiceName]model.ServiceResult) Answer {
	start := time.Now()
	sections := ExtractRelevant(results)
	if len(sections) == 0 {
		return Answer{Text: NoDataMessage, Latency: time.Since(start)}
	}

	text, usage, err := s.r.Synthesize(ctx, query, FormatData(sections))
	if err != nil {
		lvl := logx.Warn()
		if errors.Is(err, reasoner.ErrNoModel) {
			lvl = logx.Debug()
		}
		lvl.Err(err).Str("mode", s.r.Mode()).Msg("synthesis failed, using template answer")
		return Answer{Text: Fallback(sections), Fallback: true, Sections: sections, Usage: usage, Latency: time.Since(start)}
	}
	return Answer{Text: text, Sections: sections, Usage: usage, Latency: time.Since(start)}
}

func or(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func prefix(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

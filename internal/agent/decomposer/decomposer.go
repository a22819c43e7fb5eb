// Package decomposer splits multi-intent customer queries into per-service
// sub-queries with fixed inter-service dependencies.
package decomposer

import (
	"strings"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/planner"
)

var conjunctions = []string{" and ", " also ", " plus ", " as well as ", ", and ", " & "}

type intentKeywords struct {
	intent   string
	service  model.ServiceName
	keywords []string
}

// Ordered: first occurrence in this table decides sub-query order.
var intentTable = []intentKeywords{
	{model.IntentOrderInquiry, model.ServiceOrder, []string{"order", "ordered", "purchase", "bought"}},
	{model.IntentDeliveryTracking, model.ServiceLogistics, []string{"delivery", "shipment", "tracking", "shipped", "arrived", "where is"}},
	{model.IntentRefundRequest, model.ServicePayment, []string{"refund", "money back", "return"}},
	{model.IntentPaymentHistory, model.ServicePayment, []string{"payment", "transaction", "paid", "wallet"}},
	{model.IntentTicketStatus, model.ServiceSupport, []string{"ticket", "support", "issue", "complaint", "help"}},
}

// SubQuery binds one detected intent to its owning service.
type SubQuery struct {
	Intent  string            `json:"intent"`
	Keyword string            `json:"keyword"`
	Service model.ServiceName `json:"service"`
	Query   string            `json:"query"`
}

// Decomposition is the result of splitting a query.
type Decomposition struct {
	SubQueries     []SubQuery                                `json:"sub_queries"`
	Dependencies   map[model.ServiceName][]model.ServiceName `json:"dependencies"`
	ExecutionOrder [][]model.ServiceName                     `json:"execution_order"`
	Forced         bool                                      `json:"forced,omitempty"`
}

// Services lists the distinct services in sub-query order.
func (d Decomposition) Services() []model.ServiceName {
	out := make([]model.ServiceName, 0, len(d.SubQueries))
	for _, sq := range d.SubQueries {
		out = append(out, sq.Service)
	}
	return out
}

// Intents lists the detected intent categories.
func (d Decomposition) Intents() []string {
	out := make([]string, 0, len(d.SubQueries))
	for _, sq := range d.SubQueries {
		out = append(out, sq.Intent)
	}
	return out
}

// Requirements converts the decomposition into planner input.
func (d Decomposition) Requirements() []model.AgentRequirement {
	out := make([]model.AgentRequirement, 0, len(d.SubQueries))
	for i, sq := range d.SubQueries {
		out = append(out, model.AgentRequirement{
			Service:   sq.Service,
			Reason:    sq.Intent + " (" + sq.Keyword + ")",
			DependsOn: d.Dependencies[sq.Service],
			Priority:  i + 1,
		})
	}
	return out
}

// IsMultiIntent reports whether text carries a conjunction or keywords from
// two or more intent categories.
func IsMultiIntent(text string) bool {
	lower := strings.ToLower(text)
	for _, c := range conjunctions {
		if strings.Contains(lower, c) {
			return true
		}
	}
	return len(detect(lower)) > 1
}

type hit struct {
	intent  string
	keyword string
	service model.ServiceName
}

func detect(lower string) []hit {
	var hits []hit
	for _, row := range intentTable {
		for _, kw := range row.keywords {
			if strings.Contains(lower, kw) {
				hits = append(hits, hit{row.intent, kw, row.service})
				break
			}
		}
	}
	return hits
}

// Decompose splits text into one sub-query per owning service. Categories
// that share a service collapse into the first one seen.
func Decompose(text string) Decomposition {
	lower := strings.ToLower(text)
	var subs []SubQuery
	seen := map[model.ServiceName]bool{}
	for _, h := range detect(lower) {
		if seen[h.service] {
			continue
		}
		seen[h.service] = true
		subs = append(subs, SubQuery{Intent: h.intent, Keyword: h.keyword, Service: h.service, Query: text})
	}

	deps := Dependencies(seen)
	services := make([]model.ServiceName, 0, len(subs))
	for _, sq := range subs {
		services = append(services, sq.Service)
	}
	order, forced := planner.Layer(services, deps)

	return Decomposition{
		SubQueries:     subs,
		Dependencies:   deps,
		ExecutionOrder: order,
		Forced:         forced,
	}
}

// Dependencies applies the fixed rule: every non-order service waits for the
// order service when it is present, and support also waits for payment.
func Dependencies(present map[model.ServiceName]bool) map[model.ServiceName][]model.ServiceName {
	deps := make(map[model.ServiceName][]model.ServiceName, len(present))
	for s := range present {
		var d []model.ServiceName
		if s != model.ServiceOrder && present[model.ServiceOrder] {
			d = append(d, model.ServiceOrder)
		}
		if s == model.ServiceSupport && present[model.ServicePayment] {
			d = append(d, model.ServicePayment)
		}
		deps[s] = d
	}
	return deps
}

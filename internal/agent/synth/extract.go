// Package synth turns service results into the customer-facing answer.
package synth

import (
	"fmt"
	"strings"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
)

const (
	maxRecords         = 5
	maxFallbackRecords = 2
)

var relevantFields = map[model.ServiceName][]string{
	model.ServiceOrder:     {"order_id", "product_name", "status", "total_amount", "order_date", "user_name"},
	model.ServiceLogistics: {"tracking_number", "status", "current_location", "estimated_arrival", "tracking_events"},
	model.ServicePayment:   {"transaction_id", "type", "status", "amount", "date", "reference"},
	model.ServiceSupport:   {"ticket_id", "subject", "status", "priority", "assigned_to", "created_at"},
}

// Field is one kept key/value pair; order follows the per-service field list.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Item is one trimmed record.
type Item []Field

// Get returns the value for key, or "".
func (it Item) Get(key string) string {
	for _, f := range it {
		if f.Key == key {
			return f.Value
		}
	}
	return ""
}

// Section is the relevant data of one service.
type Section struct {
	Service model.ServiceName `json:"service"`
	Items   []Item            `json:"items"`
}

// ExtractRelevant keeps the successful services' relevant fields, at most
// five records each, in canonical service order.
func ExtractRelevant(results map[model.ServiceName]model.ServiceResult) []Section {
	var out []Section
	for _, name := range model.AllServices() {
		res, ok := results[name]
		if !ok || !res.Success || len(res.Data) == 0 {
			continue
		}
		var items []Item
		for i, rec := range res.Data {
			if i >= maxRecords {
				break
			}
			if it := relevantItem(name, rec); len(it) > 0 {
				items = append(items, it)
			}
		}
		if len(items) > 0 {
			out = append(out, Section{Service: name, Items: items})
		}
	}
	return out
}

func relevantItem(name model.ServiceName, rec model.Record) Item {
	var it Item
	for _, k := range relevantFields[name] {
		v, present := rec[k]
		if !present || v == nil {
			continue
		}
		it = append(it, Field{Key: k, Value: rec.Get(k)})
	}
	return it
}

// FormatData renders sections as the data block handed to the reasoner.
func FormatData(sections []Section) string {
	var parts []string
	for _, s := range sections {
		parts = append(parts, "", fmt.Sprintf("=== %s DATA ===", strings.ToUpper(string(s.Service))))
		for i, it := range s.Items {
			parts = append(parts, "", fmt.Sprintf("Item %d:", i+1))
			for _, f := range it {
				parts = append(parts, fmt.Sprintf("  - %s: %s", f.Key, f.Value))
			}
		}
	}
	return strings.Join(parts, "\n")
}

package synth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/reasoner"
)

func sampleResults() map[model.ServiceName]model.ServiceResult {
	orders := make([]model.Record, 0, 7)
	for i := 0; i < 7; i++ {
		orders = append(orders, model.Record{
			"order_id":     "ORD-2000" + string(rune('1'+i)),
			"product_name": "Gaming Monitor 27in",
			"status":       "shipped",
			"total_amount": 329.99,
			"user_id":      "USR-1001",
			"internal":     "hidden",
		})
	}
	return map[model.ServiceName]model.ServiceResult{
		model.ServiceOrder: {Service: model.ServiceOrder, Success: true, Data: orders},
		model.ServiceLogistics: {Service: model.ServiceLogistics, Success: true, Data: []model.Record{
			{"tracking_number": "OSH12345678", "status": "in_transit", "current_location": "Denver Hub", "estimated_arrival": nil},
		}},
		model.ServicePayment: {Service: model.ServicePayment, Success: false, Error: "boom"},
		model.ServiceSupport: {Service: model.ServiceSupport, Success: true, Data: []model.Record{
			{"ticket_id": "TCK-5001", "status": "open"},
		}},
	}
}

func TestExtractRelevant(t *testing.T) {
	sections := ExtractRelevant(sampleResults())
	require.Len(t, sections, 3)

	assert.Equal(t, model.ServiceOrder, sections[0].Service)
	assert.Len(t, sections[0].Items, maxRecords)
	first := sections[0].Items[0]
	assert.Equal(t, "329.99", first.Get("total_amount"))
	assert.Empty(t, first.Get("internal"))
	assert.Empty(t, first.Get("user_id"))

	assert.Equal(t, model.ServiceLogistics, sections[1].Service)
	assert.Len(t, sections[1].Items[0], 3, "nil values are dropped")
	assert.Equal(t, model.ServiceSupport, sections[2].Service)
}

func TestExtractRelevantSkipsEmpty(t *testing.T) {
	assert.Empty(t, ExtractRelevant(map[model.ServiceName]model.ServiceResult{
		model.ServiceOrder:   {Success: true},
		model.ServicePayment: {Success: true, Data: []model.Record{{"unrelated": 1}}},
	}))
}

func TestFormatData(t *testing.T) {
	out := FormatData([]Section{{
		Service: model.ServiceLogistics,
		Items:   []Item{{{Key: "tracking_number", Value: "OSH12345678"}, {Key: "status", Value: "in_transit"}}},
	}})
	assert.Equal(t, "\n=== LOGISTICS DATA ===\n\nItem 1:\n  - tracking_number: OSH12345678\n  - status: in_transit", out)
}

func TestFallback(t *testing.T) {
	out := Fallback(ExtractRelevant(sampleResults()))
	assert.Equal(t, "Based on our records:\n"+
		"• Order ORD-2000...: shipped - $329.99\n"+
		"• Order ORD-2000...: shipped - $329.99\n"+
		"• Shipment: in_transit at Denver Hub\n"+
		"• Ticket: open - Assigned to Unassigned", out)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "I apologize, but I encountered an issue while processing your request. Error: no services. Please try again or contact our support team.",
		ErrorMessage("no services"))
	assert.Contains(t, ErrorMessage(""), "Unknown error occurred")
}

type stubReasoner struct {
	reasoner.Deterministic
	text string
	err  error
	data string
}

func (s *stubReasoner) Synthesize(_ context.Context, _, data string) (string, reasoner.Usage, error) {
	s.data = data
	return s.text, reasoner.Usage{TotalTokens: 42}, s.err
}

func TestSynthesizerUsesReasoner(t *testing.T) {
	r := &stubReasoner{text: "Your monitor is in Denver."}
	a := New(r).Answer(context.Background(), "where is my monitor", sampleResults())

	assert.Equal(t, "Your monitor is in Denver.", a.Text)
	assert.False(t, a.Fallback)
	assert.Equal(t, 42, a.Usage.TotalTokens)
	assert.Contains(t, r.data, "=== ORDER DATA ===")
}

func TestSynthesizerFallsBack(t *testing.T) {
	a := New(&stubReasoner{err: errors.New("quota exceeded")}).Answer(context.Background(), "q", sampleResults())
	assert.True(t, a.Fallback)
	assert.Contains(t, a.Text, "Based on our records:")

	a = New(reasoner.Deterministic{}).Answer(context.Background(), "q", sampleResults())
	assert.True(t, a.Fallback)
}

func TestSynthesizerNoData(t *testing.T) {
	a := New(reasoner.Deterministic{}).Answer(context.Background(), "q", nil)
	assert.Equal(t, NoDataMessage, a.Text)
	assert.False(t, a.Fallback)
}

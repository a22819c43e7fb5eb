package reasoner

import (
	"context"
	"errors"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
)

func TestParseClassification(t *testing.T) {
	content := "```json\n" + `{
		"intent": "delivery_tracking",
		"intent_confidence": 0.92,
		"entities": [
			{"type": "order_id", "value": "ORD-20001"},
			{"type": "order_id", "value": "ORD-20001"},
			{"type": "colour", "value": "red"}
		],
		"required_agents": [
			{"agent": "orders", "reason": "find the order"},
			{"agent": "shipping", "reason": "track it", "depends_on": ["order", "shipping", "warehouse"]},
			{"agent": "inventory", "reason": "?"}
		],
		"complexity": "moderate"
	}` + "\n```"

	cls, warnings, err := ParseClassification(content)
	require.NoError(t, err)

	assert.Equal(t, model.IntentDeliveryTracking, cls.Intent)
	assert.InDelta(t, 0.92, cls.Confidence, 1e-9)
	assert.Equal(t, 2, cls.Complexity)
	require.Len(t, cls.Entities, 1)
	assert.Equal(t, model.SourceClassifier, cls.Entities[0].Source)

	require.Len(t, cls.Requirements, 2)
	assert.Equal(t, model.ServiceOrder, cls.Requirements[0].Service)
	assert.Equal(t, model.ServiceLogistics, cls.Requirements[1].Service)
	assert.Equal(t, []model.ServiceName{model.ServiceOrder}, cls.Requirements[1].DependsOn, "self and unknown dropped")
	assert.Len(t, warnings, 3)
}

func TestParseClassificationRejectsNonJSON(t *testing.T) {
	_, _, err := ParseClassification("I think the customer wants their order.")
	assert.ErrorIs(t, err, ErrMalformed)

	_, _, err = ParseClassification(`{"intent": "x", "required_agents": [}`)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestParseConfidence(t *testing.T) {
	v, err := parseConfidence([]byte(`"85"`))
	require.NoError(t, err)
	assert.InDelta(t, 0.85, v, 1e-9)

	_, err = parseConfidence([]byte(`-1`))
	assert.Error(t, err)
	_, err = parseConfidence(nil)
	assert.Error(t, err)
}

func TestDeterministicClassify(t *testing.T) {
	cls, _, err := Deterministic{}.Classify(context.Background(), "my refund and the support ticket", "")
	require.NoError(t, err)
	assert.Equal(t, model.IntentMulti, cls.Intent)
	assert.Equal(t, []model.ServiceName{model.ServicePayment, model.ServiceSupport},
		model.Routing{Requirements: cls.Requirements}.Services())

	_, _, err = Deterministic{}.Classify(context.Background(), "hello there", "")
	assert.Error(t, err)

	_, _, err = Deterministic{}.Synthesize(context.Background(), "q", "data")
	assert.ErrorIs(t, err, ErrNoModel)
}

type fakeChat struct {
	reply *schema.Message
	err   error
	got   []*schema.Message
}

func (f *fakeChat) Generate(_ context.Context, in []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	f.got = in
	return f.reply, f.err
}

func (f *fakeChat) Stream(context.Context, []*schema.Message, ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

func newChat(t *testing.T, cls, syn *fakeChat) *ChatReasoner {
	t.Helper()
	r, err := NewChatReasoner(ChatConfig{
		Classifier:      cls,
		ClassifierModel: model.ClassifierModelConfig{Model: "gemini-2.5-flash-lite"},
		Synthesizer:     syn,
		SynthesisModel:  model.SynthesisModelConfig{Model: "gemini-2.5-flash"},
		Prompt:          model.SynthesisPromptConfig{BusinessName: "Acme", MaxSentences: 3},
	})
	require.NoError(t, err)
	return r
}

func TestChatClassify(t *testing.T) {
	reply := schema.AssistantMessage(`{"intent":"refund_request","intent_confidence":0.8,
		"required_agents":[{"agent":"payment","reason":"refund"}],"complexity":"simple"}`, nil)
	reply.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 0, TotalTokens: 1_000_000}}
	cls := &fakeChat{reply: reply}
	r := newChat(t, cls, &fakeChat{})

	out, usage, err := r.Classify(context.Background(), "where is my refund", "")
	require.NoError(t, err)
	assert.Equal(t, model.IntentRefundRequest, out.Intent)
	assert.InDelta(t, 0.10, usage.CostUSD, 1e-9)

	require.Len(t, cls.got, 2)
	assert.Equal(t, schema.System, cls.got[0].Role)
	assert.Contains(t, cls.got[0].Content, "- logistics: shipments")
	assert.Contains(t, cls.got[0].Content, `"required_agents"`, "JSON braces survive rendering")
	assert.Contains(t, cls.got[1].Content, "UserMessage(where is my refund)")
}

func TestChatClassifyModelError(t *testing.T) {
	r := newChat(t, &fakeChat{err: errors.New("rate limit")}, &fakeChat{})
	_, _, err := r.Classify(context.Background(), "q", "")
	assert.ErrorContains(t, err, "rate limit")
}

func TestChatSynthesize(t *testing.T) {
	syn := &fakeChat{reply: schema.AssistantMessage("  Your order ships tomorrow.  ", nil)}
	r := newChat(t, &fakeChat{}, syn)

	text, _, err := r.Synthesize(context.Background(), "where is my order", "=== SERVICE DATA ===")
	require.NoError(t, err)
	assert.Equal(t, "Your order ships tomorrow.", text)
	assert.Contains(t, syn.got[0].Content, "support assistant for Acme")
	assert.Contains(t, syn.got[0].Content, "at most 3 sentences")
	assert.Contains(t, syn.got[1].Content, "Customer question: where is my order")

	empty := newChat(t, &fakeChat{}, &fakeChat{reply: schema.AssistantMessage(" ", nil)})
	_, _, err = empty.Synthesize(context.Background(), "q", "d")
	assert.Error(t, err)
}

func TestNewChatReasonerRequiresModels(t *testing.T) {
	_, err := NewChatReasoner(ChatConfig{})
	assert.Error(t, err)
}

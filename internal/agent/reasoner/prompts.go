package reasoner

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
)

//go:embed template/classify_prompt.txt
var classifySystemPrompt string

//go:embed template/synthesis_prompt.txt
var synthesisSystemPrompt string

var serviceDescriptions = map[model.ServiceName]string{
	model.ServiceOrder:     "orders, products and customers",
	model.ServiceLogistics: "shipments, tracking numbers and delivery status",
	model.ServicePayment:   "transactions, refunds and wallet balances",
	model.ServiceSupport:   "support tickets and complaints",
}

// RenderClassifySystem renders the classifier system prompt through the Eino
// prompt component so prompt callbacks fire.
func RenderClassifySystem(ctx context.Context) (string, error) {
	var svc strings.Builder
	for _, s := range model.AllServices() {
		fmt.Fprintf(&svc, "- %s: %s\n", s, serviceDescriptions[s])
	}
	types := []string{
		string(model.EntityOrderID), string(model.EntityUserID), string(model.EntityProductName),
		string(model.EntityTrackingNumber), string(model.EntityTicketID), string(model.EntityTransactionID),
		string(model.EntityAmount), string(model.EntityDateRange),
	}

	// replace known tokens only; the template's JSON braces must survive
	content := strings.NewReplacer(
		"{services}", strings.TrimRight(svc.String(), "\n"),
		"{entity_types}", strings.Join(types, " | "),
	).Replace(classifySystemPrompt)

	tpl := prompt.FromMessages(
		schema.FString,
		schema.MessagesPlaceholder("system_messages", false),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"system_messages": []*schema.Message{schema.SystemMessage(content)},
	})
	if err != nil {
		return "", fmt.Errorf("classify prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("classify prompt render: empty result")
	}
	return msgs[0].Content, nil
}

// RenderSynthesisSystem renders the synthesis system prompt.
func RenderSynthesisSystem(ctx context.Context, cfg model.SynthesisPromptConfig) (string, error) {
	if cfg.MaxSentences <= 0 {
		cfg.MaxSentences = 4
	}
	if cfg.BusinessName == "" {
		cfg.BusinessName = "the store"
	}
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(synthesisSystemPrompt),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"BusinessName": cfg.BusinessName,
		"MaxSentences": cfg.MaxSentences,
	})
	if err != nil {
		return "", fmt.Errorf("synthesis prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("synthesis prompt render: empty result")
	}
	return msgs[0].Content, nil
}

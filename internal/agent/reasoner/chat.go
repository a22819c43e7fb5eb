package reasoner

import (
	"context"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/orchestrator/pkg/logger"
)

// ChatReasoner drives two chat models: a small one for classification and a
// larger one for synthesis.
type ChatReasoner struct {
	classifier        einomodel.BaseChatModel
	classifierName    string
	classifierTimeout time.Duration
	synth             einomodel.BaseChatModel
	synthName         string
	synthTimeout      time.Duration
	prompt            model.SynthesisPromptConfig
}

// ChatConfig wires the models into a ChatReasoner.
type ChatConfig struct {
	Classifier      einomodel.BaseChatModel
	ClassifierModel model.ClassifierModelConfig
	Synthesizer     einomodel.BaseChatModel
	SynthesisModel  model.SynthesisModelConfig
	Prompt          model.SynthesisPromptConfig
}

func NewChatReasoner(cfg ChatConfig) (*ChatReasoner, error) {
	if cfg.Classifier == nil || cfg.Synthesizer == nil {
		return nil, fmt.Errorf("chat models are not properly initialized")
	}
	return &ChatReasoner{
		classifier:        cfg.Classifier,
		classifierName:    cfg.ClassifierModel.Model,
		classifierTimeout: cfg.ClassifierModel.Timeout,
		synth:             cfg.Synthesizer,
		synthName:         cfg.SynthesisModel.Model,
		synthTimeout:      cfg.SynthesisModel.Timeout,
		prompt:            cfg.Prompt,
	}, nil
}

func (c *ChatReasoner) Mode() string { return ModeModel }

func (c *ChatReasoner) Classify(ctx context.Context, query, history string) (model.Classification, Usage, error) {
	sys, err := RenderClassifySystem(ctx)
	if err != nil {
		return model.Classification{}, Usage{}, err
	}
	user := history
	if strings.TrimSpace(user) == "" {
		user = "<current_message_to_analyze>\nUserMessage(" + query + ")\n</current_message_to_analyze>"
	}

	out, usage, err := c.generate(ctx, c.classifier, c.classifierName, c.classifierTimeout,
		[]*schema.Message{schema.SystemMessage(sys), schema.UserMessage(user)})
	if err != nil {
		return model.Classification{}, usage, fmt.Errorf("classify: %w", err)
	}

	cls, warnings, err := ParseClassification(out.Content)
	if err != nil {
		return model.Classification{}, usage, err
	}
	if len(warnings) > 0 {
		logx.Debug().Strs("parsing_errors", warnings).Msg("classifier output partially discarded")
	}
	return cls, usage, nil
}

func (c *ChatReasoner) Synthesize(ctx context.Context, query, data string) (string, Usage, error) {
	sys, err := RenderSynthesisSystem(ctx, c.prompt)
	if err != nil {
		return "", Usage{}, err
	}
	out, usage, err := c.generate(ctx, c.synth, c.synthName, c.synthTimeout, []*schema.Message{
		schema.SystemMessage(sys),
		schema.UserMessage("Customer question: " + query + "\n\n" + data),
	})
	if err != nil {
		return "", usage, fmt.Errorf("synthesize: %w", err)
	}
	text := strings.TrimSpace(out.Content)
	if text == "" {
		return "", usage, fmt.Errorf("synthesize: empty response")
	}
	return text, usage, nil
}

func (c *ChatReasoner) generate(ctx context.Context, m einomodel.BaseChatModel, name string, timeout time.Duration, in []*schema.Message) (*schema.Message, Usage, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	out, err := m.Generate(ctx, in)
	if err != nil {
		return nil, Usage{Model: name}, err
	}
	if out == nil {
		return nil, Usage{Model: name}, fmt.Errorf("model returned no message")
	}
	return out, usageOf(name, out), nil
}

// usageOf prices the message's token usage; unknown models cost zero.
func usageOf(name string, out *schema.Message) Usage {
	u := Usage{Model: name}
	if out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
		return u
	}
	tu := out.ResponseMeta.Usage
	u.PromptTokens = tu.PromptTokens
	u.CompletionTokens = tu.CompletionTokens
	u.TotalTokens = tu.TotalTokens
	if p, ok := model.ResolvePricing(name); ok {
		_, _, u.CostUSD = model.ComputeCost(tu, p)
	}
	logx.Debug().
		Str("model", name).
		Int("prompt_tokens", u.PromptTokens).
		Int("completion_tokens", u.CompletionTokens).
		Float64("total_cost_usd", u.CostUSD).
		Msg("LLM usage")
	return u
}

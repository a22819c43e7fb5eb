package reasoner

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"google.golang.org/genai"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/orchestrator/pkg/logger"
)

// GeminiConfig holds the configuration for Gemini-backed reasoning.
type GeminiConfig struct {
	APIKey     string
	BaseURL    string
	Classifier model.ClassifierModelConfig
	Synthesis  model.SynthesisModelConfig
	Prompt     model.SynthesisPromptConfig
}

// NewGemini creates the classifier and synthesis chat models on one client.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*ChatReasoner, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	classifier, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       cfg.Classifier.Model,
		Temperature: &cfg.Classifier.Temperature,
		MaxTokens:   &cfg.Classifier.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  genai.Ptr(int32(0)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating classifier model")
		return nil, fmt.Errorf("error creating classifier model: %w", err)
	}

	synth, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       cfg.Synthesis.Model,
		Temperature: &cfg.Synthesis.Temperature,
		MaxTokens:   &cfg.Synthesis.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: true,
			ThinkingBudget:  genai.Ptr(int32(1024)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating synthesis model")
		return nil, fmt.Errorf("error creating synthesis model: %w", err)
	}

	return NewChatReasoner(ChatConfig{
		Classifier:      classifier,
		ClassifierModel: cfg.Classifier,
		Synthesizer:     synth,
		SynthesisModel:  cfg.Synthesis,
		Prompt:          cfg.Prompt,
	})
}

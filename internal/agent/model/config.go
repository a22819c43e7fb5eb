package model

import "time"

// ================ Config ================
type RoutingConfig struct {
	ConfidenceFloor  float64 `envconfig:"ROUTING_CONFIDENCE_FLOOR" default:"0.2"`
	PatternThreshold float64 `envconfig:"ROUTING_PATTERN_THRESHOLD" default:"0.7"`
}

type CacheConfig struct {
	MaxSize int           `envconfig:"CACHE_MAX_SIZE" default:"100"`
	TTL     time.Duration `envconfig:"CACHE_TTL" default:"1h"`
}

type SessionConfig struct {
	TTL         time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	MaxSessions int           `envconfig:"SESSION_MAX" default:"1000"`
}

type ContextConfig struct {
	MaxTokens    int `envconfig:"CONTEXT_MAX_TOKENS" default:"4000"`
	KeepMessages int `envconfig:"CONTEXT_KEEP_MESSAGES" default:"5"`
	MaxEntities  int `envconfig:"CONTEXT_MAX_ENTITIES" default:"20"`
	ViewEntities int `envconfig:"CONTEXT_VIEW_ENTITIES" default:"10"`
	ViewSummary  int `envconfig:"CONTEXT_VIEW_SUMMARIES" default:"3"`
}

type ExecutorConfig struct {
	CallTimeout time.Duration `envconfig:"EXECUTOR_CALL_TIMEOUT" default:"10s"`
}

type RecoveryConfig struct {
	MaxRetries int `envconfig:"RECOVERY_MAX_RETRIES" default:"2"`
}

type ClassifierModelConfig struct {
	Model       string        `envconfig:"CLASSIFIER_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int           `envconfig:"CLASSIFIER_MAX_TOKENS" default:"1024"`
	Temperature float32       `envconfig:"CLASSIFIER_TEMPERATURE" default:"0.1"`
	Timeout     time.Duration `envconfig:"CLASSIFIER_TIMEOUT" default:"15s"`
}

type SynthesisModelConfig struct {
	Model       string        `envconfig:"SYNTHESIS_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int           `envconfig:"SYNTHESIS_MAX_TOKENS" default:"1024"`
	Temperature float32       `envconfig:"SYNTHESIS_TEMPERATURE" default:"0.4"`
	Timeout     time.Duration `envconfig:"SYNTHESIS_TIMEOUT" default:"20s"`
}

type SynthesisPromptConfig struct {
	BusinessName string `envconfig:"PROMPT_BUSINESS_NAME" default:"the store"`
	MaxSentences int    `envconfig:"PROMPT_MAX_SENTENCES" default:"4"`
}

type HistoryConfig struct {
	TTL      string `envconfig:"HISTORY_TTL" default:"24h"`
	MaxTurns int    `envconfig:"HISTORY_MAX_TURNS" default:"50"`
}

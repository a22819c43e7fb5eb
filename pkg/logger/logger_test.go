package logx

import (
	"bytes"
	"testing"

	"github.com/Chative-core-poc-v1/orchestrator/internal/core"
	"github.com/stretchr/testify/assert"
)

func TestInitProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(LoggerOpts{Environment: core.Production, Output: &buf})
	defer Init()

	Debug().Msg("hidden")
	Info().Str("session_id", "s1").Msg("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"session_id":"s1"`)
	assert.Contains(t, out, `"service":"orchestrator"`)
}

func TestInitLevelOverride(t *testing.T) {
	var buf bytes.Buffer
	Init(LoggerOpts{Environment: core.Production, Level: "warn", Output: &buf})
	defer Init()

	Info().Msg("info line")
	Warn().Msg("warn line")

	assert.NotContains(t, buf.String(), "info line")
	assert.Contains(t, buf.String(), "warn line")
}

package observers

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
)

func TestLastUserContent(t *testing.T) {
	msgs := []*schema.Message{
		schema.SystemMessage("sys"),
		schema.UserMessage("  first "),
		nil,
		schema.AssistantMessage("answer", nil),
		schema.UserMessage(" second "),
	}
	assert.Equal(t, "second", lastUserContent(msgs))
	assert.Equal(t, "", lastUserContent(nil))
}

func TestNewAllCallbacks(t *testing.T) {
	assert.NotNil(t, NewAllCallbacks())
	long := make([]byte, maxLoggedContent+10)
	assert.Len(t, clip(string(long)), maxLoggedContent+3)
}

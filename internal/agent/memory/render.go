package memory

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

// Render formats a view plus the current query as the conversation block the
// classifier reads.
func Render(v View, query string) string {
	var b strings.Builder
	b.WriteString("<conversation_context>\n")

	for _, s := range v.Summaries {
		b.WriteString("Summary(intent=" + s.UserIntent)
		if len(s.EntitiesMentioned) > 0 {
			b.WriteString("; entities=" + strings.Join(s.EntitiesMentioned, ","))
		}
		if len(s.ServicesConsulted) > 0 {
			b.WriteString("; services=" + strings.Join(s.ServicesConsulted, ","))
		}
		b.WriteString(")\n")
	}
	for _, e := range v.Entities {
		b.WriteString("Entity(" + string(e.Type) + "=" + e.ID)
		if e.Summary != "" {
			b.WriteString(": " + e.Summary)
		}
		b.WriteString(")\n")
	}
	for _, m := range v.Messages {
		if m.Content == "" {
			continue
		}
		switch m.Role {
		case schema.User:
			b.WriteString("UserMessage(" + m.Content + ")\n")
		case schema.Assistant:
			b.WriteString("AssistantMessage(" + m.Content + ")\n")
		}
	}
	b.WriteString("</conversation_context>")

	if query != "" {
		b.WriteString("\n<current_message_to_analyze>\n")
		b.WriteString("UserMessage(" + query + ")\n")
		b.WriteString("</current_message_to_analyze>")
	}
	return b.String()
}

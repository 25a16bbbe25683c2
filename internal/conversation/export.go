package conversation

import (
	"encoding/json"
	"fmt"
	"strings"

	"ragforge/internal/core"
)

// ExportJSON serializes a conversation and its turns as a single JSON
// document.
func ExportJSON(conv *core.Conversation, turns []Turn) ([]byte, error) {
	return json.MarshalIndent(map[string]any{
		"conversation": conv,
		"turns":        turns,
	}, "", "  ")
}

// ExportMarkdown renders a conversation as a readable transcript.
func ExportMarkdown(conv *core.Conversation, turns []Turn) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", conv.Title)
	for _, t := range turns {
		fmt.Fprintf(&b, "**%s** (%s):\n\n%s\n\n", capitalize(t.Role), t.CreatedAt.Format("2006-01-02 15:04"), t.Content)
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

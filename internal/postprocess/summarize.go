package postprocess

import (
	"context"
	"fmt"

	"ragforge/internal/core"
	"ragforge/internal/ragerr"
	"ragforge/internal/structured"
)

// Snippet is one entry of an LLM summarization response.
type Snippet struct {
	UUID         string `json:"uuid"`
	File         string `json:"file"`
	LineRange    string `json:"lineRange"`
	Content      string `json:"content"`
	WhyRelevant  string `json:"whyRelevant"`
}

// Suggestion is an optional follow-up action surfaced by summarization.
type Suggestion struct {
	Type   string `json:"type"` // search|explore|read
	Target string `json:"target"`
	Reason string `json:"reason"`
}

// SummaryResult is §4.F's LLM summarization output.
type SummaryResult struct {
	Snippets    []Snippet
	Findings    string
	Suggestions []Suggestion
}

var summarizeSchema = []*structured.Field{
	{Name: "snippets", Type: structured.TypeArray, Required: true, Items: &structured.Field{
		Type: structured.TypeObject,
		Properties: []*structured.Field{
			{Name: "uuid", Type: structured.TypeString, Required: true},
			{Name: "file", Type: structured.TypeString, Required: true},
			{Name: "lineRange", Type: structured.TypeString, Required: true},
			{Name: "content", Type: structured.TypeString, Required: true},
			{Name: "whyRelevant", Type: structured.TypeString, Required: true},
		},
	}},
	{Name: "findings", Type: structured.TypeString, Required: true},
	{Name: "suggestions", Type: structured.TypeArray, Items: &structured.Field{
		Type: structured.TypeObject,
		Properties: []*structured.Field{
			{Name: "type", Type: structured.TypeString, Required: true},
			{Name: "target", Type: structured.TypeString, Required: true},
			{Name: "reason", Type: structured.TypeString, Required: true},
		},
	}},
}

// LLMSummarize formats the final limited results into a text block and
// asks the structured executor for a single-iteration summarization,
// per §4.F point (5).
func LLMSummarize(ctx context.Context, completer structured.Completer, results []core.SearchResult) (*SummaryResult, error) {
	block := formatResultsBlock(results)

	res, err := structured.Execute(ctx, completer, structured.Request{
		Input:         map[string]any{"results": block},
		InputFields:   []string{"results"},
		SystemPrompt:  "You summarise code search results for a developer.",
		UserTask:      "Produce concise, cited snippets and an overall findings paragraph.",
		OutputSchema:  summarizeSchema,
		OutputFormat:  structured.FormatJSON,
		MaxIterations: 1,
	})
	if err != nil {
		return nil, err
	}

	findings, _ := res.Output["findings"].(string)
	if findings == "" {
		return nil, ragerr.New(ragerr.GenOutputMalformed, "postprocess.summarize", fmt.Errorf("missing findings"))
	}

	out := &SummaryResult{Findings: findings}
	if raw, ok := res.Output["snippets"].([]any); ok {
		for _, item := range raw {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			out.Snippets = append(out.Snippets, Snippet{
				UUID:        str(m["uuid"]),
				File:        str(m["file"]),
				LineRange:   str(m["lineRange"]),
				Content:     str(m["content"]),
				WhyRelevant: str(m["whyRelevant"]),
			})
		}
	}
	if raw, ok := res.Output["suggestions"].([]any); ok {
		for _, item := range raw {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			out.Suggestions = append(out.Suggestions, Suggestion{
				Type:   str(m["type"]),
				Target: str(m["target"]),
				Reason: str(m["reason"]),
			})
		}
	}
	return out, nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func formatResultsBlock(results []core.SearchResult) string {
	out := ""
	for _, r := range results {
		out += fmt.Sprintf("id=%s type=%s name=%s file=%s score=%.3f\n%s\n\n",
			r.Entity.UUID, r.Entity.Type, r.Entity.Name, r.Entity.FieldString("filePath"),
			r.ScoreOrMinusOne(), r.Entity.FieldString("content"))
	}
	return out
}

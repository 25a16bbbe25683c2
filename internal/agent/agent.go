// Package agent is the 4.I research agent: a single Ask entry point
// that delegates to the structured executor with the tool registry,
// tracks a session log, and appends the exchange to the conversation
// store for later summarization.
package agent

import (
	"context"
	"fmt"
	"time"

	"ragforge/internal/conversation"
	"ragforge/internal/core"
	"ragforge/internal/ragerr"
	"ragforge/internal/structured"
	"ragforge/internal/tools"
)

// Status mirrors the research session's lifecycle.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Confidence is the §3/§4.I confidence enum the agent self-reports on
// every answer. The structured executor's finalize gating keeps
// researching until this reads high (or the iteration cap is hit).
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Answer is Ask's return value.
type Answer struct {
	Answer     string     `json:"answer"`
	Confidence Confidence `json:"confidence"`
	ToolsUsed  []string   `json:"toolsUsed"`
	Iterations int        `json:"iterations"`
	Report     string     `json:"report,omitempty"`
	Status     Status     `json:"status"`
}

var askSchema = []*structured.Field{
	{Name: "answer", Type: structured.TypeString, Required: true},
	{Name: "confidence", Type: structured.TypeString, Required: true, Enum: []string{"high", "medium", "low"}},
}

// Agent wires a completer, a tool registry, and optional conversation
// persistence.
type Agent struct {
	Completer      structured.Completer
	Tools          *tools.Registry
	Conversation   *conversation.Store
	MaxIterations  int
	SystemPrompt   string
}

func New(completer structured.Completer, registry *tools.Registry) *Agent {
	return &Agent{Completer: completer, Tools: registry, MaxIterations: 10, SystemPrompt: defaultSystemPrompt}

}

const defaultSystemPrompt = "You are a research agent answering questions about a codebase using the tools provided. Use query_graph to find relevant entities, read_file to inspect source, and fetch_url for external references. Cite concrete evidence in your answer."

// Ask runs one question through the structured executor's tool loop and,
// when a conversation store is attached, appends the exchange as a turn
// and kicks off the §4.H summarization trigger in the background so the
// rolling thresholds get checked without blocking the answer.
func (a *Agent) Ask(ctx context.Context, conv *core.Conversation, question string, priorContext *conversation.Context) (*Answer, error) {
	input := map[string]any{"question": question}
	// §4.H context ordering: highest-level summaries first, then lower
	// levels, then recent turns — relevantHistory is rendered before
	// recentTurns.
	inputFields := []string{"question"}
	if priorContext != nil {
		input["relevantHistory"] = formatSummaries(priorContext.RelevantSummaries)
		input["recentTurns"] = formatTurns(priorContext.RecentTurns)
		inputFields = append(inputFields, "relevantHistory", "recentTurns")
	}

	req := structured.Request{
		Input:           input,
		InputFields:     inputFields,
		SystemPrompt:    a.SystemPrompt,
		UserTask:        "Answer the question, using tools as needed, then report your answer and confidence. Keep researching until you reach high confidence, unless you run out of iterations.",
		OutputSchema:    askSchema,
		OutputFormat:    structured.FormatJSON,
		MaxIterations:   a.MaxIterations,
		ConfidenceField: "confidence",
	}
	if a.Tools != nil {
		req.Tools = a.Tools.Specs()
		req.ToolExecutor = a.Tools
	}

	res, err := structured.Execute(ctx, a.Completer, req)
	if err != nil {
		return nil, err
	}

	answerText, _ := res.Output["answer"].(string)
	confidence, _ := res.Output["confidence"].(string)
	if answerText == "" {
		return nil, ragerr.New(ragerr.AgentIterationExhausted, "agent.Ask", fmt.Errorf("no answer produced after %d iterations", len(res.Iterations)))
	}

	answer := &Answer{
		Answer:     answerText,
		Confidence: Confidence(confidence),
		ToolsUsed:  toolsUsed(res.Iterations),
		Iterations: len(res.Iterations),
		Status:     StatusCompleted,
	}
	if res.Incomplete {
		answer.Status = StatusFailed
	}

	if a.Conversation != nil && conv != nil {
		if err := a.recordExchange(ctx, conv, question, answer); err != nil {
			return answer, err
		}
	}
	return answer, nil
}

func (a *Agent) recordExchange(ctx context.Context, conv *core.Conversation, question string, answer *Answer) error {
	userTurn := conversation.Turn{UUID: fmt.Sprintf("%s-u-%d", conv.UUID, conv.MessageCount), ConversationID: conv.UUID, Role: "user", Content: question}
	if err := a.Conversation.AppendTurn(ctx, conv, userTurn); err != nil {
		return err
	}
	assistantTurn := conversation.Turn{UUID: fmt.Sprintf("%s-a-%d", conv.UUID, conv.MessageCount), ConversationID: conv.UUID, Role: "assistant", Content: answer.Answer, CreatedAt: time.Now()}
	if err := a.Conversation.AppendTurn(ctx, conv, assistantTurn); err != nil {
		return err
	}

	if a.Completer != nil {
		bgCtx := context.WithoutCancel(ctx)
		go conversation.MaybeSummarize(bgCtx, a.Conversation, a.Completer, conv.UUID)
	}
	return nil
}

func toolsUsed(iterations []structured.IterationRecord) []string {
	seen := map[string]bool{}
	var out []string
	for _, it := range iterations {
		for _, call := range it.ToolCalls {
			if !seen[call.Name] {
				seen[call.Name] = true
				out = append(out, call.Name)
			}
		}
	}
	return out
}

func formatTurns(turns []conversation.Turn) string {
	out := ""
	for _, t := range turns {
		out += fmt.Sprintf("%s: %s\n", t.Role, t.Content)
	}
	return out
}

func formatSummaries(summaries []conversation.ScoredSummary) string {
	out := ""
	for _, s := range summaries {
		out += fmt.Sprintf("- (level %d) %s %s\n", s.Summary.Level, s.Summary.ConversationalParagraph, s.Summary.ActionsParagraph)
	}
	return out
}

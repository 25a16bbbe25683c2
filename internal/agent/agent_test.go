package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragforge/internal/conversation"
	"ragforge/internal/graphstore"
	"ragforge/internal/tools"
)

type fakeCompleter struct {
	responses []string
	calls     int
}

func (f *fakeCompleter) Generate(ctx context.Context, prompt string, requestID string) (string, error) {
	r := f.responses[f.calls]
	if f.calls < len(f.responses)-1 {
		f.calls++
	}
	return r, nil
}

func TestAskReturnsAnswerAndConfidence(t *testing.T) {
	completer := &fakeCompleter{responses: []string{`{"answer":"AuthService validates tokens in validate().","confidence":"high"}`}}
	a := New(completer, nil)

	answer, err := a.Ask(context.Background(), nil, "how does auth work?", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, answer.Status)
	assert.Equal(t, ConfidenceHigh, answer.Confidence)
	assert.Contains(t, answer.Answer, "AuthService")
}

func TestAskRecordsTurnsWhenConversationAttached(t *testing.T) {
	ctx := context.Background()
	store := conversation.NewStore(graphstore.NewMemoryStore())
	conv, err := store.CreateConversation(ctx, "c1", "t", nil)
	require.NoError(t, err)

	completer := &fakeCompleter{responses: []string{`{"answer":"done","confidence":"medium"}`}}
	a := New(completer, nil)
	a.Conversation = store

	_, err = a.Ask(ctx, conv, "question", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, conv.MessageCount)
}

func TestAskWithToolsDispatchesThenAnswers(t *testing.T) {
	registry := tools.NewRegistry(nil)
	registry.Register(tools.Tool{
		Name: "echo",
		InputSchema: nil,
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return "echoed", nil
		},
	})

	completer := &fakeCompleter{responses: []string{
		`{"tool_calls":[{"name":"echo","arguments":{}}]}`,
		`{"answer":"used the echo tool","confidence":"high"}`,
	}}
	a := New(completer, registry)

	answer, err := a.Ask(context.Background(), nil, "q", nil)
	require.NoError(t, err)
	assert.Contains(t, answer.ToolsUsed, "echo")
	assert.Equal(t, "used the echo tool", answer.Answer)
}

func TestReportEditorOperations(t *testing.T) {
	r := NewReportEditor()
	r.Set("Intro", "first draft")
	r.Append("Findings", "auth uses JWT")
	r.Replace("intro", "revised intro")
	r.InsertAfterHeading("findings", "Next Steps", "review refresh tokens")
	r.DeleteSection("intro")

	out := r.Finalize()
	assert.NotContains(t, out, "revised intro")
	assert.Contains(t, out, "Findings")
	assert.Contains(t, out, "Next Steps")
}

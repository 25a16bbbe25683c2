package conversation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragforge/internal/core"
	"ragforge/internal/graphstore"
)

func TestAppendTurnUpdatesCounters(t *testing.T) {
	ctx := context.Background()
	store := NewStore(graphstore.NewMemoryStore())

	conv, err := store.CreateConversation(ctx, "c1", "test convo", nil)
	require.NoError(t, err)

	require.NoError(t, store.AppendTurn(ctx, conv, Turn{UUID: "t1", ConversationID: "c1", Role: "user", Content: "hello"}))
	require.NoError(t, store.AppendTurn(ctx, conv, Turn{UUID: "t2", ConversationID: "c1", Role: "assistant", Content: "hi there"}))

	assert.Equal(t, 2, conv.MessageCount)
	assert.Equal(t, len("hello")+len("hi there"), conv.TotalChars)
}

func TestGetRecentTurnsOrdersAndCaps(t *testing.T) {
	ctx := context.Background()
	store := NewStore(graphstore.NewMemoryStore())
	conv, err := store.CreateConversation(ctx, "c1", "t", nil)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.AppendTurn(ctx, conv, Turn{UUID: string(rune('a' + i)), ConversationID: "c1", Role: "user", Content: "msg"}))
	}

	turns, err := store.GetRecentTurns(ctx, "c1", 2, 0)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, 3, turns[0].Index)
	assert.Equal(t, 4, turns[1].Index)
}

// TestShouldSummarizeScenario3 checks the trigger behind scenario 3:
// either the turn count or the char count since the last summary alone
// crosses the threshold.
func TestShouldSummarizeScenario3(t *testing.T) {
	assert.False(t, ShouldSummarize(1, 100))
	assert.True(t, ShouldSummarize(maxTurnsBeforeSummarize, 100))
	assert.True(t, ShouldSummarize(1, summarizeEveryNChars+100))
}

type fakeSummarizer struct{ response string }

func (f fakeSummarizer) Generate(ctx context.Context, prompt string, requestID string) (string, error) {
	return f.response, nil
}

func TestSummarizeProducesLevel1Summary(t *testing.T) {
	completer := fakeSummarizer{response: `{"conversationalSummary":"the user asked about auth, assistant explained token validation","actionsSummary":"decided to use short-lived tokens"}`}
	summary, err := Summarize(context.Background(), completer, "c1", 1, []string{"t1", "t2"}, "user: ...\nassistant: ...", 0, 42)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Level)
	assert.NotEmpty(t, summary.ConversationalParagraph)
	assert.NotEmpty(t, summary.ActionsParagraph)
	assert.Equal(t, 0, summary.RangeStart)
	assert.Equal(t, 42, summary.RangeEnd)
	assert.Equal(t, []string{"t1", "t2"}, summary.SourceTurnIDs)
}

func TestPromoteIfNeededSkipsBelowThreshold(t *testing.T) {
	ctx := context.Background()
	store := NewStore(graphstore.NewMemoryStore())
	require.NoError(t, store.AppendSummary(ctx, Summary{UUID: "s1", ConversationID: "c1", Level: 1, ConversationalParagraph: "short", RangeStart: 0, RangeEnd: 5}))
	require.NoError(t, store.AppendSummary(ctx, Summary{UUID: "s2", ConversationID: "c1", Level: 1, ConversationalParagraph: "also short", RangeStart: 5, RangeEnd: 10}))

	completer := fakeSummarizer{response: `{"conversationalSummary":"x","actionsSummary":"y"}`}
	require.NoError(t, PromoteIfNeeded(ctx, store, completer, "c1"))

	level2, err := store.GetSummaries(ctx, "c1", 2)
	require.NoError(t, err)
	assert.Empty(t, level2, "short level-1 content should not trigger promotion")
}

// TestPromoteIfNeededExcludesMostRecentSameLevelSummary covers scenario
// 3's promotion rule: the newest level-1 summary is held back even once
// the threshold is crossed by the rest.
func TestPromoteIfNeededExcludesMostRecentSameLevelSummary(t *testing.T) {
	ctx := context.Background()
	store := NewStore(graphstore.NewMemoryStore())
	big := make([]byte, maxCharsBeforeSummarizeSummaries)
	for i := range big {
		big[i] = 'x'
	}
	require.NoError(t, store.AppendSummary(ctx, Summary{UUID: "s1", ConversationID: "c1", Level: 1, ConversationalParagraph: string(big), RangeStart: 0, RangeEnd: 1000}))
	require.NoError(t, store.AppendSummary(ctx, Summary{UUID: "s2", ConversationID: "c1", Level: 1, ConversationalParagraph: "newest", RangeStart: 1000, RangeEnd: 1100}))

	completer := fakeSummarizer{response: `{"conversationalSummary":"combined","actionsSummary":"combined actions"}`}
	require.NoError(t, PromoteIfNeeded(ctx, store, completer, "c1"))

	level2, err := store.GetSummaries(ctx, "c1", 2)
	require.NoError(t, err)
	require.Len(t, level2, 1)
	assert.Equal(t, []string{"s1"}, level2[0].SourceSummaryIDs, "the most recent level-1 summary (s2) must not be promoted")
	assert.Equal(t, 0, level2[0].RangeStart)
	assert.Equal(t, 1000, level2[0].RangeEnd, "promoted range is the union of only the promoted summaries' ranges")
}

func TestMaybeSummarizeLevel1HoldsBackRecentTurns(t *testing.T) {
	ctx := context.Background()
	store := NewStore(graphstore.NewMemoryStore())
	conv, err := store.CreateConversation(ctx, "c1", "t", nil)
	require.NoError(t, err)

	big := make([]byte, summarizeEveryNChars/maxTurnsBeforeSummarize+1)
	for i := range big {
		big[i] = 'x'
	}
	for i := 0; i < maxTurnsBeforeSummarize+keepLastUnsummarizedTurns; i++ {
		require.NoError(t, store.AppendTurn(ctx, conv, Turn{UUID: string(rune('a' + i)), ConversationID: "c1", Role: "user", Content: string(big)}))
	}

	completer := fakeSummarizer{response: `{"conversationalSummary":"covered","actionsSummary":"actions"}`}
	MaybeSummarize(ctx, store, completer, "c1")

	level1, err := store.GetSummaries(ctx, "c1", 1)
	require.NoError(t, err)
	require.Len(t, level1, 1)
	assert.Len(t, level1[0].SourceTurnIDs, maxTurnsBeforeSummarize, "must hold back the last keepLastUnsummarizedTurns turns")
}

func TestExportMarkdownIncludesTitleAndTurns(t *testing.T) {
	conv := &core.Conversation{Title: "My Convo"}
	turns := []Turn{{Role: "user", Content: "hi"}}
	out := ExportMarkdown(conv, turns)
	assert.Contains(t, out, "My Convo")
	assert.Contains(t, out, "hi")
}

package conversation

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragforge/internal/graphstore"
)

type fixedEmbedder struct{ vector []float32 }

func (f fixedEmbedder) Embed(ctx context.Context, text string, indexName string) ([]float32, error) {
	return f.vector, nil
}
func (f fixedEmbedder) EmbedBatch(ctx context.Context, texts []string, indexName string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

func TestBuildContextReturnsRecentTurnsAndSummaries(t *testing.T) {
	ctx := context.Background()
	graph := graphstore.NewMemoryStore()
	store := NewStore(graph)

	conv, err := store.CreateConversation(ctx, "c1", "t", nil)
	require.NoError(t, err)
	require.NoError(t, store.AppendTurn(ctx, conv, Turn{UUID: "t1", ConversationID: "c1", Role: "user", Content: "question about auth"}))

	summary := Summary{UUID: "s1", ConversationID: "c1", Level: 1, ConversationalParagraph: "earlier discussion of auth flow", CreatedAt: time.Now()}
	require.NoError(t, store.AppendSummary(ctx, summary))
	require.NoError(t, graph.UpsertEmbedding(ctx, "summaries", "s1", []float32{1, 0, 0}))

	embedder := fixedEmbedder{vector: []float32{1, 0, 0}}
	got, err := BuildContext(ctx, store, embedder, "c1", "summaries", "auth flow", 10, 0, 5, time.Now())
	require.NoError(t, err)
	require.Len(t, got.RecentTurns, 1)
	require.Len(t, got.RelevantSummaries, 1)
	assert.Equal(t, "s1", got.RelevantSummaries[0].Summary.UUID)
	assert.Greater(t, got.RelevantSummaries[0].Score, 0.0)
}

func TestLevelBoostAndDecayWeighting(t *testing.T) {
	assert.InDelta(t, 1.0, levelBoost[1], 1e-9)
	assert.InDelta(t, 1.1, levelBoost[2], 1e-9)
	assert.InDelta(t, 1.2, levelBoost[3], 1e-9)

	now := time.Now()
	fresh := Summary{Level: 1, CreatedAt: now}
	aWeekOld := Summary{Level: 1, CreatedAt: now.Add(-time.Duration(decayDays) * 24 * time.Hour)}

	freshDecay := math.Exp(-now.Sub(fresh.CreatedAt).Hours() / 24 / decayDays)
	weekDecay := math.Exp(-now.Sub(aWeekOld.CreatedAt).Hours() / 24 / decayDays)
	assert.InDelta(t, 1.0, freshDecay, 1e-9)
	assert.InDelta(t, 1.0/math.E, weekDecay, 1e-6)
}

package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragforge/internal/core"
	"ragforge/internal/graphstore"
)

type fakeEmbedder struct {
	vector []float32
}

func (f fakeEmbedder) Embed(ctx context.Context, text string, indexName string) ([]float32, error) {
	return f.vector, nil
}

func (f fakeEmbedder) EmbedBatch(ctx context.Context, texts []string, indexName string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

// TestSemanticThenFilterMerges is scenario 1: a Semantic operation
// immediately followed by a Filter normalises into a single vector
// query carrying the filter's field constraints, rather than a second
// store round trip.
func TestSemanticThenFilterMerges(t *testing.T) {
	store := graphstore.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.UpsertEntity(ctx, core.Entity{
		UUID: "1", Type: "Function", Name: "a", Fields: map[string]any{"language": "go"},
	}))
	require.NoError(t, store.UpsertEntity(ctx, core.Entity{
		UUID: "2", Type: "Function", Name: "b", Fields: map[string]any{"language": "python"},
	}))
	require.NoError(t, store.UpsertEmbedding(ctx, "code", "1", []float32{1, 0, 0}))
	require.NoError(t, store.UpsertEmbedding(ctx, "code", "2", []float32{1, 0, 0}))

	p := Pipeline{Operations: []Operation{
		{Kind: OpSemantic, IndexName: "code", TopK: 10},
		{Kind: OpFilter, FieldFilters: map[string]any{"language": "go"}},
	}}
	normalised := normalise(p.Operations)
	require.Len(t, normalised, 1, "semantic+filter should merge into one operation")
	assert.Equal(t, OpSemantic, normalised[0].Kind)
	assert.Equal(t, "go", normalised[0].FieldFilters["language"])

	deps := Deps{Store: store, Embedder: fakeEmbedder{vector: []float32{1, 0, 0}}}
	out, err := Execute(ctx, deps, p)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "1", out[0].Entity.UUID)
}

func TestExecuteSortsNullScoresLast(t *testing.T) {
	store := graphstore.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.UpsertEntity(ctx, core.Entity{UUID: "seed", Name: "seed"}))
	require.NoError(t, store.UpsertEntity(ctx, core.Entity{UUID: "callee", Name: "callee"}))
	store.AddRelationship(core.Relationship{From: "seed", To: "callee", Type: "CALLS"})

	p := Pipeline{Operations: []Operation{
		{Kind: OpFetch, FetchByUUID: []string{"seed"}},
		{Kind: OpExpand, RelationshipType: "CALLS", Direction: "outgoing"},
	}}
	deps := Deps{Store: store}
	out, err := Execute(ctx, deps, p)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "seed", out[0].Entity.UUID)
	assert.NotNil(t, out[0].Score)
	assert.Equal(t, "callee", out[1].Entity.UUID)
	assert.Nil(t, out[1].Score)
}

func TestExecuteAppliesOffsetAndLimit(t *testing.T) {
	store := graphstore.NewMemoryStore()
	ctx := context.Background()
	for _, uuid := range []string{"1", "2", "3"} {
		require.NoError(t, store.UpsertEntity(ctx, core.Entity{UUID: uuid, Type: "Function", Name: uuid}))
	}

	p := Pipeline{
		Operations: []Operation{{Kind: OpFetch, FetchEntityType: "Function"}},
		Offset:     1,
		Limit:      1,
	}
	out, err := Execute(ctx, Deps{Store: store}, p)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestBuilderProducesEquivalentPipeline(t *testing.T) {
	p := New().Semantic("code", "login", 5).Filter(map[string]any{"language": "go"}).Paginate(0, 10).Build()
	require.Len(t, p.Operations, 2)
	assert.Equal(t, OpSemantic, p.Operations[0].Kind)
	assert.Equal(t, OpFilter, p.Operations[1].Kind)
	assert.Equal(t, 10, p.Limit)
}

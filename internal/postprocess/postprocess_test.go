package postprocess

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragforge/internal/core"
	"ragforge/internal/graphstore"
)

func TestRunAppliesStepsInFixedOrder(t *testing.T) {
	ctx := context.Background()
	store := graphstore.NewMemoryStore()
	require.NoError(t, store.UpsertEntity(ctx, core.Entity{UUID: "1", Type: "Function", Name: "loginUser"}))
	require.NoError(t, store.UpsertEntity(ctx, core.Entity{UUID: "2", Type: "Function", Name: "AuthService"}))

	results := []core.SearchResult{
		{Entity: core.Entity{UUID: "1", Name: "loginUser"}, Score: core.Float64Ptr(0.70)},
		{Entity: core.Entity{UUID: "2", Name: "AuthService"}, Score: core.Float64Ptr(0.60)},
	}

	out, err := Run(ctx, store, summarizeFakeCompleter{}, results, Config{
		Keyword: &KeywordBoostOptions{Keywords: []string{"AuthService"}, BoostWeight: 0.15, MinSimilarity: 0.6},
		Limit:   1,
	})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "AuthService", out.Results[0].Entity.Name, "boosted entry should win before the limit is applied")
}

func TestRunWithoutOptionalStepsPassesThrough(t *testing.T) {
	ctx := context.Background()
	results := []core.SearchResult{{Entity: core.Entity{UUID: "1", Name: "x"}, Score: core.Float64Ptr(0.5)}}

	out, err := Run(ctx, graphstore.NewMemoryStore(), summarizeFakeCompleter{}, results, Config{})
	require.NoError(t, err)
	assert.Equal(t, results, out.Results)
	assert.Nil(t, out.Graph)
	assert.Nil(t, out.Summary)
}

func TestRunExploreAttachesGraph(t *testing.T) {
	ctx := context.Background()
	store := graphstore.NewMemoryStore()
	require.NoError(t, store.UpsertEntity(ctx, core.Entity{UUID: "1", Name: "seed"}))
	require.NoError(t, store.UpsertEntity(ctx, core.Entity{UUID: "2", Name: "callee"}))
	store.AddRelationship(core.Relationship{From: "1", To: "2", Type: "CALLS"})

	results := []core.SearchResult{{Entity: core.Entity{UUID: "1", Name: "seed"}, Score: core.Float64Ptr(1.0)}}
	out, err := Run(ctx, store, summarizeFakeCompleter{}, results, Config{
		Explore: &ExploreOptions{RelationshipType: "CALLS", Depth: 1},
	})
	require.NoError(t, err)
	require.NotNil(t, out.Graph)
	assert.Len(t, out.Graph.Nodes, 2)
}

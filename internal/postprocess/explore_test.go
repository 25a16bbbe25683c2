package postprocess

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragforge/internal/core"
	"ragforge/internal/graphstore"
)

// TestExploreDeterminism is literal scenario 6 from the spec: a seed
// with 20 outgoing edges, depth=2, maxRelationshipsPerNode=5, expects
// <= 1 + 5 + 5*5 = 31 distinct nodes, seed first, no score on discovered
// nodes.
func TestExploreDeterminism(t *testing.T) {
	ctx := context.Background()
	store := graphstore.NewMemoryStore()

	require.NoError(t, store.UpsertEntity(ctx, core.Entity{UUID: "seed", Type: "Scope", Name: "seed"}))
	for i := 0; i < 20; i++ {
		uuid := fmt.Sprintf("child-%d", i)
		require.NoError(t, store.UpsertEntity(ctx, core.Entity{UUID: uuid, Type: "Scope", Name: uuid}))
		store.AddRelationship(core.Relationship{From: "seed", To: uuid, Type: "CALLS"})
	}
	// Give the first 5 children their own children to exercise depth=2.
	for i := 0; i < 5; i++ {
		parent := fmt.Sprintf("child-%d", i)
		for j := 0; j < 10; j++ {
			uuid := fmt.Sprintf("grandchild-%d-%d", i, j)
			require.NoError(t, store.UpsertEntity(ctx, core.Entity{UUID: uuid, Type: "Scope", Name: uuid}))
			store.AddRelationship(core.Relationship{From: parent, To: uuid, Type: "CALLS"})
		}
	}

	seeds := []core.SearchResult{{Entity: core.Entity{UUID: "seed", Name: "seed"}, Score: core.Float64Ptr(1.0), IsSearchResult: true}}

	graph, err := Explore(ctx, store, seeds, ExploreOptions{
		RelationshipType:        "CALLS",
		Depth:                   2,
		MaxRelationshipsPerNode: 5,
	})
	require.NoError(t, err)

	assert.LessOrEqual(t, len(graph.Nodes), 31)
	assert.Equal(t, "seed", graph.Nodes[0].Entity.UUID)
	for _, n := range graph.Nodes[1:] {
		assert.Nil(t, n.Score)
	}

	seen := map[string]bool{}
	for _, e := range graph.Edges {
		assert.False(t, seen[e.Key()], "duplicate edge %v", e)
		seen[e.Key()] = true
	}
}

func TestExploreEmptySeedsYieldsEmptyGraph(t *testing.T) {
	graph, err := Explore(context.Background(), graphstore.NewMemoryStore(), nil, ExploreOptions{})
	require.NoError(t, err)
	assert.Empty(t, graph.Nodes)
	assert.Empty(t, graph.Edges)
}

func TestExploreDepthClamped(t *testing.T) {
	assert.Equal(t, 1, clampDepth(0))
	assert.Equal(t, 1, clampDepth(-5))
	assert.Equal(t, 3, clampDepth(10))
	assert.Equal(t, 2, clampDepth(2))
}

package graphstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragforge/internal/core"
	"ragforge/internal/ragerr"
)

func TestMemoryStoreUpsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	e := core.Entity{UUID: "u1", Type: "Scope", Name: "AuthService", Fields: map[string]any{"filePath": "a.go"}}
	require.NoError(t, s.UpsertEntity(ctx, e))

	got, ok, err := s.GetEntity(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "AuthService", got.Name)
}

func TestMemoryStoreQueryVectorIndexMissing(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.QueryVectorIndex(context.Background(), "absent", 5, []float32{1, 0}, VectorQueryOptions{})
	assert.True(t, ragerr.Is(err, ragerr.IndexMissing))
}

func TestMemoryStoreQueryVectorIndexOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for i, uuid := range []string{"a", "b", "c"} {
		require.NoError(t, s.UpsertEntity(ctx, core.Entity{UUID: uuid, Type: "Scope", Name: uuid}))
		vec := []float32{float32(i), 1}
		require.NoError(t, s.UpsertEmbedding(ctx, "idx", uuid, vec))
	}

	matches, err := s.QueryVectorIndex(ctx, "idx", 10, []float32{2, 1}, VectorQueryOptions{MinScore: -1})
	require.NoError(t, err)
	require.Len(t, matches, 3)
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
	}
}

func TestMemoryStoreTopKZeroYieldsEmpty(t *testing.T) {
	s := NewMemoryStore()
	matches, err := s.QueryVectorIndex(context.Background(), "idx", 0, []float32{1}, VectorQueryOptions{})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMemoryStoreDeleteEntityRemovesEdges(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.UpsertEntity(ctx, core.Entity{UUID: "a", Type: "Scope"}))
	require.NoError(t, s.UpsertEntity(ctx, core.Entity{UUID: "b", Type: "Scope"}))
	s.AddRelationship(core.Relationship{From: "a", To: "b", Type: "CALLS"})

	require.NoError(t, s.DeleteEntity(ctx, "a"))

	rels, err := s.Relationships(ctx, "b", "CALLS", "incoming", 10)
	require.NoError(t, err)
	assert.Empty(t, rels)
}

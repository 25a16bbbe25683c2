package ingestion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragforge/internal/core"
	"ragforge/internal/graphstore"
)

func TestEntityUUIDIsDeterministic(t *testing.T) {
	a := EntityUUID("Function", "pkg/auth.go:Validate")
	b := EntityUUID("Function", "pkg/auth.go:Validate")
	assert.Equal(t, a, b)

	c := EntityUUID("Function", "pkg/auth.go:Other")
	assert.NotEqual(t, a, c)
}

func TestContentHashChangesWithContent(t *testing.T) {
	h1 := ContentHash("func Validate() {}")
	h2 := ContentHash("func Validate() { return nil }")
	assert.NotEqual(t, h1, h2)
	assert.Equal(t, h1, ContentHash("func Validate() {}"))
}

func TestDetectClassifiesNewChangedUnchanged(t *testing.T) {
	ctx := context.Background()
	store := graphstore.NewMemoryStore()

	existingUUID := EntityUUID("Function", "a")
	require.NoError(t, store.UpsertEntity(ctx, core.Entity{
		UUID: existingUUID, Type: "Function", Fields: map[string]any{"contentHash": ContentHash("old")},
	}))

	changedUUID := existingUUID
	newUUID := EntityUUID("Function", "b")

	candidates := []CandidateEntity{
		{Entity: core.Entity{UUID: changedUUID, Type: "Function"}, ContentHash: ContentHash("new")},
		{Entity: core.Entity{UUID: newUUID, Type: "Function"}, ContentHash: ContentHash("brand new")},
	}

	set, err := Detect(ctx, store, candidates)
	require.NoError(t, err)
	assert.Equal(t, []string{newUUID}, set.New)
	assert.Equal(t, []string{changedUUID}, set.Changed)
	assert.Empty(t, set.Unchanged)
}

func TestEmitOnlyWritesDirtyEntities(t *testing.T) {
	ctx := context.Background()
	store := graphstore.NewMemoryStore()

	unchangedUUID := EntityUUID("Function", "stable")
	require.NoError(t, store.UpsertEntity(ctx, core.Entity{
		UUID: unchangedUUID, Type: "Function", Name: "original",
		Fields: map[string]any{"contentHash": ContentHash("same")},
	}))
	newUUID := EntityUUID("Function", "fresh")

	candidates := []CandidateEntity{
		{Entity: core.Entity{UUID: unchangedUUID, Type: "Function", Name: "should-not-overwrite"}, ContentHash: ContentHash("same")},
		{Entity: core.Entity{UUID: newUUID, Type: "Function", Name: "new-fn"}, ContentHash: ContentHash("new content")},
	}
	set := ChangeSet{New: []string{newUUID}}

	require.NoError(t, Emit(ctx, store, candidates, nil, set))

	unchanged, ok, err := store.GetEntity(ctx, unchangedUUID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "original", unchanged.Name, "unchanged entity must not be rewritten")

	fresh, ok, err := store.GetEntity(ctx, newUUID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new-fn", fresh.Name)
}

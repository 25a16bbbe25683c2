package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragforge/internal/core"
)

// TestKeywordBoostMonotonicity is literal scenario 2 from the spec.
func TestKeywordBoostMonotonicity(t *testing.T) {
	results := []core.SearchResult{
		{Entity: core.Entity{UUID: "1", Name: "AuthService"}, Score: core.Float64Ptr(0.60)},
		{Entity: core.Entity{UUID: "2", Name: "authValidate"}, Score: core.Float64Ptr(0.55)},
		{Entity: core.Entity{UUID: "3", Name: "loginUser"}, Score: core.Float64Ptr(0.80)},
	}

	out := KeywordBoost(results, KeywordBoostOptions{
		Keywords:      []string{"AuthService"},
		BoostWeight:   0.15,
		MinSimilarity: 0.6,
	})

	require.Len(t, out, 3)
	assert.Equal(t, "loginUser", out[0].Entity.Name)
	assert.InDelta(t, 0.80, *out[0].Score, 1e-9)

	assert.Equal(t, "AuthService", out[1].Entity.Name)
	assert.InDelta(t, 0.75, *out[1].Score, 1e-9)

	assert.Equal(t, "authValidate", out[2].Entity.Name)
	assert.InDelta(t, 0.55, *out[2].Score, 1e-9)
}

func TestKeywordBoostEmptyKeywordsNoOp(t *testing.T) {
	results := []core.SearchResult{{Entity: core.Entity{UUID: "1", Name: "X"}, Score: core.Float64Ptr(0.5)}}
	out := KeywordBoost(results, KeywordBoostOptions{})
	assert.Equal(t, results, out)
}

func TestKeywordBoostNeverExceedsWeight(t *testing.T) {
	// Invariant from §8: for boostWeight <= 0.3 and minSimilarity >= 0.5,
	// no boost exceeds boostWeight.
	results := []core.SearchResult{{Entity: core.Entity{UUID: "1", Name: "ExactMatchHere"}, Score: core.Float64Ptr(0.1)}}
	out := KeywordBoost(results, KeywordBoostOptions{
		Keywords:      []string{"ExactMatchHere"},
		BoostWeight:   0.3,
		MinSimilarity: 0.5,
	})
	require.NotNil(t, out[0].KeywordBoost)
	assert.LessOrEqual(t, out[0].KeywordBoost.Boost, 0.3)
}

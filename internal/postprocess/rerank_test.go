package postprocess

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragforge/internal/core"
	"ragforge/internal/structured"
)

// rerankFakeCompleter always returns a fixed judgement for whatever
// UUIDs appear in the candidates block it's given.
type rerankFakeCompleter struct {
	scores map[string]float64
}

func (f rerankFakeCompleter) Generate(ctx context.Context, prompt string, requestID string) (string, error) {
	out := `{"judgements":[`
	first := true
	for uuid, score := range f.scores {
		if !first {
			out += ","
		}
		first = false
		out += `{"uuid":"` + uuid + `","score":` + floatStr(score) + `}`
	}
	out += `]}`
	return out, nil
}

func floatStr(f float64) string {
	if f == 1 {
		return "1.0"
	}
	if f == 0 {
		return "0.0"
	}
	return "0.5"
}

func TestLLMRerankWeightedMerge(t *testing.T) {
	completer := rerankFakeCompleter{scores: map[string]float64{"a": 1.0, "b": 0.0}}
	results := []core.SearchResult{
		{Entity: core.Entity{UUID: "a", Name: "a"}, Score: core.Float64Ptr(0.5)},
		{Entity: core.Entity{UUID: "b", Name: "b"}, Score: core.Float64Ptr(0.5)},
	}

	out, err := LLMRerank(context.Background(), completer, results, RerankOptions{
		Weights:      [2]float64{0.3, 0.7},
		ScoreMerging: MergeWeighted,
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Entity.UUID)
	assert.InDelta(t, 0.3*0.5+0.7*1.0, *out[0].Score, 1e-9)
	assert.Equal(t, "b", out[1].Entity.UUID)
	assert.InDelta(t, 0.3*0.5+0.7*0.0, *out[1].Score, 1e-9)
}

func TestLLMRerankMergedScoreStaysInUnitRange(t *testing.T) {
	// §8 invariant: for weights summing to 1 and both inputs in [0,1],
	// merged score is in [0,1].
	completer := rerankFakeCompleter{scores: map[string]float64{"a": 1.0}}
	results := []core.SearchResult{{Entity: core.Entity{UUID: "a", Name: "a"}, Score: core.Float64Ptr(1.0)}}

	out, err := LLMRerank(context.Background(), completer, results, RerankOptions{
		Weights:      [2]float64{0.3, 0.7},
		ScoreMerging: MergeWeighted,
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.GreaterOrEqual(t, *out[0].Score, 0.0)
	assert.LessOrEqual(t, *out[0].Score, 1.0)
}

func TestLLMRerankEmptyResultsNoOp(t *testing.T) {
	out, err := LLMRerank(context.Background(), rerankFakeCompleter{}, nil, RerankOptions{})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestLLMRerankTopKTruncates(t *testing.T) {
	completer := rerankFakeCompleter{scores: map[string]float64{"a": 1.0, "b": 1.0, "c": 1.0}}
	results := []core.SearchResult{
		{Entity: core.Entity{UUID: "a", Name: "a"}, Score: core.Float64Ptr(0.9)},
		{Entity: core.Entity{UUID: "b", Name: "b"}, Score: core.Float64Ptr(0.8)},
		{Entity: core.Entity{UUID: "c", Name: "c"}, Score: core.Float64Ptr(0.7)},
	}

	out, err := LLMRerank(context.Background(), completer, results, RerankOptions{TopK: 2})
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

var _ structured.Completer = rerankFakeCompleter{}

package postprocess

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"ragforge/internal/core"
	"ragforge/internal/ragerr"
	"ragforge/internal/structured"
)

// ScoreMerging selects how a batch's LLM score combines with the
// existing vector score, per §4.E.
type ScoreMerging string

const (
	MergeWeighted      ScoreMerging = "weighted"
	MergeMultiplicative ScoreMerging = "multiplicative"
	MergeLLMOverride    ScoreMerging = "llm-override"
)

// RerankOptions configures §4.F's LLM rerank pass.
type RerankOptions struct {
	Weights      [2]float64 // (vector, llm), default (0.3, 0.7)
	BatchSize    int        // default 100
	Parallel     int        // default 5
	ScoreMerging ScoreMerging
	MinScore     float64
	TopK         int
}

func (o RerankOptions) withDefaults() RerankOptions {
	if o.Weights == [2]float64{} {
		o.Weights = [2]float64{0.3, 0.7}
	}
	if o.BatchSize == 0 {
		o.BatchSize = 100
	}
	if o.Parallel == 0 {
		o.Parallel = 5
	}
	if o.ScoreMerging == "" {
		o.ScoreMerging = MergeWeighted
	}
	return o
}

type rerankJudgement struct {
	UUID      string
	Score     float64
	Reasoning string
}

// LLMRerank batches results into chunks of BatchSize, running up to
// Parallel concurrent structured-executor calls, merges scores per the
// configured policy, re-sorts, applies MinScore then TopK. A non-fatal
// failure (a single batch call failing) leaves that batch's working
// scores untouched rather than aborting the whole rerank, per §4.E's
// error surface rule.
func LLMRerank(ctx context.Context, completer structured.Completer, results []core.SearchResult, opts RerankOptions) ([]core.SearchResult, error) {
	if len(results) == 0 {
		return results, nil
	}
	opts = opts.withDefaults()

	batches := chunk(results, opts.BatchSize)
	judged := make([][]rerankJudgement, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Parallel)
	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			js, err := judgeBatch(gctx, completer, batch)
			if err != nil {
				// Non-fatal: leave this batch unjudged, preserving
				// its current scores.
				judged[i] = nil
				return nil
			}
			judged[i] = js
			return nil
		})
	}
	_ = g.Wait() // judgeBatch never returns a hard error from this loop; kept for future fatal cases

	byUUID := map[string]rerankJudgement{}
	for _, js := range judged {
		for _, j := range js {
			byUUID[j.UUID] = j
		}
	}

	meanVec := meanVectorScore(results)

	out := make([]core.SearchResult, len(results))
	copy(out, results)
	for i := range out {
		j, ok := byUUID[out[i].Entity.UUID]
		if !ok {
			continue
		}
		vecScore := out[i].ScoreOrMinusOne()
		if out[i].Score == nil {
			vecScore = meanVec
		}
		merged := mergeScore(vecScore, j.Score, opts)
		out[i].Score = core.Float64Ptr(merged)
		out[i].ScoreBreakdown = &core.ScoreBreakdown{
			Vector:   core.Float64Ptr(vecScore),
			LLM:      core.Float64Ptr(j.Score),
			Strategy: string(opts.ScoreMerging),
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].ScoreOrMinusOne() > out[j].ScoreOrMinusOne() })

	if opts.MinScore > 0 {
		out = filterMinScore(out, opts.MinScore)
	}
	if opts.TopK > 0 && len(out) > opts.TopK {
		out = out[:opts.TopK]
	}
	return out, nil
}

func mergeScore(vec, llm float64, opts RerankOptions) float64 {
	switch opts.ScoreMerging {
	case MergeMultiplicative:
		return vec * llm
	case MergeLLMOverride:
		return llm
	default:
		return opts.Weights[0]*vec + opts.Weights[1]*llm
	}
}

func meanVectorScore(results []core.SearchResult) float64 {
	var sum float64
	var n int
	for _, r := range results {
		if r.Score != nil {
			sum += *r.Score
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func filterMinScore(results []core.SearchResult, minScore float64) []core.SearchResult {
	out := results[:0]
	for _, r := range results {
		if r.ScoreOrMinusOne() >= minScore {
			out = append(out, r)
		}
	}
	return out
}

func chunk(results []core.SearchResult, size int) [][]core.SearchResult {
	var out [][]core.SearchResult
	for i := 0; i < len(results); i += size {
		end := i + size
		if end > len(results) {
			end = len(results)
		}
		out = append(out, results[i:end])
	}
	return out
}

var rerankSchema = []*structured.Field{
	{Name: "judgements", Type: structured.TypeArray, Required: true, Items: &structured.Field{
		Type: structured.TypeObject,
		Properties: []*structured.Field{
			{Name: "uuid", Type: structured.TypeString, Required: true},
			{Name: "score", Type: structured.TypeNumber, Required: true},
			{Name: "reasoning", Type: structured.TypeString},
		},
	}},
}

func judgeBatch(ctx context.Context, completer structured.Completer, batch []core.SearchResult) ([]rerankJudgement, error) {
	input := map[string]any{"candidates": formatCandidates(batch)}

	res, err := structured.Execute(ctx, completer, structured.Request{
		Input:         input,
		InputFields:   []string{"candidates"},
		SystemPrompt:  "You are a precise relevance judge for code search results.",
		UserTask:      "Score each candidate's relevance to the query from 0.0 to 1.0.",
		OutputSchema:  rerankSchema,
		OutputFormat:  structured.FormatJSON,
		MaxIterations: 1,
	})
	if err != nil {
		return nil, err
	}

	raw, ok := res.Output["judgements"].([]any)
	if !ok {
		return nil, ragerr.New(ragerr.GenOutputMalformed, "postprocess.rerank", fmt.Errorf("missing judgements array"))
	}

	out := make([]rerankJudgement, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		uuid, _ := m["uuid"].(string)
		score, _ := m["score"].(float64)
		reasoning, _ := m["reasoning"].(string)
		if uuid == "" {
			continue
		}
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		out = append(out, rerankJudgement{UUID: uuid, Score: score, Reasoning: reasoning})
	}
	return out, nil
}

func formatCandidates(batch []core.SearchResult) []map[string]any {
	out := make([]map[string]any, len(batch))
	for i, r := range batch {
		out[i] = map[string]any{
			"uuid": r.Entity.UUID,
			"type": r.Entity.Type,
			"name": r.Entity.Name,
		}
	}
	return out
}

package conversation

import (
	"context"
	"math"
	"sort"
	"time"

	"ragforge/internal/embedding"
	"ragforge/internal/graphstore"
)

// ScoredSummary pairs a summary with its decayed, level-boosted
// relevance score for a particular query.
type ScoredSummary struct {
	Summary Summary
	Score   float64
}

// Context is the dual-context bundle handed to the agent's prompt: the
// most recent turns verbatim, plus the highest-scoring summaries found
// via semantic search over the summary index.
type Context struct {
	RecentTurns      []Turn
	RelevantSummaries []ScoredSummary
}

// BuildContext assembles §4.H's dual-context retrieval: recent turns
// capped by count/chars, and a RAG pass over summaries boosted by
// level ({1:1.0, 2:1.1, 3:1.2}) and decayed by age
// (exp(-ageDays/decayDays), decayDays=7).
func BuildContext(ctx context.Context, store *Store, embedder embedding.Provider, conversationID, summaryIndexName, query string, maxTurns, maxChars, topSummaries int, now time.Time) (*Context, error) {
	recent, err := store.GetRecentTurns(ctx, conversationID, maxTurns, maxChars)
	if err != nil {
		return nil, err
	}

	var relevant []ScoredSummary
	if query != "" && topSummaries > 0 {
		relevant, err = searchSummaries(ctx, store, embedder, conversationID, summaryIndexName, query, topSummaries, now)
		if err != nil {
			return nil, err
		}
	}

	return &Context{RecentTurns: recent, RelevantSummaries: relevant}, nil
}

func searchSummaries(ctx context.Context, store *Store, embedder embedding.Provider, conversationID, indexName, query string, topK int, now time.Time) ([]ScoredSummary, error) {
	vector, err := embedder.Embed(ctx, query, indexName)
	if err != nil {
		return nil, err
	}

	var all []ScoredSummary
	for level := 1; level <= summaryLevels; level++ {
		summaries, err := store.GetSummaries(ctx, conversationID, level)
		if err != nil {
			return nil, err
		}
		for _, s := range summaries {
			all = append(all, ScoredSummary{Summary: s, Score: 0})
		}
	}

	matches, err := store.graph.QueryVectorIndex(ctx, indexName, topK*summaryLevels, vector, graphstore.VectorQueryOptions{
		FieldFilters: map[string]any{"conversationId": conversationID},
	})
	if err != nil {
		return nil, err
	}

	scored := make([]ScoredSummary, 0, len(matches))
	byUUID := map[string]Summary{}
	for _, s := range all {
		byUUID[s.Summary.UUID] = s.Summary
	}
	for _, m := range matches {
		summary, ok := byUUID[m.Entity.UUID]
		if !ok {
			continue
		}
		ageDays := now.Sub(summary.CreatedAt).Hours() / 24
		decay := math.Exp(-ageDays / decayDays)
		boost := levelBoost[summary.Level]
		if boost == 0 {
			boost = 1.0
		}
		scored = append(scored, ScoredSummary{Summary: summary, Score: m.Score * boost * decay})
	}

	filtered := scored[:0:0]
	for _, s := range scored {
		if s.Score >= ragMinScore {
			filtered = append(filtered, s)
		}
	}

	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Score > filtered[j].Score })
	if len(filtered) > topK {
		filtered = filtered[:topK]
	}

	// §4.H's context ordering is highest-level summaries first, then
	// lower levels, then recent turns; re-sort the selected set by level
	// (score still breaks ties within a level) now that the relevance
	// cut has already picked the best topK.
	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Summary.Level != filtered[j].Summary.Level {
			return filtered[i].Summary.Level > filtered[j].Summary.Level
		}
		return filtered[i].Score > filtered[j].Score
	})
	return filtered, nil
}

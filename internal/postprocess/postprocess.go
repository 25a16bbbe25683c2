package postprocess

import (
	"context"
	"errors"

	"ragforge/internal/core"
	"ragforge/internal/graphstore"
	"ragforge/internal/ragerr"
	"ragforge/internal/structured"
)

// Config composes the strict §4.F pipeline wrapping query-pipeline
// results: (1) optional LLM rerank on the full candidate set, (2)
// optional keyword boost, (3) apply final limit, (4) optional bounded
// relationship exploration, (5) optional LLM summarization.
type Config struct {
	Rerank    *RerankOptions
	Keyword   *KeywordBoostOptions
	Limit     int
	Explore   *ExploreOptions
	Summarize bool
}

// Output is the post-processor's final product.
type Output struct {
	Results []core.SearchResult
	Graph   *ExploreGraph
	Summary *SummaryResult
}

// Run executes the §4.F pipeline in its fixed step order.
func Run(ctx context.Context, store graphstore.Store, completer structured.Completer, results []core.SearchResult, cfg Config) (*Output, error) {
	working := results

	if cfg.Rerank != nil {
		reranked, err := LLMRerank(ctx, completer, working, *cfg.Rerank)
		if err != nil {
			if ragerr.Fatal(kindOf(err)) {
				return nil, err
			}
			// Non-fatal: leave working set untouched per §4.E.
		} else {
			working = reranked
		}
	}

	if cfg.Keyword != nil {
		working = KeywordBoost(working, *cfg.Keyword)
	}

	if cfg.Limit > 0 && len(working) > cfg.Limit {
		working = working[:cfg.Limit]
	}

	out := &Output{Results: working}

	if cfg.Explore != nil {
		graph, err := Explore(ctx, store, working, *cfg.Explore)
		if err != nil {
			return nil, err
		}
		out.Graph = graph
	}

	if cfg.Summarize {
		summary, err := LLMSummarize(ctx, completer, working)
		if err != nil {
			return nil, err
		}
		out.Summary = summary
	}

	return out, nil
}

func kindOf(err error) ragerr.Kind {
	var e *ragerr.Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

package pipeline

import (
	"context"
	"errors"
	"fmt"

	"ragforge/internal/core"
	"ragforge/internal/graphstore"
	"ragforge/internal/postprocess"
	"ragforge/internal/ragerr"
)

// executeOp runs a single operation against the current working set and
// returns the next working set, per the score semantics: Fetch sets
// score 1.0, Semantic carries the vector score, Expand leaves score nil,
// Filter/ClientFilter preserve scores, LLMRerank delegates to the
// post-processor's merge policy.
func executeOp(ctx context.Context, deps Deps, op *Operation, working []core.SearchResult) ([]core.SearchResult, error) {
	switch op.Kind {
	case OpFetch:
		return executeFetch(ctx, deps, op)
	case OpSemantic:
		return executeSemantic(ctx, deps, op, working)
	case OpExpand:
		return executeExpand(ctx, deps, op, working)
	case OpFilter:
		return executeFilter(working, op), nil
	case OpClientFilter:
		return executeClientFilter(working, op), nil
	case OpLLMRerank:
		return postprocess.LLMRerank(ctx, deps.Completer, working, op.Rerank)
	default:
		return working, ragerr.New(ragerr.PipelineOperationFailed, "pipeline.executeOp", fmt.Errorf("unknown operation kind %q", op.Kind))
	}
}

func executeFetch(ctx context.Context, deps Deps, op *Operation) ([]core.SearchResult, error) {
	var entities []core.Entity
	var err error

	switch {
	case len(op.FetchByUUID) > 0:
		entities, err = deps.Store.GetEntitiesByUUIDs(ctx, op.FetchByUUID)
	case op.FetchByFields != nil:
		entities, err = deps.Store.FindByFields(ctx, op.FetchEntityType, op.FetchByFields, op.FetchLimit)
	case op.FetchByRelated != nil:
		entities, err = fetchRelated(ctx, deps.Store, *op.FetchByRelated, op.FetchLimit)
	default:
		entities, err = deps.Store.FindByFields(ctx, op.FetchEntityType, nil, op.FetchLimit)
	}
	if err != nil {
		return nil, ragerr.New(ragerr.StoreUnavailable, "pipeline.fetch", err)
	}

	out := make([]core.SearchResult, len(entities))
	for i, e := range entities {
		out[i] = core.SearchResult{Entity: e, Score: core.Float64Ptr(1.0), IsSearchResult: true}
	}
	return out, nil
}

func fetchRelated(ctx context.Context, store graphstore.Store, rf RelatedFetch, limit int) ([]core.Entity, error) {
	seen := map[string]bool{}
	var out []core.Entity
	for _, uuid := range rf.UUIDs {
		rels, err := store.Relationships(ctx, uuid, rf.RelationshipType, rf.Direction, limit)
		if err != nil {
			return nil, err
		}
		for _, rel := range rels {
			other := rel.To
			if rf.Direction == "incoming" {
				other = rel.From
			}
			if seen[other] {
				continue
			}
			seen[other] = true
			e, ok, err := store.GetEntity(ctx, other)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

func executeSemantic(ctx context.Context, deps Deps, op *Operation, working []core.SearchResult) ([]core.SearchResult, error) {
	vector := op.Vector
	if vector == nil {
		v, err := deps.Embedder.Embed(ctx, op.Text, op.IndexName)
		if err != nil {
			return nil, err
		}
		vector = v
	}

	var restrictTo []string
	if op.RestrictToCurrentUUIDs && len(working) > 0 {
		restrictTo = make([]string, len(working))
		for i, r := range working {
			restrictTo[i] = r.Entity.UUID
		}
	}

	matches, err := deps.Store.QueryVectorIndex(ctx, op.IndexName, op.TopK, vector, graphstore.VectorQueryOptions{
		MinScore:         op.MinScore,
		EntityUUIDFilter: restrictTo,
		FieldFilters:     op.FieldFilters,
	})
	if err != nil {
		return nil, err
	}

	out := make([]core.SearchResult, len(matches))
	for i, m := range matches {
		out[i] = core.SearchResult{Entity: m.Entity, Score: core.Float64Ptr(m.Score), IsSearchResult: true}
	}
	return out, nil
}

func executeExpand(ctx context.Context, deps Deps, op *Operation, working []core.SearchResult) ([]core.SearchResult, error) {
	out := make([]core.SearchResult, len(working))
	copy(out, working)
	seen := map[string]bool{}
	for _, r := range working {
		seen[r.Entity.UUID] = true
	}

	for _, r := range working {
		rels, err := deps.Store.Relationships(ctx, r.Entity.UUID, op.RelationshipType, op.Direction, 0)
		if err != nil {
			return nil, err
		}
		for _, rel := range rels {
			other := rel.To
			if op.Direction == "incoming" {
				other = rel.From
			}
			if seen[other] {
				continue
			}
			seen[other] = true
			e, ok, err := deps.Store.GetEntity(ctx, other)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, core.SearchResult{Entity: e, Score: nil, IsSearchResult: true})
			}
		}
	}
	return out, nil
}

func executeFilter(working []core.SearchResult, op *Operation) []core.SearchResult {
	out := working[:0:0]
	for _, r := range working {
		if matchesFields(r.Entity, op.FieldFilters) {
			out = append(out, r)
		}
	}
	return out
}

func matchesFields(e core.Entity, fields map[string]any) bool {
	for k, v := range fields {
		if e.Field(k) != v {
			return false
		}
	}
	return true
}

func executeClientFilter(working []core.SearchResult, op *Operation) []core.SearchResult {
	if op.ClientPredicate == nil {
		return working
	}
	out := working[:0:0]
	for _, r := range working {
		if op.ClientPredicate(r) {
			out = append(out, r)
		}
	}
	return out
}

func kindOf(err error) ragerr.Kind {
	var e *ragerr.Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

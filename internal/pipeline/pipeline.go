// Package pipeline is the 4.E query pipeline: the composable operation
// list (fetch, semantic, expand, filter, client-filter, llm-rerank),
// operation merging, and execution. Per the design note that a fluent
// chain API is just sugar over a value-level operation list, Pipeline
// is a plain slice of Operation records; Builder is an optional
// chainable façade over the same data.
package pipeline

import (
	"context"
	"sort"

	"ragforge/internal/core"
	"ragforge/internal/embedding"
	"ragforge/internal/graphstore"
	"ragforge/internal/postprocess"
	"ragforge/internal/ragerr"
	"ragforge/internal/structured"
)

// OpKind tags which variant an Operation holds.
type OpKind string

const (
	OpFetch        OpKind = "fetch"
	OpSemantic     OpKind = "semantic"
	OpExpand       OpKind = "expand"
	OpFilter       OpKind = "filter"
	OpClientFilter OpKind = "clientFilter"
	OpLLMRerank    OpKind = "llmRerank"
)

// RelatedFetch selects entities related to a pivot set of UUIDs.
type RelatedFetch struct {
	UUIDs            []string
	RelationshipType string
	Direction        string
}

// Operation is one pipeline step. Only the fields relevant to Kind are
// populated.
type Operation struct {
	Kind OpKind

	// Fetch
	FetchByUUID     []string
	FetchByFields   map[string]any
	FetchEntityType string
	FetchByRelated  *RelatedFetch
	FetchAll        bool
	FetchLimit      int

	// Semantic
	IndexName string
	Text      string
	Vector    []float32
	TopK      int
	MinScore  float64
	// RestrictToCurrentUUIDs, when true, intersects the vector search
	// with the current working set instead of replacing it (§4.E).
	// Default false: Semantic replaces.
	RestrictToCurrentUUIDs bool

	// Expand
	RelationshipType string
	Direction        string

	// Filter / ClientFilter
	FieldFilters    map[string]any
	ClientPredicate func(core.SearchResult) bool

	// LLMRerank
	Rerank postprocess.RerankOptions
}

// Pipeline is the ordered operation list plus pagination.
type Pipeline struct {
	Operations []Operation
	Offset     int
	Limit      int
}

// Deps bundles the collaborators operations execute against.
type Deps struct {
	Store     graphstore.Store
	Embedder  embedding.Provider
	Completer structured.Completer
}

// Builder is an optional chainable façade that appends to the same
// value-level Operation list Execute consumes.
type Builder struct {
	pipeline Pipeline
}

func New() *Builder { return &Builder{} }

func (b *Builder) Fetch(op Operation) *Builder {
	op.Kind = OpFetch
	b.pipeline.Operations = append(b.pipeline.Operations, op)
	return b
}

func (b *Builder) Semantic(indexName, text string, topK int) *Builder {
	b.pipeline.Operations = append(b.pipeline.Operations, Operation{
		Kind: OpSemantic, IndexName: indexName, Text: text, TopK: topK,
	})
	return b
}

// RestrictToCurrentUUIDs marks the most recently appended Semantic
// operation to intersect with the current working set instead of
// replacing it (§4.E's restrictToCurrentUuids flag).
func (b *Builder) RestrictToCurrentUUIDs() *Builder {
	if n := len(b.pipeline.Operations); n > 0 && b.pipeline.Operations[n-1].Kind == OpSemantic {
		b.pipeline.Operations[n-1].RestrictToCurrentUUIDs = true
	}
	return b
}

func (b *Builder) Expand(relType, direction string) *Builder {
	b.pipeline.Operations = append(b.pipeline.Operations, Operation{
		Kind: OpExpand, RelationshipType: relType, Direction: direction,
	})
	return b
}

func (b *Builder) Filter(fields map[string]any) *Builder {
	b.pipeline.Operations = append(b.pipeline.Operations, Operation{Kind: OpFilter, FieldFilters: fields})
	return b
}

func (b *Builder) ClientFilter(pred func(core.SearchResult) bool) *Builder {
	b.pipeline.Operations = append(b.pipeline.Operations, Operation{Kind: OpClientFilter, ClientPredicate: pred})
	return b
}

func (b *Builder) LLMRerank(opts postprocess.RerankOptions) *Builder {
	b.pipeline.Operations = append(b.pipeline.Operations, Operation{Kind: OpLLMRerank, Rerank: opts})
	return b
}

func (b *Builder) Paginate(offset, limit int) *Builder {
	b.pipeline.Offset, b.pipeline.Limit = offset, limit
	return b
}

func (b *Builder) Build() Pipeline { return b.pipeline }

// normalise applies the operation-merge pass: an adjacent Semantic
// followed immediately by a Filter over the same candidate set folds
// into a single round trip by carrying the filter's field constraints
// into the vector query's options, avoiding a second store call.
func normalise(ops []Operation) []Operation {
	var out []Operation
	for i := 0; i < len(ops); i++ {
		op := ops[i]
		if op.Kind == OpSemantic && i+1 < len(ops) && ops[i+1].Kind == OpFilter {
			merged := op
			if merged.FieldFilters == nil {
				merged.FieldFilters = map[string]any{}
			}
			for k, v := range ops[i+1].FieldFilters {
				merged.FieldFilters[k] = v
			}
			out = append(out, merged)
			i++
			continue
		}
		out = append(out, op)
	}
	return out
}

// Execute runs the operations in order over a shared working set, then
// sorts (score descending, null scores last, insertion order as
// tiebreak) and applies offset/limit.
func Execute(ctx context.Context, deps Deps, p Pipeline) ([]core.SearchResult, error) {
	normalised := normalise(p.Operations)

	var working []core.SearchResult
	for i := range normalised {
		next, err := executeOp(ctx, deps, &normalised[i], working)
		if err != nil {
			if ragerr.Fatal(kindOf(err)) {
				return nil, err
			}
			continue
		}
		working = next
	}

	sort.SliceStable(working, func(i, j int) bool {
		return working[i].ScoreOrMinusOne() > working[j].ScoreOrMinusOne()
	})

	return applyOffsetLimit(working, p.Offset, p.Limit), nil
}

func applyOffsetLimit(results []core.SearchResult, offset, limit int) []core.SearchResult {
	if offset > 0 {
		if offset >= len(results) {
			return nil
		}
		results = results[offset:]
	}
	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results
}

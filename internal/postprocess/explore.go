package postprocess

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"ragforge/internal/core"
	"ragforge/internal/graphstore"
)

// ExploreOptions configures bounded breadth-first relationship
// exploration per §4.F point (2).
type ExploreOptions struct {
	RelationshipType        string
	Depth                   int // clamped to [1,3]
	MaxToExplore            int // default 10
	MaxRelationshipsPerNode int // default 15
}

func (o ExploreOptions) withDefaults() ExploreOptions {
	if o.MaxToExplore == 0 {
		o.MaxToExplore = 10
	}
	if o.MaxRelationshipsPerNode == 0 {
		o.MaxRelationshipsPerNode = 15
	}
	o.Depth = clampDepth(o.Depth)
	return o
}

func clampDepth(d int) int {
	if d < 1 {
		return 1
	}
	if d > 3 {
		return 3
	}
	return d
}

// ExploreGraph is the output of relationship exploration: a deduplicated
// node list (seeds first by score desc, discovered nodes after in
// insertion order) and a deduplicated edge list keyed by (from,to,type).
type ExploreGraph struct {
	Nodes []core.SearchResult
	Edges []core.Relationship
}

type exploreQueueItem struct {
	uuid  string
	depth int
}

// Explore performs the BFS described in §4.F: for each seed, outgoing
// then incoming edges fetch in parallel (directions parallel, seeds
// serial), discovered nodes are enqueued while currentDepth+1 <
// clampedDepth. An empty seed list yields an empty graph without error.
func Explore(ctx context.Context, store graphstore.Store, seeds []core.SearchResult, opts ExploreOptions) (*ExploreGraph, error) {
	opts = opts.withDefaults()
	if len(seeds) == 0 {
		return &ExploreGraph{}, nil
	}

	limited := seeds
	if len(limited) > opts.MaxToExplore {
		limited = limited[:opts.MaxToExplore]
	}

	visited := map[string]bool{}
	edgeSeen := map[string]bool{}
	var edges []core.Relationship
	var discovered []core.SearchResult

	queue := make([]exploreQueueItem, 0, len(limited))
	for _, s := range limited {
		visited[s.Entity.UUID] = true
		queue = append(queue, exploreQueueItem{uuid: s.Entity.UUID, depth: 0})
	}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		out, in, err := fetchBothDirections(ctx, store, item.uuid, opts)
		if err != nil {
			return nil, err
		}

		for _, rel := range append(out, in...) {
			key := rel.Key()
			if !edgeSeen[key] {
				edgeSeen[key] = true
				edges = append(edges, rel)
			}

			other := rel.To
			if rel.To == item.uuid {
				other = rel.From
			}
			if visited[other] {
				continue
			}
			visited[other] = true

			entity, ok, err := store.GetEntity(ctx, other)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			discovered = append(discovered, core.SearchResult{Entity: entity, Score: nil, IsSearchResult: false})

			if item.depth+1 < opts.Depth {
				queue = append(queue, exploreQueueItem{uuid: other, depth: item.depth + 1})
			}
		}
	}

	sortedSeeds := make([]core.SearchResult, len(limited))
	copy(sortedSeeds, limited)
	sort.SliceStable(sortedSeeds, func(i, j int) bool {
		return sortedSeeds[i].ScoreOrMinusOne() > sortedSeeds[j].ScoreOrMinusOne()
	})

	nodes := append(sortedSeeds, discovered...)
	return &ExploreGraph{Nodes: nodes, Edges: edges}, nil
}

func fetchBothDirections(ctx context.Context, store graphstore.Store, uuid string, opts ExploreOptions) ([]core.Relationship, []core.Relationship, error) {
	var out, in []core.Relationship
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rels, err := store.Relationships(gctx, uuid, opts.RelationshipType, "outgoing", opts.MaxRelationshipsPerNode)
		out = rels
		return err
	})
	g.Go(func() error {
		rels, err := store.Relationships(gctx, uuid, opts.RelationshipType, "incoming", opts.MaxRelationshipsPerNode)
		in = rels
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return out, in, nil
}

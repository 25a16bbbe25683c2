package graphstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"ragforge/internal/ragerr"

	"ragforge/internal/core"
)

// MemoryStore is an in-process Store used by package tests across the
// repository; it implements the same contract as PostgresStore without
// a live database.
type MemoryStore struct {
	mu         sync.Mutex
	nodes      map[string]core.Entity
	edges      []core.Relationship
	embeddings map[string]map[string][]float32 // indexName -> uuid -> vector
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes:      make(map[string]core.Entity),
		embeddings: make(map[string]map[string][]float32),
	}
}

func (m *MemoryStore) Close(context.Context) error { return nil }

func (m *MemoryStore) Run(ctx context.Context, query string, params map[string]any) ([]core.Entity, error) {
	return nil, ragerr.New(ragerr.QueryMalformed, "graphstore.memory.run", nil).WithAttr("reason", "raw queries unsupported by MemoryStore")
}

type memTx struct{ s *MemoryStore }

func (t *memTx) Run(ctx context.Context, query string, params map[string]any) ([]core.Entity, error) {
	return t.s.Run(ctx, query, params)
}

func (m *MemoryStore) ReadTransaction(ctx context.Context, fn func(tx Tx) error) error {
	return fn(&memTx{s: m})
}

func (m *MemoryStore) WriteTransaction(ctx context.Context, fn func(tx Tx) error) error {
	return fn(&memTx{s: m})
}

func (m *MemoryStore) UpsertEntity(ctx context.Context, e core.Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.Fields == nil {
		e.Fields = map[string]any{}
	}
	m.nodes[e.UUID] = e
	return nil
}

func (m *MemoryStore) GetEntity(ctx context.Context, uuid string) (core.Entity, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.nodes[uuid]
	return e, ok, nil
}

func (m *MemoryStore) GetEntitiesByUUIDs(ctx context.Context, uuids []string) ([]core.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Entity
	for _, u := range uuids {
		if e, ok := m.nodes[u]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MemoryStore) FindByFields(ctx context.Context, entityType string, fields map[string]any, limit int) ([]core.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Entity
	for _, e := range m.nodes {
		if entityType != "" && e.Type != entityType {
			continue
		}
		if matchesFields(e, fields) {
			out = append(out, e)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UUID < out[j].UUID })
	return out, nil
}

func matchesFields(e core.Entity, fields map[string]any) bool {
	for k, v := range fields {
		if e.Field(k) != v {
			return false
		}
	}
	return true
}

func (m *MemoryStore) UpsertEmbedding(ctx context.Context, indexName, uuid string, vector []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.embeddings[indexName] == nil {
		m.embeddings[indexName] = make(map[string][]float32)
	}
	m.embeddings[indexName][uuid] = vector
	return nil
}

func (m *MemoryStore) QueryVectorIndex(ctx context.Context, indexName string, topK int, vector []float32, opts VectorQueryOptions) ([]VectorMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if topK <= 0 {
		return nil, nil
	}
	byUUID, ok := m.embeddings[indexName]
	if !ok {
		return nil, ragerr.New(ragerr.IndexMissing, indexName, nil)
	}
	allowed := map[string]bool{}
	for _, u := range opts.EntityUUIDFilter {
		allowed[u] = true
	}

	var matches []VectorMatch
	for uuid, vec := range byUUID {
		if len(opts.EntityUUIDFilter) > 0 && !allowed[uuid] {
			continue
		}
		e, ok := m.nodes[uuid]
		if !ok {
			continue
		}
		if !matchesFields(e, opts.FieldFilters) {
			continue
		}
		score := cosineSimilarity(vector, vec)
		if score < opts.MinScore {
			continue
		}
		matches = append(matches, VectorMatch{Entity: e, Score: score})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func (m *MemoryStore) Relationships(ctx context.Context, uuid string, relType string, direction string, limit int) ([]core.Relationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Relationship
	for _, r := range m.edges {
		if r.Type != relType {
			continue
		}
		if direction == "incoming" {
			if r.To != uuid {
				continue
			}
		} else if r.From != uuid {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) AddRelationship(r core.Relationship) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges = append(m.edges, r)
}

func (m *MemoryStore) UpsertRelationship(ctx context.Context, r core.Relationship) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.edges {
		if e.Key() == r.Key() {
			m.edges[i] = r
			return nil
		}
	}
	m.edges = append(m.edges, r)
	return nil
}

func (m *MemoryStore) DeleteEntity(ctx context.Context, uuid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.nodes, uuid)
	for _, byUUID := range m.embeddings {
		delete(byUUID, uuid)
	}
	kept := m.edges[:0]
	for _, r := range m.edges {
		if r.From != uuid && r.To != uuid {
			kept = append(kept, r)
		}
	}
	m.edges = kept
	return nil
}

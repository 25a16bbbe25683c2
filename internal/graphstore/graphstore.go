// Package graphstore is the 4.A graph store adapter: parameterised query
// execution, transactions, integer coercion, and vector-index calls over
// a property graph of entities and relationships.
package graphstore

import (
	"context"

	"ragforge/internal/core"
)

// VectorMatch is one `(node, score)` pair returned by a vector-index
// query, score descending, score >= the caller's minScore.
type VectorMatch struct {
	Entity core.Entity
	Score  float64
}

// VectorQueryOptions narrows a vector-index query beyond top-k.
type VectorQueryOptions struct {
	MinScore        float64
	EntityUUIDFilter []string // restrict candidates to these UUIDs, if non-empty
	FieldFilters     map[string]any
}

// Tx is the handle passed into readTransaction/writeTransaction closures.
// It exposes the same parameterised-query surface as Store so a closure
// can compose several statements atomically.
type Tx interface {
	Run(ctx context.Context, query string, params map[string]any) ([]core.Entity, error)
}

// Store is the graph store adapter's full surface. Any backing store
// (Postgres/pgvector, or a test fake) implements this.
type Store interface {
	// Run executes a parameterised query and returns matching entities.
	// Integer-typed params (topK, limits) are coerced to the store's
	// native integer type by the implementation before the call.
	Run(ctx context.Context, query string, params map[string]any) ([]core.Entity, error)

	ReadTransaction(ctx context.Context, fn func(tx Tx) error) error
	WriteTransaction(ctx context.Context, fn func(tx Tx) error) error

	// QueryVectorIndex returns ordered (node,score) pairs from the named
	// vector index, score descending, score >= minScore, capped at topK.
	QueryVectorIndex(ctx context.Context, indexName string, topK int, vector []float32, opts VectorQueryOptions) ([]VectorMatch, error)

	// UpsertEntity writes or replaces an entity by UUID.
	UpsertEntity(ctx context.Context, e core.Entity) error

	// GetEntity fetches a single entity by UUID, or returns ok=false.
	GetEntity(ctx context.Context, uuid string) (core.Entity, bool, error)

	// GetEntitiesByUUIDs fetches entities in bulk, preserving no
	// particular order; callers re-associate by UUID.
	GetEntitiesByUUIDs(ctx context.Context, uuids []string) ([]core.Entity, error)

	// FindByFields runs a store-side equality predicate over an entity
	// type's fields.
	FindByFields(ctx context.Context, entityType string, fields map[string]any, limit int) ([]core.Entity, error)

	// UpsertEmbedding writes the embedding for (entityType, uuid, field)
	// into the named vector index, idempotent replace.
	UpsertEmbedding(ctx context.Context, indexName, uuid string, vector []float32) error

	// UpsertRelationship writes a typed directed edge, idempotent on
	// (from, to, type).
	UpsertRelationship(ctx context.Context, r core.Relationship) error

	// Relationships returns outgoing or incoming edges of the given type
	// from/to uuid, capped at limit.
	Relationships(ctx context.Context, uuid string, relType string, direction string, limit int) ([]core.Relationship, error)

	// DeleteEntity removes an entity and any dangling edges/embeddings.
	DeleteEntity(ctx context.Context, uuid string) error

	Close(ctx context.Context) error
}

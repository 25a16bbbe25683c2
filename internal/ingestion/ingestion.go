// Package ingestion defines the 4.J ingestion contract: deterministic
// entity identity and incremental change detection. Per the
// specification's non-goals, no concrete source-language parser lives
// here; this package is the interface a future parser plugs into to
// emit entities and relationships into the graph store.
package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"

	"ragforge/internal/core"
	"ragforge/internal/graphstore"
)

// entityNamespace is the fixed UUIDv5 namespace every entity UUID is
// derived from, so the same (entityType, uniqueField value) pair always
// produces the same UUID across ingestion runs.
var entityNamespace = uuid.MustParse("8f14e45f-ceea-4f6f-b4f4-7a3b3e2c9a10")

// EntityUUID deterministically derives an entity's UUID from its type
// and unique-field value, so re-ingesting unchanged source material
// never creates duplicate nodes.
func EntityUUID(entityType, uniqueValue string) string {
	return uuid.NewSHA1(entityNamespace, []byte(entityType+"\x00"+uniqueValue)).String()
}

// ContentHash returns a stable hash of an entity's content, used by
// change detection to skip re-embedding/re-writing entities whose
// source content hasn't changed since the last ingestion run.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// ChangeSet summarises what Detect found relative to the graph store's
// existing content hashes.
type ChangeSet struct {
	New       []string // uuids not present in the store
	Changed   []string // uuids present with a different content hash
	Unchanged []string // uuids present with the same content hash
}

// CandidateEntity is one entity a source emitter proposes to upsert,
// paired with the hash of the content its embeddings/fields derive from.
type CandidateEntity struct {
	Entity      core.Entity
	ContentHash string
}

// Detect compares candidates against the store's current
// `contentHash` field per entity, classifying each as new, changed, or
// unchanged, so a caller can skip expensive re-embedding for the
// unchanged set.
func Detect(ctx context.Context, store graphstore.Store, candidates []CandidateEntity) (ChangeSet, error) {
	var set ChangeSet
	for _, c := range candidates {
		existing, ok, err := store.GetEntity(ctx, c.Entity.UUID)
		if err != nil {
			return ChangeSet{}, err
		}
		if !ok {
			set.New = append(set.New, c.Entity.UUID)
			continue
		}
		if existing.FieldString("contentHash") == c.ContentHash {
			set.Unchanged = append(set.Unchanged, c.Entity.UUID)
		} else {
			set.Changed = append(set.Changed, c.Entity.UUID)
		}
	}
	return set, nil
}

// Emitter is the contract a concrete source-language parser implements
// to feed entities and relationships into the graph store. Discover
// walks a source tree (file paths, repository handles, etc. are left to
// the implementation) and returns every entity/relationship pair it
// found; Emit writes only the ones Detect flagged as new or changed.
type Emitter interface {
	Discover(ctx context.Context) ([]CandidateEntity, []core.Relationship, error)
}

// Emit writes only the new/changed entities from a change set, along
// with every relationship (relationships are cheap to re-upsert and
// carry no content hash of their own).
func Emit(ctx context.Context, store graphstore.Store, candidates []CandidateEntity, relationships []core.Relationship, set ChangeSet) error {
	dirty := map[string]bool{}
	for _, u := range set.New {
		dirty[u] = true
	}
	for _, u := range set.Changed {
		dirty[u] = true
	}

	for _, c := range candidates {
		if !dirty[c.Entity.UUID] {
			continue
		}
		if c.Entity.Fields == nil {
			c.Entity.Fields = map[string]any{}
		}
		c.Entity.Fields["contentHash"] = c.ContentHash
		if err := store.UpsertEntity(ctx, c.Entity); err != nil {
			return err
		}
	}

	for _, rel := range relationships {
		if err := store.UpsertRelationship(ctx, rel); err != nil {
			return err
		}
	}
	return nil
}

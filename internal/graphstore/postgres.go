package graphstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"ragforge/internal/core"
	"ragforge/internal/ragerr"
)

// PostgresStore implements Store over Postgres + pgvector, generalising
// the teacher's article-table vectorstore into a generic node/edge/
// vector-index property graph:
//
//	nodes(uuid uuid primary key, type text, name text, fields jsonb)
//	edges(from_uuid uuid, to_uuid uuid, type text)
//	embeddings_<indexName>(uuid uuid primary key, embedding vector(n))
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore opens a connection pool, pinging once at startup the
// way the teacher's persistence.NewPostgresDB does.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, ragerr.New(ragerr.StoreUnavailable, "graphstore.connect", err)
	}
	cfg.MaxConns = 25
	cfg.MinConns = 5

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, ragerr.New(ragerr.StoreUnavailable, "graphstore.connect", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, ragerr.New(ragerr.StoreUnavailable, "graphstore.ping", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close(ctx context.Context) error {
	s.pool.Close()
	return nil
}

func rowToEntity(uuid, typ, name string, fieldsJSON []byte) (core.Entity, error) {
	fields := map[string]any{}
	if len(fieldsJSON) > 0 {
		if err := json.Unmarshal(fieldsJSON, &fields); err != nil {
			return core.Entity{}, fmt.Errorf("unmarshal entity fields: %w", err)
		}
	}
	return core.Entity{UUID: uuid, Type: typ, Name: name, Fields: fields}, nil
}

// Run executes a raw parameterised query against nodes. Only a narrow
// subset is supported here: callers use the typed helpers
// (FindByFields/GetEntity/Relationships) for everything but ad hoc
// debugging queries; Run exists to satisfy the 4.A `run(query, params)`
// surface for collaborators that need it directly.
func (s *PostgresStore) Run(ctx context.Context, query string, params map[string]any) ([]core.Entity, error) {
	args := coerceParams(params)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, classifyPgError("graphstore.run", err)
	}
	defer rows.Close()
	return scanEntities(rows)
}

// coerceParams converts any int-typed parameter (topK, limits) to int64,
// pgx's native integer wire type, per the 4.A "integer coercion"
// requirement. Map iteration order is not guaranteed by Go, so callers
// that rely on positional $1/$2 placeholders must pass an ordered slice
// instead; this helper is for named-parameter backends only.
func coerceParams(params map[string]any) []any {
	args := make([]any, 0, len(params))
	for _, v := range params {
		switch n := v.(type) {
		case int:
			args = append(args, int64(n))
		case int32:
			args = append(args, int64(n))
		default:
			args = append(args, v)
		}
	}
	return args
}

func scanEntities(rows pgx.Rows) ([]core.Entity, error) {
	var out []core.Entity
	for rows.Next() {
		var uuid, typ, name string
		var fieldsJSON []byte
		if err := rows.Scan(&uuid, &typ, &name, &fieldsJSON); err != nil {
			return nil, fmt.Errorf("scan entity row: %w", err)
		}
		e, err := rowToEntity(uuid, typ, name, fieldsJSON)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPgError("graphstore.scan", err)
	}
	return out, nil
}

func classifyPgError(op string, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case pgIsSyntaxError(msg):
		return ragerr.New(ragerr.QueryMalformed, op, err)
	default:
		return ragerr.New(ragerr.StoreUnavailable, op, err)
	}
}

func pgIsSyntaxError(msg string) bool {
	// Postgres syntax/undefined-column errors carry these substrings;
	// a full SQLSTATE switch would require importing pgconn error
	// internals for marginal benefit here.
	for _, needle := range []string{"syntax error", "column", "does not exist", "relation"} {
		if containsFold(msg, needle) {
			return true
		}
	}
	return false
}

func containsFold(haystack, needle string) bool {
	h := []rune(haystack)
	n := []rune(needle)
	for i := 0; i+len(n) <= len(h); i++ {
		match := true
		for j := range n {
			a, b := h[i+j], n[j]
			if a >= 'A' && a <= 'Z' {
				a += 'a' - 'A'
			}
			if b >= 'A' && b <= 'Z' {
				b += 'a' - 'A'
			}
			if a != b {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Run(ctx context.Context, query string, params map[string]any) ([]core.Entity, error) {
	args := coerceParams(params)
	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, classifyPgError("graphstore.tx.run", err)
	}
	defer rows.Close()
	return scanEntities(rows)
}

func (s *PostgresStore) ReadTransaction(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return ragerr.New(ragerr.StoreUnavailable, "graphstore.readTransaction", err)
	}
	defer tx.Rollback(ctx)
	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) WriteTransaction(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadWrite})
	if err != nil {
		return ragerr.New(ragerr.StoreUnavailable, "graphstore.writeTransaction", err)
	}
	defer tx.Rollback(ctx)
	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return ragerr.New(ragerr.StoreUnavailable, "graphstore.writeTransaction.commit", err)
	}
	return nil
}

// QueryVectorIndex runs the cosine-distance query against the named
// embedding table, mirroring the teacher's `<=>` operator usage but
// against a generic per-index table instead of a fixed `articles` column.
func (s *PostgresStore) QueryVectorIndex(ctx context.Context, indexName string, topK int, vector []float32, opts VectorQueryOptions) ([]VectorMatch, error) {
	if topK <= 0 {
		return nil, nil
	}
	table := embeddingTable(indexName)
	vec := pgvector.NewVector(vector)

	args := []any{vec, opts.MinScore}
	clauses := ""

	if len(opts.EntityUUIDFilter) > 0 {
		args = append(args, opts.EntityUUIDFilter)
		clauses += fmt.Sprintf(" AND n.uuid = ANY($%d)", len(args))
	}
	for key, val := range opts.FieldFilters {
		args = append(args, key, fmt.Sprintf("%v", val))
		clauses += fmt.Sprintf(" AND n.fields->>$%d = $%d", len(args)-1, len(args))
	}

	args = append(args, int64(topK))
	limitPos := len(args)

	sql := fmt.Sprintf(`
		SELECT n.uuid, n.type, n.name, n.fields, 1 - (e.embedding <=> $1) AS score
		FROM %s e
		JOIN nodes n ON n.uuid = e.uuid
		WHERE 1 - (e.embedding <=> $1) >= $2%s
		ORDER BY e.embedding <=> $1
		LIMIT $%d
	`, table, clauses, limitPos)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, classifyVectorError(indexName, err)
	}
	defer rows.Close()

	var out []VectorMatch
	for rows.Next() {
		var uuid, typ, name string
		var fieldsJSON []byte
		var score float64
		if err := rows.Scan(&uuid, &typ, &name, &fieldsJSON, &score); err != nil {
			return nil, fmt.Errorf("scan vector match: %w", err)
		}
		e, err := rowToEntity(uuid, typ, name, fieldsJSON)
		if err != nil {
			return nil, err
		}
		out = append(out, VectorMatch{Entity: e, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, classifyVectorError(indexName, err)
	}
	return out, nil
}

func classifyVectorError(indexName string, err error) error {
	if containsFold(err.Error(), "does not exist") || containsFold(err.Error(), "relation") {
		return ragerr.New(ragerr.IndexMissing, indexName, err)
	}
	return ragerr.New(ragerr.StoreUnavailable, "graphstore.queryVectorIndex", err)
}

func embeddingTable(indexName string) string {
	return fmt.Sprintf("embeddings_%s", sanitizeIdent(indexName))
}

func sanitizeIdent(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			out = append(out, c)
		} else {
			out = append(out, '_')
		}
	}
	return string(out)
}

func (s *PostgresStore) UpsertEntity(ctx context.Context, e core.Entity) error {
	fieldsJSON, err := json.Marshal(e.Fields)
	if err != nil {
		return fmt.Errorf("marshal entity fields: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO nodes (uuid, type, name, fields)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (uuid) DO UPDATE SET type = $2, name = $3, fields = $4
	`, e.UUID, e.Type, e.Name, fieldsJSON)
	if err != nil {
		return classifyPgError("graphstore.upsertEntity", err)
	}
	return nil
}

func (s *PostgresStore) GetEntity(ctx context.Context, uuid string) (core.Entity, bool, error) {
	row := s.pool.QueryRow(ctx, `SELECT uuid, type, name, fields FROM nodes WHERE uuid = $1`, uuid)
	var u, typ, name string
	var fieldsJSON []byte
	if err := row.Scan(&u, &typ, &name, &fieldsJSON); err != nil {
		if err == pgx.ErrNoRows {
			return core.Entity{}, false, nil
		}
		return core.Entity{}, false, classifyPgError("graphstore.getEntity", err)
	}
	e, err := rowToEntity(u, typ, name, fieldsJSON)
	return e, true, err
}

func (s *PostgresStore) GetEntitiesByUUIDs(ctx context.Context, uuids []string) ([]core.Entity, error) {
	if len(uuids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT uuid, type, name, fields FROM nodes WHERE uuid = ANY($1)`, uuids)
	if err != nil {
		return nil, classifyPgError("graphstore.getEntitiesByUUIDs", err)
	}
	defer rows.Close()
	return scanEntities(rows)
}

func (s *PostgresStore) FindByFields(ctx context.Context, entityType string, fields map[string]any, limit int) ([]core.Entity, error) {
	if limit <= 0 {
		limit = 50
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("marshal field predicate: %w", err)
	}
	rows, err := s.pool.Query(ctx, `
		SELECT uuid, type, name, fields FROM nodes
		WHERE type = $1 AND fields @> $2::jsonb
		LIMIT $3
	`, entityType, fieldsJSON, int64(limit))
	if err != nil {
		return nil, classifyPgError("graphstore.findByFields", err)
	}
	defer rows.Close()
	return scanEntities(rows)
}

func (s *PostgresStore) UpsertEmbedding(ctx context.Context, indexName, uuid string, vector []float32) error {
	table := embeddingTable(indexName)
	vec := pgvector.NewVector(vector)
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (uuid, embedding) VALUES ($1, $2)
		ON CONFLICT (uuid) DO UPDATE SET embedding = $2
	`, table), uuid, vec)
	if err != nil {
		return classifyVectorError(indexName, err)
	}
	return nil
}

func (s *PostgresStore) Relationships(ctx context.Context, uuid string, relType string, direction string, limit int) ([]core.Relationship, error) {
	if limit <= 0 {
		limit = 15
	}
	var query string
	switch direction {
	case "incoming":
		query = `SELECT from_uuid, to_uuid, type FROM edges WHERE to_uuid = $1 AND type = $2 LIMIT $3`
	default: // outgoing
		query = `SELECT from_uuid, to_uuid, type FROM edges WHERE from_uuid = $1 AND type = $2 LIMIT $3`
	}
	rows, err := s.pool.Query(ctx, query, uuid, relType, int64(limit))
	if err != nil {
		return nil, classifyPgError("graphstore.relationships", err)
	}
	defer rows.Close()

	var out []core.Relationship
	for rows.Next() {
		var r core.Relationship
		if err := rows.Scan(&r.From, &r.To, &r.Type); err != nil {
			return nil, fmt.Errorf("scan relationship row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpsertRelationship(ctx context.Context, r core.Relationship) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO edges (from_uuid, to_uuid, type)
		VALUES ($1, $2, $3)
		ON CONFLICT (from_uuid, to_uuid, type) DO NOTHING
	`, r.From, r.To, r.Type)
	if err != nil {
		return classifyPgError("graphstore.upsertRelationship", err)
	}
	return nil
}

func (s *PostgresStore) DeleteEntity(ctx context.Context, uuid string) error {
	return s.WriteTransaction(ctx, func(tx Tx) error {
		pt := tx.(*pgTx)
		if _, err := pt.tx.Exec(ctx, `DELETE FROM edges WHERE from_uuid = $1 OR to_uuid = $1`, uuid); err != nil {
			return classifyPgError("graphstore.deleteEntity.edges", err)
		}
		rows, err := pt.tx.Query(ctx, `SELECT table_name::text FROM information_schema.tables WHERE table_schema = current_schema() AND table_name LIKE 'embeddings\_%'`)
		if err != nil {
			return classifyPgError("graphstore.deleteEntity.embeddings", err)
		}
		tables, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return classifyPgError("graphstore.deleteEntity.embeddings", err)
		}
		for _, table := range tables {
			if _, err := pt.tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE uuid = $1`, sanitizeIdent(table)), uuid); err != nil {
				return classifyPgError("graphstore.deleteEntity.embeddings", err)
			}
		}
		if _, err := pt.tx.Exec(ctx, `DELETE FROM nodes WHERE uuid = $1`, uuid); err != nil {
			return classifyPgError("graphstore.deleteEntity.node", err)
		}
		return nil
	})
}

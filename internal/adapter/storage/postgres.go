package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/entitysoft/billing/internal/core/domain"
)

// pgQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, so the same
// operation code serves plain calls and calls inside Transact.
type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is the production driver. All collections live in one
// documents table with a JSONB payload; equality filters use the GIN
// index via the @> operator.
type PostgresStore struct {
	pool *pgxpool.Pool // nil inside a transaction
	q    pgQuerier
}

// ConnectPostgres initializes the connection pool and verifies it with
// a ping. Startup must fail hard when this errors.
func ConnectPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("%w: DATABASE_URL is not set", domain.ErrStoreUnavailable)
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database URL: %w", err)
	}

	// Keep the pool lean; serverless Postgres creates connections fast
	// and idle ones cost money.
	config.MaxConns = 10
	config.MinConns = 0
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%w: create pool: %v", domain.ErrStoreUnavailable, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %v", domain.ErrStoreUnavailable, err)
	}

	return &PostgresStore{pool: pool, q: pool}, nil
}

// Migrations returns the schema statements, one per entry.
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id         TEXT NOT NULL,
			doc        JSONB NOT NULL,
			PRIMARY KEY (collection, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_doc
			ON documents USING GIN (doc jsonb_path_ops)`,
	}
}

// Migrate applies the schema. Used by the migrate command and safe to
// re-run.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range Migrations() {
		if _, err := s.q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w: migrate: %v", domain.ErrPersistenceFailure, err)
		}
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, collection string, filter Filter, opts Options) ([]Document, error) {
	args := []any{collection}
	where := buildWhere(filter, &args)

	sel := "doc"
	for _, f := range opts.Exclude {
		sel += " - " + quoteLit(f)
	}

	query := "SELECT " + sel + " FROM documents WHERE " + where
	if opts.Sort != "" {
		// Sort fields are timestamps (createdAt); stored as RFC3339
		// text, cast for correct chronological order.
		query += fmt.Sprintf(" ORDER BY (doc->>%s)::timestamptz", quoteLit(opts.Sort))
		if opts.Desc {
			query += " DESC"
		}
	}
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: find %s: %v", domain.ErrStoreUnavailable, collection, err)
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", domain.ErrStoreUnavailable, err)
		}
		doc, err := decodeDoc(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (s *PostgresStore) FindOne(ctx context.Context, collection string, filter Filter) (Document, error) {
	args := []any{collection}
	where := buildWhere(filter, &args)

	var raw []byte
	err := s.q.QueryRow(ctx, "SELECT doc FROM documents WHERE "+where+" LIMIT 1", args...).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find one %s: %v", domain.ErrStoreUnavailable, collection, err)
	}
	return decodeDoc(raw)
}

func (s *PostgresStore) Insert(ctx context.Context, collection string, doc Document) (Document, error) {
	doc = ensureID(doc)
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %v", domain.ErrPersistenceFailure, err)
	}
	_, err = s.q.Exec(ctx,
		`INSERT INTO documents (collection, id, doc) VALUES ($1, $2, $3::jsonb)`,
		collection, doc[IDField], raw)
	if err != nil {
		return nil, fmt.Errorf("%w: insert into %s: %v", domain.ErrPersistenceFailure, collection, err)
	}
	return decodeDoc(raw)
}

func (s *PostgresStore) Update(ctx context.Context, collection string, filter Filter, patch Patch, upsert bool) (Document, error) {
	args := []any{collection}
	where := buildWhere(filter, &args)

	// Patch expression built inside-out: Set fields merged with ||,
	// each Inc computed from the current row value, each Push
	// concatenated onto the (possibly missing) array.
	expr := "doc"
	if len(patch.Set) > 0 {
		raw, err := json.Marshal(patch.Set)
		if err != nil {
			return nil, fmt.Errorf("%w: encode set: %v", domain.ErrPersistenceFailure, err)
		}
		args = append(args, string(raw))
		expr = fmt.Sprintf("%s || $%d::jsonb", expr, len(args))
	}
	for field, delta := range patch.Inc {
		args = append(args, delta)
		expr = fmt.Sprintf(
			"jsonb_set(%s, %s, to_jsonb(COALESCE((doc->>%s)::numeric, 0) + $%d))",
			expr, quotePath(field), quoteLit(field), len(args))
	}
	for field, entry := range patch.Push {
		raw, err := json.Marshal([]any{entry})
		if err != nil {
			return nil, fmt.Errorf("%w: encode push: %v", domain.ErrPersistenceFailure, err)
		}
		args = append(args, string(raw))
		expr = fmt.Sprintf(
			"jsonb_set(%s, %s, COALESCE(doc->%s, '[]'::jsonb) || $%d::jsonb)",
			expr, quotePath(field), quoteLit(field), len(args))
	}

	query := "UPDATE documents SET doc = " + expr +
		" WHERE ctid = (SELECT ctid FROM documents WHERE " + where + " LIMIT 1) RETURNING doc"

	var raw []byte
	err := s.q.QueryRow(ctx, query, args...).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		if !upsert {
			return nil, domain.ErrNotFound
		}
		return s.Insert(ctx, collection, upsertSeed(filter, patch))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: update %s: %v", domain.ErrPersistenceFailure, collection, err)
	}
	return decodeDoc(raw)
}

func (s *PostgresStore) Delete(ctx context.Context, collection string, filter Filter) error {
	args := []any{collection}
	where := buildWhere(filter, &args)
	if _, err := s.q.Exec(ctx, "DELETE FROM documents WHERE "+where, args...); err != nil {
		return fmt.Errorf("%w: delete from %s: %v", domain.ErrPersistenceFailure, collection, err)
	}
	return nil
}

// Transact runs fn inside one database transaction. Nested calls join
// the enclosing transaction.
func (s *PostgresStore) Transact(ctx context.Context, fn func(tx Store) error) error {
	if s.pool == nil {
		return fn(s)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", domain.ErrStoreUnavailable, err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&PostgresStore{q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// buildWhere renders filter into a WHERE clause, appending bind args.
// args must already hold the collection as $1.
func buildWhere(filter Filter, args *[]any) string {
	conds := []string{"collection = $1"}
	eq := map[string]any{}
	for field, v := range filter {
		r, isRange := v.(Range)
		if !isRange {
			eq[field] = v
			continue
		}
		if !r.GTE.IsZero() {
			*args = append(*args, r.GTE)
			conds = append(conds, fmt.Sprintf("(doc->>%s)::timestamptz >= $%d", quoteLit(field), len(*args)))
		}
		if !r.LTE.IsZero() {
			*args = append(*args, r.LTE)
			conds = append(conds, fmt.Sprintf("(doc->>%s)::timestamptz <= $%d", quoteLit(field), len(*args)))
		}
	}
	if len(eq) > 0 {
		raw, _ := json.Marshal(eq)
		*args = append(*args, string(raw))
		conds = append(conds, fmt.Sprintf("doc @> $%d::jsonb", len(*args)))
	}
	return strings.Join(conds, " AND ")
}

// quoteLit renders an internal field name as a SQL string literal.
// Field names come from our own code, never from request input.
func quoteLit(field string) string {
	return "'" + strings.ReplaceAll(field, "'", "''") + "'"
}

// quotePath renders a field name as a single-element jsonb path.
func quotePath(field string) string {
	return "'{" + strings.ReplaceAll(field, "'", "''") + "}'"
}

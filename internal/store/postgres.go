package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores documents as jsonb rows. Like the SQLite backend it
// evaluates queries through the shared docfilter engine, trading scan cost
// for exact protocol semantics. The table is managed by the embedded
// migrations (internal/migrations).
type Postgres struct {
	pool *pgxpool.Pool
}

// ConnectPostgres dials and pings the database.
func ConnectPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create postgres pool: %v", ErrUnavailable, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: failed to ping postgres: %v", ErrUnavailable, err)
	}

	slog.Info("Database connection established", "db", "PostgreSQL")
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Query(ctx context.Context, q Query) (Result, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT doc FROM documents WHERE collection = $1 ORDER BY seq`, q.Collection)
	if err != nil {
		return Result{}, fmt.Errorf("%w: failed to load collection %s: %v", ErrUnavailable, q.Collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return Result{}, fmt.Errorf("%w: failed to scan document: %v", ErrUnavailable, err)
		}
		var d Document
		if err := json.Unmarshal(raw, &d); err != nil {
			return Result{}, fmt.Errorf("failed to decode stored document in %s: %w", q.Collection, err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("%w: failed reading collection %s: %v", ErrUnavailable, q.Collection, err)
	}
	return evaluate(docs, q), nil
}

func (p *Postgres) Get(ctx context.Context, collection, idField, id string) (Document, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx,
		`SELECT doc FROM documents WHERE collection = $1 AND doc_id = $2`, collection, id).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get %s/%s: %v", ErrUnavailable, collection, id, err)
	}
	var d Document
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("failed to decode stored document %s/%s: %w", collection, id, err)
	}
	return d, nil
}

func (p *Postgres) Insert(ctx context.Context, collection, idField string, docs ...Document) error {
	for _, d := range docs {
		id, _ := d.Lookup(idField)
		raw, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("failed to encode document for %s: %w", collection, err)
		}
		_, err = p.pool.Exec(ctx, `
			INSERT INTO documents (collection, doc_id, doc) VALUES ($1, $2, $3)
			ON CONFLICT (collection, doc_id) DO UPDATE SET doc = EXCLUDED.doc`,
			collection, fmt.Sprint(id), raw)
		if err != nil {
			return fmt.Errorf("%w: failed to insert into %s: %v", ErrUnavailable, collection, err)
		}
	}
	return nil
}

func (p *Postgres) Close(context.Context) error {
	p.pool.Close()
	return nil
}

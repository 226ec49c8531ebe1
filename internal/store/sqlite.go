package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite is the embedded backend. Documents live as JSON rows keyed by a
// monotonically increasing seq, and queries run through the shared
// docfilter engine in process, so filter and sort semantics are identical
// to the other backends independent of SQLite's collation.
type SQLite struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	collection TEXT NOT NULL,
	doc_id     TEXT NOT NULL,
	doc        TEXT NOT NULL,
	UNIQUE (collection, doc_id)
);
CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents (collection, seq);
`

// OpenSQLite opens (or creates) the embedded database at path. Use
// ":memory:" for throwaway fixtures.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open sqlite at %s: %v", ErrUnavailable, path, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to initialize sqlite schema: %v", ErrUnavailable, err)
	}
	slog.Info("Database connection established", "db", "SQLite", "path", path)
	return &SQLite{db: db}, nil
}

func (s *SQLite) Query(ctx context.Context, q Query) (Result, error) {
	docs, err := s.load(ctx, q.Collection)
	if err != nil {
		return Result{}, err
	}
	return evaluate(docs, q), nil
}

func (s *SQLite) load(ctx context.Context, collection string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM documents WHERE collection = ? ORDER BY seq`, collection)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load collection %s: %v", ErrUnavailable, collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("%w: failed to scan document: %v", ErrUnavailable, err)
		}
		var d Document
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("failed to decode stored document in %s: %w", collection, err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed reading collection %s: %v", ErrUnavailable, collection, err)
	}
	return docs, nil
}

func (s *SQLite) Get(ctx context.Context, collection, idField, id string) (Document, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM documents WHERE collection = ? AND doc_id = ?`, collection, id).Scan(&raw)
	if err == sql.ErrNoRows {
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

func (s *SQLite) Insert(ctx context.Context, collection, idField string, docs ...Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin insert: %v", ErrUnavailable, err)
	}
	defer tx.Rollback()

	for _, d := range docs {
		id, _ := d.Lookup(idField)
		raw, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("failed to encode document for %s: %w", collection, err)
		}
		// Updates keep the original seq so insertion order survives.
		_, err = tx.ExecContext(ctx, `
			INSERT INTO documents (collection, doc_id, doc) VALUES (?, ?, ?)
			ON CONFLICT (collection, doc_id) DO UPDATE SET doc = excluded.doc`,
			collection, fmt.Sprint(id), raw)
		if err != nil {
			return fmt.Errorf("%w: failed to insert into %s: %v", ErrUnavailable, collection, err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) Close(context.Context) error {
	return s.db.Close()
}

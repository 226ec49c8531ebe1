// Package store adapts the tabular query protocol onto concrete document
// stores. MongoDB is the production backend; SQLite and Postgres back
// embedded and fixture deployments by evaluating the shared docfilter
// engine in process, which keeps type-aware comparison semantics identical
// regardless of the store's native collation.
package store

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/docgrid/docgrid/internal/docfilter"
	"github.com/docgrid/docgrid/internal/schema"
)

// ErrUnavailable wraps transport or backend failures. The HTTP layer maps
// it to a failed-to-load state rather than a protocol error.
var ErrUnavailable = errors.New("document store unavailable")

// ErrNotFound reports a missing document or collection.
var ErrNotFound = errors.New("document not found")

// Document is one schema-less record. Keys may be dot-paths flattened by
// the backend or nested maps; Lookup handles both.
type Document map[string]any

// Lookup resolves a dot-path against the document, descending into nested
// maps. A flattened key containing the literal path wins over descent.
func (d Document) Lookup(path string) (any, bool) {
	if v, ok := d[path]; ok {
		return v, true
	}
	parts := strings.Split(path, ".")
	var cur any = map[string]any(d)
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Sort orders a result set by one field's natural ordering. Backends break
// ties by insertion order so repeated requests page deterministically.
type Sort struct {
	Field schema.FieldDescriptor
	Desc  bool
}

// Query is a compiled tabular request: Global predicates are OR-ed, Filters
// are AND-ed, then the ordered result is sliced [Skip, Skip+Limit). A
// non-positive Limit returns all remaining documents.
type Query struct {
	Collection string
	Global     []docfilter.Predicate
	Filters    []docfilter.Predicate
	Sort       *Sort
	Skip       int
	Limit      int
}

// Result carries one page of documents plus the counts the protocol echoes.
type Result struct {
	Documents []Document
	Filtered  int
	Total     int
}

// Store is the document store collaborator contract. Implementations are
// stateless per call and safe for concurrent use.
type Store interface {
	// Query executes a compiled tabular query against one collection.
	Query(ctx context.Context, q Query) (Result, error)
	// Get fetches a single document by its identifier field value.
	Get(ctx context.Context, collection, idField, id string) (Document, error)
	// Insert adds documents, recording insertion order for sort
	// tie-breaking. idField names the document key used as identity.
	Insert(ctx context.Context, collection, idField string, docs ...Document) error
	// Close releases backend resources.
	Close(ctx context.Context) error
}

// evaluate runs a compiled query over a full collection snapshot in
// insertion order. Shared by every backend that filters in process.
func evaluate(docs []Document, q Query) Result {
	filtered := make([]Document, 0, len(docs))
	for _, d := range docs {
		if matches(d, q) {
			filtered = append(filtered, d)
		}
	}

	if q.Sort != nil {
		f := q.Sort.Field
		desc := q.Sort.Desc
		// Stable sort over an insertion-ordered snapshot gives the
		// protocol its insertion-order tie-break for free.
		sort.SliceStable(filtered, func(i, j int) bool {
			va, _ := filtered[i].Lookup(f.Name)
			vb, _ := filtered[j].Lookup(f.Name)
			c := docfilter.Compare(f, va, vb)
			if desc {
				c = -c
			}
			return c < 0
		})
	}

	total := len(docs)
	count := len(filtered)
	start := q.Skip
	if start < 0 {
		start = 0
	}
	if start > count {
		start = count
	}
	end := count
	if q.Limit > 0 && start+q.Limit < count {
		end = start + q.Limit
	}
	return Result{Documents: filtered[start:end], Filtered: count, Total: total}
}

func matches(d Document, q Query) bool {
	if len(q.Global) > 0 {
		hit := false
		for _, p := range q.Global {
			if p.Kind == docfilter.KindNone {
				continue
			}
			v, _ := d.Lookup(p.Field.Name)
			if p.MatchValue(v) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	for _, p := range q.Filters {
		if p.Kind == docfilter.KindNone {
			continue
		}
		v, _ := d.Lookup(p.Field.Name)
		if !p.MatchValue(v) {
			return false
		}
	}
	return true
}

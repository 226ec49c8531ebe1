package tabular

import (
	"context"
	"fmt"

	"github.com/docgrid/docgrid/internal/docfilter"
	"github.com/docgrid/docgrid/internal/schema"
	"github.com/docgrid/docgrid/internal/store"
)

// Execute compiles a request against the collection schema and runs it.
// The request itself is stateless; all statefulness lives client-side (the
// persisted column state) or in the backend store.
func Execute(ctx context.Context, st store.Store, s schema.Schema, req Request) (*Response, error) {
	q, err := Compile(s, req)
	if err != nil {
		return nil, err
	}

	result, err := st.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("tabular query for %s failed: %w", s.Collection, err)
	}

	data := result.Documents
	if data == nil {
		data = []store.Document{}
	}
	return &Response{
		Draw:            req.Draw,
		RecordsTotal:    result.Total,
		RecordsFiltered: result.Filtered,
		Data:            data,
	}, nil
}

// Compile translates the wire request into a backend query: the global
// term OR-ed across every field it can apply to, AND-ed with each
// non-empty column search compiled by field type. Column searches against
// non-searchable types compile to no-ops rather than errors.
func Compile(s schema.Schema, req Request) (store.Query, error) {
	q := store.Query{
		Collection: s.Collection,
		Skip:       req.Start,
		Limit:      req.Length,
	}

	if req.GlobalSearch != "" {
		for _, f := range s.Fields {
			q.Global = append(q.Global, docfilter.CompileGlobal(f, req.GlobalSearch))
		}
	}

	for i, term := range req.ColumnSearches {
		if term == "" {
			continue
		}
		f, ok := s.FieldAt(i)
		if !ok {
			return store.Query{}, fmt.Errorf("%w: search for column %d with %d columns",
				ErrMalformedRequest, i, s.Len())
		}
		if p := docfilter.CompileColumn(f, term); p.Kind != docfilter.KindNone {
			q.Filters = append(q.Filters, p)
		}
	}

	if req.HasSort {
		f, ok := s.FieldAt(req.SortColumn)
		if !ok {
			return store.Query{}, fmt.Errorf("%w: %d with %d columns",
				ErrInvalidSortColumn, req.SortColumn, s.Len())
		}
		q.Sort = &store.Sort{Field: f, Desc: req.SortDesc}
	}

	return q, nil
}

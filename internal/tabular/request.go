// Package tabular implements the server-driven grid query protocol:
// paging, global search, per-column search, and sort over one collection,
// using the DataTables wire shape.
package tabular

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/docgrid/docgrid/internal/schema"
	"github.com/docgrid/docgrid/internal/store"
)

var ErrInvalidSortColumn = errors.New("sort column index out of range")
var ErrMalformedRequest = errors.New("malformed tabular request")

// Request is one tabular query. ColumnSearches aligns 1:1 with schema
// column order; empty entries mean no filter for that column.
type Request struct {
	Draw           int
	Start          int
	Length         int
	GlobalSearch   string
	ColumnSearches []string
	SortColumn     int
	SortDesc       bool
	HasSort        bool
}

// Response echoes the request's draw counter so clients can discard stale
// responses, and reports both the unfiltered and filtered collection sizes
// independent of page size.
type Response struct {
	Draw            int              `json:"draw"`
	RecordsTotal    int              `json:"recordsTotal"`
	RecordsFiltered int              `json:"recordsFiltered"`
	Data            []store.Document `json:"data"`
}

// ParseRequest decodes the flat DataTables query-string shape: integer
// draw/start/length, search[value], columns[i][search][value] indexed by
// schema column order, and order[0][column] / order[0][dir].
func ParseRequest(values url.Values, s schema.Schema) (Request, error) {
	req := Request{Length: -1}

	var err error
	if req.Draw, err = intParam(values, "draw", 0); err != nil {
		return Request{}, err
	}
	if req.Start, err = intParam(values, "start", 0); err != nil {
		return Request{}, err
	}
	if req.Length, err = intParam(values, "length", -1); err != nil {
		return Request{}, err
	}
	if req.Start < 0 {
		return Request{}, fmt.Errorf("%w: negative start %d", ErrMalformedRequest, req.Start)
	}

	req.GlobalSearch = values.Get("search[value]")

	req.ColumnSearches = make([]string, s.Len())
	for i := range req.ColumnSearches {
		req.ColumnSearches[i] = values.Get(fmt.Sprintf("columns[%d][search][value]", i))
	}

	if col := values.Get("order[0][column]"); col != "" {
		idx, err := strconv.Atoi(col)
		if err != nil {
			return Request{}, fmt.Errorf("%w: bad order column %q", ErrMalformedRequest, col)
		}
		if idx < 0 || idx >= s.Len() {
			return Request{}, fmt.Errorf("%w: %d with %d columns", ErrInvalidSortColumn, idx, s.Len())
		}
		req.SortColumn = idx
		req.HasSort = true
		switch dir := values.Get("order[0][dir]"); dir {
		case "", "asc":
		case "desc":
			req.SortDesc = true
		default:
			return Request{}, fmt.Errorf("%w: bad sort direction %q", ErrMalformedRequest, dir)
		}
	}

	return req, nil
}

// Values encodes the request back into the wire shape ParseRequest
// accepts. Client transports use it to build query strings.
func (r Request) Values() url.Values {
	values := url.Values{}
	values.Set("draw", strconv.Itoa(r.Draw))
	values.Set("start", strconv.Itoa(r.Start))
	values.Set("length", strconv.Itoa(r.Length))
	if r.GlobalSearch != "" {
		values.Set("search[value]", r.GlobalSearch)
	}
	for i, term := range r.ColumnSearches {
		if term != "" {
			values.Set(fmt.Sprintf("columns[%d][search][value]", i), term)
		}
	}
	if r.HasSort {
		values.Set("order[0][column]", strconv.Itoa(r.SortColumn))
		dir := "asc"
		if r.SortDesc {
			dir = "desc"
		}
		values.Set("order[0][dir]", dir)
	}
	return values
}

func intParam(values url.Values, key string, def int) (int, error) {
	raw := values.Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrMalformedRequest, key, raw)
	}
	return n, nil
}

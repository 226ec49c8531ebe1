// Package gridclient binds the value renderer and the tabular query
// protocol to an interactive grid widget. The widget itself (DOM, paging
// controls, filter inputs) is an external collaborator; this package owns
// request sequencing, persisted column state, and cell rendering, and is
// deliberately free of browser dependencies so the same code runs in
// server-side tests and in a browser build.
package gridclient

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/docgrid/docgrid/internal/docfilter"
	"github.com/docgrid/docgrid/internal/layout"
	"github.com/docgrid/docgrid/internal/render"
	"github.com/docgrid/docgrid/internal/schema"
	"github.com/docgrid/docgrid/internal/store"
	"github.com/docgrid/docgrid/internal/tabular"
)

// Transport executes one tabular request against the server.
type Transport interface {
	Fetch(ctx context.Context, req tabular.Request) (*tabular.Response, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req tabular.Request) (*tabular.Response, error)

func (f TransportFunc) Fetch(ctx context.Context, req tabular.Request) (*tabular.Response, error) {
	return f(ctx, req)
}

// Cell is one rendered grid cell: the display markup and the plain filter
// key used for client-side re-filtering.
type Cell struct {
	Display string
	Filter  string
	Failed  bool
}

// Row is one rendered grid row plus its detail-page link.
type Row struct {
	Cells []Cell
	Href  string
}

// Update is delivered to the widget after a non-stale response.
type Update struct {
	Rows            []Row
	RecordsTotal    int
	RecordsFiltered int
}

// Grid drives one grid widget instance. A new query triggered by typing,
// sorting, or paging supersedes any in-flight one: responses are applied
// only when their sequence number is still the latest (last-request-wins
// by issue order, not arrival order).
type Grid struct {
	schema    schema.Schema
	columns   []layout.Column
	transport Transport
	states    StateStore
	stateKey  string
	onUpdate  func(Update)

	seq atomic.Int64

	mu       sync.Mutex
	searches []string
	global   string
	sortCol  int
	sortDesc bool
	hasSort  bool
	start    int
	length   int
}

// New builds a grid for one collection. stateKey identifies this grid
// instance in the state store; state is never shared across instances.
// onUpdate receives every applied result; it runs on the calling
// goroutine.
func New(s schema.Schema, transport Transport, states StateStore, stateKey string, pageLength int, onUpdate func(Update)) *Grid {
	g := &Grid{
		schema:    s,
		columns:   layout.Columns(s, layout.Grid),
		transport: transport,
		states:    states,
		stateKey:  stateKey,
		onUpdate:  onUpdate,
		searches:  make([]string, s.Len()),
		length:    pageLength,
	}
	g.restore()
	return g
}

// restore replays persisted column state if it has not expired.
func (g *Grid) restore() {
	if g.states == nil {
		return
	}
	st, ok := g.states.Load(g.stateKey)
	if !ok || len(st.Searches) != len(g.searches) {
		return
	}
	copy(g.searches, st.Searches)
	g.global = st.GlobalSearch
	g.sortCol, g.sortDesc, g.hasSort = st.SortColumn, st.SortDesc, st.HasSort
}

func (g *Grid) persist() {
	if g.states == nil {
		return
	}
	searches := make([]string, len(g.searches))
	copy(searches, g.searches)
	g.states.Save(g.stateKey, State{
		Searches:     searches,
		GlobalSearch: g.global,
		SortColumn:   g.sortCol,
		SortDesc:     g.sortDesc,
		HasSort:      g.hasSort,
	})
}

// Load issues the initial query, replaying any restored state.
func (g *Grid) Load(ctx context.Context) error {
	return g.refresh(ctx)
}

// SetColumnSearch updates one column's filter and reloads from the first
// page.
func (g *Grid) SetColumnSearch(ctx context.Context, column int, term string) error {
	g.mu.Lock()
	if column < 0 || column >= len(g.searches) {
		g.mu.Unlock()
		return fmt.Errorf("column %d out of range", column)
	}
	g.searches[column] = term
	g.start = 0
	g.persist()
	g.mu.Unlock()
	return g.refresh(ctx)
}

// SetGlobalSearch updates the cross-column search term and reloads from
// the first page. The term is persisted alongside the column state.
func (g *Grid) SetGlobalSearch(ctx context.Context, term string) error {
	g.mu.Lock()
	g.global = term
	g.start = 0
	g.persist()
	g.mu.Unlock()
	return g.refresh(ctx)
}

// SetSort changes the sort column/direction and reloads from the first
// page.
func (g *Grid) SetSort(ctx context.Context, column int, desc bool) error {
	g.mu.Lock()
	if column < 0 || column >= g.schema.Len() {
		g.mu.Unlock()
		return fmt.Errorf("%w: %d", tabular.ErrInvalidSortColumn, column)
	}
	g.sortCol, g.sortDesc, g.hasSort = column, desc, true
	g.start = 0
	g.persist()
	g.mu.Unlock()
	return g.refresh(ctx)
}

// SetPage moves to the page starting at the given row offset.
func (g *Grid) SetPage(ctx context.Context, start int) error {
	g.mu.Lock()
	g.start = start
	g.mu.Unlock()
	return g.refresh(ctx)
}

// refresh issues a sequence-numbered request. The response is discarded if
// a newer request was issued while it was in flight, or if the echoed draw
// does not match.
func (g *Grid) refresh(ctx context.Context) error {
	g.mu.Lock()
	req := tabular.Request{
		Start:          g.start,
		Length:         g.length,
		GlobalSearch:   g.global,
		ColumnSearches: append([]string(nil), g.searches...),
		SortColumn:     g.sortCol,
		SortDesc:       g.sortDesc,
		HasSort:        g.hasSort,
	}
	g.mu.Unlock()

	seq := g.seq.Add(1)
	req.Draw = int(seq)

	resp, err := g.transport.Fetch(ctx, req)
	if err != nil {
		return fmt.Errorf("grid %s: fetch failed: %w", g.stateKey, err)
	}
	if g.seq.Load() != seq || resp.Draw != req.Draw {
		// A newer request superseded this one while it was in flight.
		return nil
	}

	update := Update{
		Rows:            make([]Row, 0, len(resp.Data)),
		RecordsTotal:    resp.RecordsTotal,
		RecordsFiltered: resp.RecordsFiltered,
	}
	for _, doc := range resp.Data {
		update.Rows = append(update.Rows, g.RenderRow(doc))
	}
	if g.onUpdate != nil {
		g.onUpdate(update)
	}
	return nil
}

// RenderRow renders one document into grid cells, one per column in
// schema order (hidden columns included so the widget can reference rows
// by column index). A field that fails to render yields a failure
// indicator cell rather than dropping the row.
func (g *Grid) RenderRow(doc store.Document) Row {
	row := Row{Cells: make([]Cell, 0, len(g.columns))}
	for _, c := range g.columns {
		v, _ := doc.Lookup(c.Name)
		val, err := render.RenderValue(v, c.FieldDescriptor)
		if err != nil {
			row.Cells = append(row.Cells, Cell{Display: render.FailureIndicator(err), Failed: true})
			continue
		}
		row.Cells = append(row.Cells, Cell{Display: val.Display, Filter: val.Filter})
	}
	row.Href = g.RowHref(doc)
	return row
}

// RowHref is the detail-page link for a document, using the schema's
// identifier field: /{collection}/{id}.
func (g *Grid) RowHref(doc store.Document) string {
	idField := g.schema.IdentifierField()
	v, ok := doc.Lookup(idField.Name)
	if !ok {
		return ""
	}
	return "/" + url.PathEscape(g.schema.Collection) + "/" + url.PathEscape(fmt.Sprint(v))
}

// FilterLocal re-filters already-fetched documents by one column without a
// round trip, using the same predicate semantics as the server.
func (g *Grid) FilterLocal(docs []store.Document, column int, term string) []store.Document {
	f, ok := g.schema.FieldAt(column)
	if !ok {
		return docs
	}
	p := docfilter.CompileColumn(f, term)
	if p.Kind == docfilter.KindNone {
		return docs
	}
	out := make([]store.Document, 0, len(docs))
	for _, d := range docs {
		v, _ := d.Lookup(f.Name)
		if p.MatchValue(v) {
			out = append(out, d)
		}
	}
	return out
}

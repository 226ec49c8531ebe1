package gridclient

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docgrid/docgrid/internal/schema"
	"github.com/docgrid/docgrid/internal/store"
	"github.com/docgrid/docgrid/internal/tabular"
)

func testSchema() schema.Schema {
	return schema.Schema{
		Collection: "experiments",
		Fields: []schema.FieldDescriptor{
			{Name: "id", Title: "ID", Type: schema.Identifier, Hidden: true},
			{Name: "name", Title: "Name", Type: schema.String},
			{Name: "mass", Title: "Mass", Type: schema.Float, Precision: 2},
			{Name: "priority", Title: "Priority", Type: schema.Enum, Choices: []string{"High", "Low", "Medium"}},
		},
	}
}

func seedStore(t *testing.T) *store.Memory {
	t.Helper()
	m := store.NewMemory()
	require.NoError(t, m.Insert(context.Background(), "experiments", "id",
		store.Document{"id": "a", "name": "Alpha", "mass": 10.0, "priority": 2},
		store.Document{"id": "b", "name": "Beta", "mass": 5.0, "priority": 0},
		store.Document{"id": "c", "name": "Gamma", "mass": 1234.5, "priority": 1},
	))
	return m
}

// storeTransport serves requests straight from an in-memory store, the way
// the HTTP transport would after a round trip.
func storeTransport(s schema.Schema, st store.Store) TransportFunc {
	return func(ctx context.Context, req tabular.Request) (*tabular.Response, error) {
		return tabular.Execute(ctx, st, s, req)
	}
}

// updateRecorder captures applied updates for assertions.
type updateRecorder struct {
	mu      sync.Mutex
	updates []Update
}

func (r *updateRecorder) record(u Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *updateRecorder) all() []Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Update(nil), r.updates...)
}

func TestGridLoad(t *testing.T) {
	s := testSchema()
	rec := &updateRecorder{}
	g := New(s, storeTransport(s, seedStore(t)), nil, "experiments", 25, rec.record)

	require.NoError(t, g.Load(context.Background()))

	updates := rec.all()
	require.Len(t, updates, 1)
	assert.Equal(t, 3, updates[0].RecordsTotal)
	assert.Equal(t, 3, updates[0].RecordsFiltered)
	require.Len(t, updates[0].Rows, 3)
	// One cell per schema column, hidden id included.
	assert.Len(t, updates[0].Rows[0].Cells, 4)
}

func TestRenderRow(t *testing.T) {
	s := testSchema()
	g := New(s, storeTransport(s, seedStore(t)), nil, "experiments", 25, nil)

	row := g.RenderRow(store.Document{"id": "c", "name": "Gamma", "mass": 1234.5, "priority": 1})
	require.Len(t, row.Cells, 4)
	assert.Equal(t, Cell{Display: "c", Filter: "c"}, row.Cells[0])
	assert.Equal(t, Cell{Display: "Gamma", Filter: "Gamma"}, row.Cells[1])
	assert.Equal(t, Cell{Display: "1,234.50", Filter: "1,234.50"}, row.Cells[2])
	// Enum cells carry the label for display and the raw index for
	// filtering.
	assert.Equal(t, Cell{Display: "Low", Filter: "1"}, row.Cells[3])
	assert.Equal(t, "/experiments/c", row.Href)
}

func TestRenderRowFailureCell(t *testing.T) {
	s := testSchema()
	g := New(s, storeTransport(s, seedStore(t)), nil, "experiments", 25, nil)

	row := g.RenderRow(store.Document{"id": "x", "name": "Bad", "priority": 42})
	require.Len(t, row.Cells, 4)
	assert.True(t, row.Cells[3].Failed)
	assert.Contains(t, row.Cells[3].Display, "render-error")
	assert.False(t, row.Cells[1].Failed, "one bad cell never drops the row")
	assert.Equal(t, "Bad", row.Cells[1].Display)
}

func TestRowHref(t *testing.T) {
	s := testSchema()
	g := New(s, storeTransport(s, seedStore(t)), nil, "experiments", 25, nil)

	assert.Equal(t, "/experiments/abc123", g.RowHref(store.Document{"id": "abc123"}))
	assert.Equal(t, "/experiments/a%2Fb", g.RowHref(store.Document{"id": "a/b"}))
	assert.Empty(t, g.RowHref(store.Document{"name": "no id"}))
}

func TestColumnSearchResetsToFirstPage(t *testing.T) {
	s := testSchema()
	rec := &updateRecorder{}
	g := New(s, storeTransport(s, seedStore(t)), nil, "experiments", 2, rec.record)
	ctx := context.Background()

	require.NoError(t, g.SetPage(ctx, 2))
	require.NoError(t, g.SetColumnSearch(ctx, 1, "a"))

	updates := rec.all()
	require.Len(t, updates, 2)
	// Page 2 of 3 rows holds one row; the new filter restarts at row 0.
	assert.Len(t, updates[0].Rows, 1)
	require.NotEmpty(t, updates[1].Rows)
	assert.Equal(t, "Alpha", updates[1].Rows[0].Cells[1].Display)
}

func TestSetGlobalSearch(t *testing.T) {
	s := testSchema()
	rec := &updateRecorder{}
	g := New(s, storeTransport(s, seedStore(t)), nil, "experiments", 2, rec.record)
	ctx := context.Background()

	require.NoError(t, g.SetPage(ctx, 2))
	require.NoError(t, g.SetGlobalSearch(ctx, "al"))

	updates := rec.all()
	require.Len(t, updates, 2)
	// The term reaches the server and restarts paging at row 0.
	assert.Equal(t, 1, updates[1].RecordsFiltered)
	require.Len(t, updates[1].Rows, 1)
	assert.Equal(t, "Alpha", updates[1].Rows[0].Cells[1].Display)

	require.NoError(t, g.SetGlobalSearch(ctx, ""))
	updates = rec.all()
	require.Len(t, updates, 3)
	assert.Equal(t, 3, updates[2].RecordsFiltered, "clearing the term restores the full set")
}

func TestGlobalSearchPersisted(t *testing.T) {
	s := testSchema()
	st := seedStore(t)
	ctx := context.Background()

	states := NewMemoryStateStore(time.Minute)

	g1 := New(s, storeTransport(s, st), states, "experiments", 25, nil)
	require.NoError(t, g1.SetGlobalSearch(ctx, "gam"))

	rec := &updateRecorder{}
	g2 := New(s, storeTransport(s, st), states, "experiments", 25, rec.record)
	require.NoError(t, g2.Load(ctx))

	updates := rec.all()
	require.Len(t, updates, 1)
	assert.Equal(t, 1, updates[0].RecordsFiltered)
	require.Len(t, updates[0].Rows, 1)
	assert.Equal(t, "Gamma", updates[0].Rows[0].Cells[1].Display)
}

func TestSetSortValidatesColumn(t *testing.T) {
	s := testSchema()
	g := New(s, storeTransport(s, seedStore(t)), nil, "experiments", 25, nil)

	err := g.SetSort(context.Background(), 99, false)
	require.ErrorIs(t, err, tabular.ErrInvalidSortColumn)
}

func TestStaleResponseDiscarded(t *testing.T) {
	s := testSchema()
	st := seedStore(t)
	rec := &updateRecorder{}

	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})
	transport := TransportFunc(func(ctx context.Context, req tabular.Request) (*tabular.Response, error) {
		if req.Draw == 1 {
			close(firstStarted)
			<-releaseFirst
		}
		return tabular.Execute(ctx, st, s, req)
	})

	g := New(s, transport, nil, "experiments", 25, rec.record)
	ctx := context.Background()

	firstDone := make(chan error, 1)
	go func() { firstDone <- g.Load(ctx) }()
	<-firstStarted

	// A second request supersedes the one still in flight.
	require.NoError(t, g.SetPage(ctx, 2))
	close(releaseFirst)
	require.NoError(t, <-firstDone)

	updates := rec.all()
	require.Len(t, updates, 1, "superseded response must not reach the widget")
	assert.Len(t, updates[0].Rows, 1)
}

func TestMismatchedDrawDiscarded(t *testing.T) {
	s := testSchema()
	rec := &updateRecorder{}
	transport := TransportFunc(func(ctx context.Context, req tabular.Request) (*tabular.Response, error) {
		return &tabular.Response{Draw: req.Draw + 100, Data: []store.Document{}}, nil
	})

	g := New(s, transport, nil, "experiments", 25, rec.record)
	require.NoError(t, g.Load(context.Background()))
	assert.Empty(t, rec.all())
}

func TestStateRestore(t *testing.T) {
	s := testSchema()
	st := seedStore(t)
	ctx := context.Background()

	current := time.Now()
	states := NewMemoryStateStore(time.Minute)
	states.now = func() time.Time { return current }

	g1 := New(s, storeTransport(s, st), states, "experiments", 25, nil)
	require.NoError(t, g1.SetColumnSearch(ctx, 1, "al"))
	require.NoError(t, g1.SetSort(ctx, 2, true))

	t.Run("a reload within the TTL restores the view", func(t *testing.T) {
		rec := &updateRecorder{}
		g2 := New(s, storeTransport(s, st), states, "experiments", 25, rec.record)
		require.NoError(t, g2.Load(ctx))

		updates := rec.all()
		require.Len(t, updates, 1)
		assert.Equal(t, 1, updates[0].RecordsFiltered)
		require.Len(t, updates[0].Rows, 1)
		assert.Equal(t, "Alpha", updates[0].Rows[0].Cells[1].Display)
	})

	t.Run("state keys separate grid instances", func(t *testing.T) {
		rec := &updateRecorder{}
		g3 := New(s, storeTransport(s, st), states, "other-grid", 25, rec.record)
		require.NoError(t, g3.Load(ctx))
		assert.Equal(t, 3, rec.all()[0].RecordsFiltered)
	})

	t.Run("expired state reverts to defaults", func(t *testing.T) {
		current = current.Add(2 * time.Minute)
		rec := &updateRecorder{}
		g4 := New(s, storeTransport(s, st), states, "experiments", 25, rec.record)
		require.NoError(t, g4.Load(ctx))
		assert.Equal(t, 3, rec.all()[0].RecordsFiltered)
	})
}

func TestFilterLocal(t *testing.T) {
	s := testSchema()
	g := New(s, storeTransport(s, seedStore(t)), nil, "experiments", 25, nil)

	docs := []store.Document{
		{"id": "a", "name": "Alpha", "mass": 10.0},
		{"id": "b", "name": "Beta", "mass": 5.0},
	}

	out := g.FilterLocal(docs, 1, "alp")
	require.Len(t, out, 1)
	assert.Equal(t, "Alpha", out[0]["name"])

	assert.Len(t, g.FilterLocal(docs, 99, "x"), 2, "unknown columns filter nothing")
	assert.Len(t, g.FilterLocal(docs, 1, ""), 2, "blank terms filter nothing")
}

func TestMemoryStateStore(t *testing.T) {
	current := time.Now()
	s := NewMemoryStateStore(time.Minute)
	s.now = func() time.Time { return current }

	s.Save("k", State{Searches: []string{"a"}})

	st, ok := s.Load("k")
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, st.Searches)
	assert.Equal(t, current, st.SavedAt)

	current = current.Add(59 * time.Second)
	_, ok = s.Load("k")
	assert.True(t, ok)

	current = current.Add(2 * time.Second)
	_, ok = s.Load("k")
	assert.False(t, ok)

	s.Save("k2", State{})
	s.Clear("k2")
	_, ok = s.Load("k2")
	assert.False(t, ok)
}

// Package detail composes the static key/value view of a single document.
// It renders through the same Value Renderer as the grid, which is what
// keeps the two presentation modes value-identical.
package detail

import (
	"github.com/docgrid/docgrid/internal/layout"
	"github.com/docgrid/docgrid/internal/render"
	"github.com/docgrid/docgrid/internal/schema"
	"github.com/docgrid/docgrid/internal/store"
)

// Row is one label/value pair of the detail table.
type Row struct {
	Label   string
	Display string
	// Failed marks a field whose value could not be rendered; Display
	// then carries the failure indicator, not a value.
	Failed bool
}

// Compose renders every visible field of a document in layout order. A
// field that fails to render yields a failure-indicator row; one bad field
// never blanks the page.
func Compose(s schema.Schema, doc store.Document, order []string) []Row {
	cols := layout.ColumnsOrdered(s, layout.Detail, order)
	rows := make([]Row, 0, len(cols))
	for _, c := range cols {
		v, _ := doc.Lookup(c.Name)
		display, err := render.Render(v, c.FieldDescriptor, render.Display)
		if err != nil {
			rows = append(rows, Row{
				Label:   c.DisplayTitle(),
				Display: render.FailureIndicator(err),
				Failed:  true,
			})
			continue
		}
		rows = append(rows, Row{Label: c.DisplayTitle(), Display: display})
	}
	return rows
}

// Package layout decides which schema fields appear in which presentation
// mode and in what order.
package layout

import "github.com/docgrid/docgrid/internal/schema"

// ViewMode distinguishes the interactive grid from the static detail view.
type ViewMode string

const (
	Grid   ViewMode = "grid"
	Detail ViewMode = "detail"
)

// Column is a field descriptor plus its visibility in the chosen mode.
type Column struct {
	schema.FieldDescriptor
	Visible bool
}

// Columns selects and orders fields for a mode. Grid mode keeps hidden
// fields in the column list (the grid references rows by column index, so
// an identifier column must stay addressable) but marks them non-visible.
// Detail mode omits hidden fields entirely.
func Columns(s schema.Schema, mode ViewMode) []Column {
	cols := make([]Column, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.Hidden && mode == Detail {
			continue
		}
		cols = append(cols, Column{FieldDescriptor: f, Visible: !f.Hidden})
	}
	return cols
}

// ColumnsOrdered applies an explicit field-name order override, used when a
// detail view wants a different layout than schema order. Names not present
// in the schema are skipped; fields absent from the override keep their
// schema order after the ordered ones.
func ColumnsOrdered(s schema.Schema, mode ViewMode, order []string) []Column {
	if len(order) == 0 {
		return Columns(s, mode)
	}
	base := Columns(s, mode)
	byName := make(map[string]Column, len(base))
	for _, c := range base {
		byName[c.Name] = c
	}
	out := make([]Column, 0, len(base))
	taken := make(map[string]bool, len(order))
	for _, name := range order {
		if c, ok := byName[name]; ok && !taken[name] {
			out = append(out, c)
			taken[name] = true
		}
	}
	for _, c := range base {
		if !taken[c.Name] {
			out = append(out, c)
		}
	}
	return out
}

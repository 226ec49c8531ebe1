package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/docgrid/docgrid/internal/schema"
)

func testSchema() schema.Schema {
	return schema.Schema{
		Collection: "experiments",
		Fields: []schema.FieldDescriptor{
			{Name: "id", Type: schema.Identifier, Hidden: true},
			{Name: "name", Type: schema.String},
			{Name: "mass", Type: schema.Float, Precision: 2},
			{Name: "notes", Type: schema.String, Hidden: true},
		},
	}
}

func columnNames(cols []Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

func TestColumnsGridMode(t *testing.T) {
	cols := Columns(testSchema(), Grid)
	// Hidden fields stay addressable by column index, just not visible.
	assert.Equal(t, []string{"id", "name", "mass", "notes"}, columnNames(cols))
	assert.False(t, cols[0].Visible)
	assert.True(t, cols[1].Visible)
	assert.True(t, cols[2].Visible)
	assert.False(t, cols[3].Visible)
}

func TestColumnsDetailMode(t *testing.T) {
	cols := Columns(testSchema(), Detail)
	assert.Equal(t, []string{"name", "mass"}, columnNames(cols))
	for _, c := range cols {
		assert.True(t, c.Visible)
	}
}

func TestColumnsOrdered(t *testing.T) {
	s := testSchema()

	t.Run("override moves named fields to the front", func(t *testing.T) {
		cols := ColumnsOrdered(s, Detail, []string{"mass"})
		assert.Equal(t, []string{"mass", "name"}, columnNames(cols))
	})

	t.Run("unknown and duplicate names are skipped", func(t *testing.T) {
		cols := ColumnsOrdered(s, Detail, []string{"bogus", "mass", "mass"})
		assert.Equal(t, []string{"mass", "name"}, columnNames(cols))
	})

	t.Run("empty override keeps schema order", func(t *testing.T) {
		cols := ColumnsOrdered(s, Grid, nil)
		assert.Equal(t, columnNames(Columns(s, Grid)), columnNames(cols))
	})

	t.Run("override cannot resurrect hidden detail fields", func(t *testing.T) {
		cols := ColumnsOrdered(s, Detail, []string{"id", "name"})
		assert.Equal(t, []string{"name", "mass"}, columnNames(cols))
	})
}

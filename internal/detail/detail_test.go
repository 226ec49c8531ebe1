package detail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docgrid/docgrid/internal/schema"
	"github.com/docgrid/docgrid/internal/store"
)

func testSchema() schema.Schema {
	return schema.Schema{
		Collection: "experiments",
		Fields: []schema.FieldDescriptor{
			{Name: "id", Title: "ID", Type: schema.Identifier, Hidden: true},
			{Name: "name", Title: "Name", Type: schema.String},
			{Name: "mass", Title: "Mass (g)", Type: schema.Float, Precision: 2},
			{Name: "priority", Title: "Priority", Type: schema.Enum, Choices: []string{"High", "Low", "Medium"}},
			{Name: "owner", Title: "Owner", Type: schema.Relation, RelatedCollection: "users"},
		},
	}
}

func TestCompose(t *testing.T) {
	doc := store.Document{
		"id":       "exp1",
		"name":     "Trial",
		"mass":     1234.5,
		"priority": 2,
		"owner":    "abc123",
	}

	rows := Compose(testSchema(), doc, nil)
	require.Len(t, rows, 4, "hidden fields are omitted")

	assert.Equal(t, Row{Label: "Name", Display: "Trial"}, rows[0])
	assert.Equal(t, Row{Label: "Mass (g)", Display: "1,234.50"}, rows[1])
	assert.Equal(t, Row{Label: "Priority", Display: "Medium"}, rows[2])
	assert.Equal(t, Row{Label: "Owner", Display: `<a href="/users/abc123">abc123</a>`}, rows[3])
}

func TestComposeMissingValues(t *testing.T) {
	rows := Compose(testSchema(), store.Document{"id": "exp1"}, nil)
	require.Len(t, rows, 4)
	for _, r := range rows {
		assert.False(t, r.Failed)
		assert.Empty(t, r.Display)
	}
}

func TestComposeRenderFailureIsIsolated(t *testing.T) {
	doc := store.Document{
		"name":     "Trial",
		"priority": 99,
	}

	rows := Compose(testSchema(), doc, nil)
	require.Len(t, rows, 4)

	assert.Equal(t, "Trial", rows[0].Display)
	assert.True(t, rows[2].Failed)
	assert.Contains(t, rows[2].Display, "render-error")
	assert.False(t, rows[3].Failed, "one bad field never blanks the page")
}

func TestComposeOrderOverride(t *testing.T) {
	doc := store.Document{"name": "Trial", "mass": 2.0}
	rows := Compose(testSchema(), doc, []string{"mass", "name"})
	require.Len(t, rows, 4)
	assert.Equal(t, "Mass (g)", rows[0].Label)
	assert.Equal(t, "Name", rows[1].Label)
}

package web

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docgrid/docgrid/internal/render"
	"github.com/docgrid/docgrid/internal/schema"
)

// The golden table at static/parity.json pins the renderer's output for
// every field type, including the rounding ties, offset datetimes, and
// negative durations where formatter implementations typically disagree.
// The file is served to the browser, so the grid widget's renderer can be
// replayed against the exact same cases; any change here changes both
// checks at once.
func TestRenderParityFixtures(t *testing.T) {
	raw, err := staticFS.ReadFile("static/parity.json")
	require.NoError(t, err)

	var cases []struct {
		Name    string                 `json:"name"`
		Field   schema.FieldDescriptor `json:"field"`
		Value   any                    `json:"value"`
		Display string                 `json:"display"`
	}
	require.NoError(t, json.Unmarshal(raw, &cases))
	require.NotEmpty(t, cases)

	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			got, err := render.Render(tc.Value, tc.Field, render.Display)
			require.NoError(t, err)
			assert.Equal(t, tc.Display, got)
		})
	}
}

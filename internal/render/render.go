// Package render formats document field values for presentation. It is the
// single implementation behind both the grid cell path and the detail page
// path, so any change here changes both contexts at once.
package render

import (
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"

	"github.com/docgrid/docgrid/internal/schema"
)

// Mode selects which representation Render produces.
type Mode int

const (
	// Display produces the user-visible string, possibly carrying markup
	// (an anchor for relations, a glyph token for booleans).
	Display Mode = iota
	// Filter produces the plain comparison key used for client-side
	// re-filtering of already-fetched rows. For enums this is the raw
	// stored index, not the label.
	Filter
)

// Value is the rendered form of one field of one document.
type Value struct {
	Display string
	Filter  string
}

// Boolean glyph tokens. Fixed markup keeps dual-render parity byte-exact.
const (
	GlyphTrue  = `<span class="bool-glyph bool-yes">` + glyphYes + `</span>`
	GlyphFalse = `<span class="bool-glyph bool-no">` + glyphNo + `</span>`

	glyphYes = "✓"
	glyphNo  = "✗"
)

// Render formats a single value according to its field descriptor. It is a
// pure function of its arguments and safe for concurrent use. A nil value
// renders to the empty string for every type except boolean (false glyph)
// and array (empty sequence), and never errors.
func Render(v any, f schema.FieldDescriptor, mode Mode) (string, error) {
	if v == nil {
		switch f.Type {
		case schema.Boolean:
			return renderBool(false, mode), nil
		default:
			return "", nil
		}
	}

	switch f.Type {
	case schema.Identifier, schema.String:
		return html.EscapeString(asString(v)), nil

	case schema.Boolean:
		b, err := asBool(v)
		if err != nil {
			return "", fmt.Errorf("field %q: %w", f.Name, err)
		}
		return renderBool(b, mode), nil

	case schema.Integer:
		n, err := asInt(v)
		if err != nil {
			return "", fmt.Errorf("field %q: %w", f.Name, err)
		}
		return groupThousands(strconv.FormatInt(n, 10)), nil

	case schema.Float:
		x, err := asFloat(v)
		if err != nil {
			return "", fmt.Errorf("field %q: %w", f.Name, err)
		}
		return groupThousands(strconv.FormatFloat(x, 'f', f.Precision, 64)), nil

	case schema.Scientific:
		x, err := asFloat(v)
		if err != nil {
			return "", fmt.Errorf("field %q: %w", f.Name, err)
		}
		return strconv.FormatFloat(x, 'e', f.Precision, 64), nil

	case schema.Relation:
		return renderRelation(asString(v), f, mode), nil

	case schema.Date:
		t, err := asTime(v)
		if err != nil {
			return "", fmt.Errorf("field %q: %w", f.Name, err)
		}
		return t.Format("02-Jan-2006"), nil

	case schema.Datetime:
		t, err := asTime(v)
		if err != nil {
			return "", fmt.Errorf("field %q: %w", f.Name, err)
		}
		return t.Format("02-Jan-2006 15:04:05"), nil

	case schema.Time:
		secs, err := asInt(v)
		if err != nil {
			return "", fmt.Errorf("field %q: %w", f.Name, err)
		}
		return formatDuration(secs), nil

	case schema.Enum:
		idx, err := asInt(v)
		if err != nil {
			return "", fmt.Errorf("field %q: %w", f.Name, err)
		}
		if idx < 0 || idx >= int64(len(f.Choices)) {
			return "", fmt.Errorf("field %q: %w: index %d with %d choices",
				f.Name, ErrChoiceOutOfRange, idx, len(f.Choices))
		}
		if mode == Filter {
			return strconv.FormatInt(idx, 10), nil
		}
		return html.EscapeString(f.Choices[idx]), nil

	case schema.Array:
		return renderArray(v, f, mode)

	default:
		return "", fmt.Errorf("field %q: %w: %q", f.Name, schema.ErrUnsupportedFieldType, f.Type)
	}
}

// RenderValue renders both modes in one call.
func RenderValue(v any, f schema.FieldDescriptor) (Value, error) {
	display, err := Render(v, f, Display)
	if err != nil {
		return Value{}, err
	}
	filter, err := Render(v, f, Filter)
	if err != nil {
		return Value{}, err
	}
	return Value{Display: display, Filter: filter}, nil
}

// FailureIndicator is the cell-level marker for a field that failed to
// render. One bad field must not blank the surrounding page, so callers
// substitute this token instead of propagating the error upward.
func FailureIndicator(err error) string {
	return `<span class="render-error" title="` + html.EscapeString(err.Error()) + `">&#9888;</span>`
}

func renderBool(b bool, mode Mode) string {
	if mode == Filter {
		if b {
			return glyphYes
		}
		return glyphNo
	}
	if b {
		return GlyphTrue
	}
	return GlyphFalse
}

func renderRelation(id string, f schema.FieldDescriptor, mode Mode) string {
	if id == "" {
		return ""
	}
	if mode == Filter {
		return id
	}
	href := "/" + url.PathEscape(f.RelatedCollection) + "/" + url.PathEscape(id)
	return `<a href="` + href + `">` + html.EscapeString(id) + `</a>`
}

func renderArray(v any, f schema.FieldDescriptor, mode Mode) (string, error) {
	elems, err := asSlice(v)
	if err != nil {
		return "", fmt.Errorf("field %q: %w", f.Name, err)
	}
	if len(elems) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(elems))
	for _, e := range elems {
		s, err := Render(e, *f.Element, mode)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ", "), nil
}

// groupThousands inserts comma separators into the integer part of a
// formatted decimal number.
func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	if len(intPart) <= 3 {
		return sign + intPart + frac
	}
	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	return sign + b.String() + frac
}

// formatDuration renders a duration in whole seconds as mm:ss. Durations
// of an hour or more keep accumulating minutes rather than rolling over.
func formatDuration(secs int64) string {
	neg := ""
	if secs < 0 {
		neg, secs = "-", -secs
	}
	return fmt.Sprintf("%s%02d:%02d", neg, secs/60, secs%60)
}

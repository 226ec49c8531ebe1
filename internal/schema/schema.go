package schema

import (
	"errors"
	"fmt"
)

var ErrUnknownCollection = errors.New("no schema registered for collection")
var ErrUnsupportedFieldType = errors.New("unsupported field type")

// FieldType is the closed set of renderable field types. Every renderer and
// every query translation switches exhaustively over these values.
type FieldType string

const (
	Identifier FieldType = "identifier"
	String     FieldType = "string"
	Boolean    FieldType = "boolean"
	Integer    FieldType = "integer"
	Float      FieldType = "float"
	Scientific FieldType = "scientific"
	Relation   FieldType = "relation"
	Date       FieldType = "date"
	Datetime   FieldType = "datetime"
	Time       FieldType = "time"
	Array      FieldType = "array"
	Enum       FieldType = "enum"
)

var fieldTypes = map[FieldType]bool{
	Identifier: true, String: true, Boolean: true, Integer: true,
	Float: true, Scientific: true, Relation: true, Date: true,
	Datetime: true, Time: true, Array: true, Enum: true,
}

// Valid reports whether t is a member of the closed type enum.
func (t FieldType) Valid() bool { return fieldTypes[t] }

// Searchable reports whether a per-column search term can be translated
// into a backend predicate for this type. Arrays and booleans are not
// column-searchable; their search entries are ignored rather than rejected.
func (t FieldType) Searchable() bool {
	switch t {
	case Array, Boolean:
		return false
	default:
		return true
	}
}

// Textual reports whether global search should substring-match this type.
func (t FieldType) Textual() bool {
	switch t {
	case Identifier, String, Relation:
		return true
	default:
		return false
	}
}

// Numeric reports whether values order and compare numerically.
func (t FieldType) Numeric() bool {
	switch t {
	case Integer, Float, Scientific, Time, Enum:
		return true
	default:
		return false
	}
}

// Temporal reports whether values order chronologically.
func (t FieldType) Temporal() bool {
	return t == Date || t == Datetime
}

// FieldDescriptor declares one displayable field of a collection. Name is a
// dot-path into the document, so related and nested lookups need no special
// casing anywhere downstream. Descriptors are built once at process start
// and shared read-only by every renderer and by the query protocol.
type FieldDescriptor struct {
	Name              string           `yaml:"name" json:"name" validate:"required,min=1,max=255"`
	Title             string           `yaml:"title" json:"title"`
	Type              FieldType        `yaml:"type" json:"type" validate:"required"`
	Hidden            bool             `yaml:"hidden" json:"hidden,omitempty"`
	Precision         int              `yaml:"precision" json:"precision,omitempty" validate:"min=0,max=12"`
	Choices           []string         `yaml:"choices" json:"choices,omitempty"`
	RelatedCollection string           `yaml:"related" json:"related,omitempty"`
	Element           *FieldDescriptor `yaml:"element" json:"element,omitempty"`
}

// DisplayTitle falls back to the field name when no title was declared.
func (f FieldDescriptor) DisplayTitle() string {
	if f.Title != "" {
		return f.Title
	}
	return f.Name
}

func (f FieldDescriptor) validate() error {
	if !f.Type.Valid() {
		return fmt.Errorf("field %q: %w: %q", f.Name, ErrUnsupportedFieldType, f.Type)
	}
	if f.Type == Enum && len(f.Choices) == 0 {
		return fmt.Errorf("field %q: enum fields need at least one choice", f.Name)
	}
	if f.Type != Enum && len(f.Choices) > 0 {
		return fmt.Errorf("field %q: choices are only valid for enum fields", f.Name)
	}
	if f.Type == Relation && f.RelatedCollection == "" {
		return fmt.Errorf("field %q: relation fields need a related collection", f.Name)
	}
	if f.Type == Array {
		if f.Element == nil {
			return fmt.Errorf("field %q: array fields need an element descriptor", f.Name)
		}
		if f.Element.Type == Array {
			return fmt.Errorf("field %q: nested array elements are not supported", f.Name)
		}
		if err := f.Element.validate(); err != nil {
			return fmt.Errorf("field %q element: %w", f.Name, err)
		}
	}
	if f.Element != nil && f.Type != Array {
		return fmt.Errorf("field %q: element descriptor is only valid for array fields", f.Name)
	}
	if f.Precision > 0 && f.Type != Float && f.Type != Scientific {
		return fmt.Errorf("field %q: precision is only meaningful for float and scientific fields", f.Name)
	}
	return nil
}

// Schema is the ordered, immutable field list for one collection. Field
// order fixes column order in the grid and row order in the detail view.
type Schema struct {
	Collection string            `yaml:"collection" validate:"required,min=1,max=255"`
	Fields     []FieldDescriptor `yaml:"fields" validate:"required,min=1,dive"`
}

// Len returns the number of declared fields.
func (s Schema) Len() int { return len(s.Fields) }

// FieldAt returns the descriptor at the given column index.
func (s Schema) FieldAt(i int) (FieldDescriptor, bool) {
	if i < 0 || i >= len(s.Fields) {
		return FieldDescriptor{}, false
	}
	return s.Fields[i], true
}

// IdentifierField returns the field used for row identification: the first
// identifier-typed field, falling back to the first field.
func (s Schema) IdentifierField() FieldDescriptor {
	for _, f := range s.Fields {
		if f.Type == Identifier {
			return f
		}
	}
	return s.Fields[0]
}

func (s Schema) validate() error {
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if seen[f.Name] {
			return fmt.Errorf("collection %q: duplicate field name %q", s.Collection, f.Name)
		}
		seen[f.Name] = true
		if err := f.validate(); err != nil {
			return fmt.Errorf("collection %q: %w", s.Collection, err)
		}
	}
	return nil
}

package schema

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Registry holds the schema for every known collection. It is populated
// once at startup and read-only afterwards, so lookups need no locking.
type Registry struct {
	schemas map[string]Schema
	order   []string
}

func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]Schema)}
}

// Register adds a validated schema. Registration order is preserved for
// navigation listings.
func (r *Registry) Register(s Schema) error {
	if err := validator.New().Struct(s); err != nil {
		return fmt.Errorf("schema for %q failed validation: %w", s.Collection, err)
	}
	if err := s.validate(); err != nil {
		return err
	}
	if _, dup := r.schemas[s.Collection]; dup {
		return fmt.Errorf("schema for collection %q registered twice", s.Collection)
	}
	r.schemas[s.Collection] = s
	r.order = append(r.order, s.Collection)
	return nil
}

// Get returns the schema for a collection.
func (r *Registry) Get(collection string) (Schema, error) {
	s, ok := r.schemas[collection]
	if !ok {
		return Schema{}, fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	return s, nil
}

// Collections lists registered collection names in registration order.
func (r *Registry) Collections() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// LoadFile reads a YAML schema file holding a list of collection schemas
// and returns a populated registry.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a registry from YAML schema definitions.
func Parse(data []byte) (*Registry, error) {
	var doc struct {
		Collections []Schema `yaml:"collections"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse schema definitions: %w", err)
	}
	if len(doc.Collections) == 0 {
		return nil, fmt.Errorf("schema definitions contain no collections")
	}
	reg := NewRegistry()
	for _, s := range doc.Collections {
		if err := reg.Register(s); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

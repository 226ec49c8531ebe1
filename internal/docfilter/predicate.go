// Package docfilter implements the type-aware predicate and ordering
// semantics of the tabular query protocol. It operates on plain values so
// that every backend (and the client-side re-filter path) shares a single
// implementation instead of re-deriving comparison rules per store.
package docfilter

import (
	"strconv"
	"strings"
	"time"

	"github.com/docgrid/docgrid/internal/schema"
)

// Kind tags the compiled form of one search term.
type Kind int

const (
	// KindNone marks a term that compiles to no predicate at all, either
	// because the field type is not searchable or because the term cannot
	// be interpreted for the type. KindNone predicates match nothing in a
	// global search and are ignored in column searches.
	KindNone Kind = iota
	KindSubstring
	KindEquals
	KindNumberRange
	KindTimeRange
	KindIndexIn
)

// Predicate is a search term compiled against one field descriptor. The
// Mongo backend translates predicates to native operators; the embedded
// backends evaluate them in process via MatchValue.
type Predicate struct {
	Field schema.FieldDescriptor
	Kind  Kind

	Term    string // KindSubstring (case-folded), KindEquals (exact raw)
	NumLo   *float64
	NumHi   *float64 // KindNumberRange bounds, either may be open
	TimeLo  time.Time
	TimeHi  time.Time // KindTimeRange, half-open [lo, hi)
	Indices []int64   // KindIndexIn choice indices
}

// CompileColumn interprets a per-column search term: substring match for
// string-like types, exact-or-range for numeric and date types, exact raw
// value for relation and enum. Terms on non-searchable types compile to
// KindNone and are ignored by the executor.
func CompileColumn(f schema.FieldDescriptor, term string) Predicate {
	term = strings.TrimSpace(term)
	if term == "" || !f.Type.Searchable() {
		return Predicate{Field: f, Kind: KindNone}
	}
	switch f.Type {
	case schema.Identifier, schema.String:
		return Predicate{Field: f, Kind: KindSubstring, Term: strings.ToLower(term)}
	case schema.Relation:
		return Predicate{Field: f, Kind: KindEquals, Term: term}
	case schema.Integer, schema.Float, schema.Scientific, schema.Time:
		return compileNumber(f, term)
	case schema.Date, schema.Datetime:
		return compileTime(f, term)
	case schema.Enum:
		if idx, err := strconv.ParseInt(term, 10, 64); err == nil {
			return Predicate{Field: f, Kind: KindIndexIn, Indices: []int64{idx}}
		}
		return labelMatches(f, term)
	default:
		return Predicate{Field: f, Kind: KindNone}
	}
}

// CompileGlobal interprets the global search term for one field: substring
// for textual types, exact value for numeric types when the term parses as
// a number, label substring for enums, day/instant match for dates. Fields
// the term cannot apply to compile to KindNone and drop out of the OR.
func CompileGlobal(f schema.FieldDescriptor, term string) Predicate {
	term = strings.TrimSpace(term)
	if term == "" {
		return Predicate{Field: f, Kind: KindNone}
	}
	switch {
	case f.Type.Textual():
		return Predicate{Field: f, Kind: KindSubstring, Term: strings.ToLower(term)}
	case f.Type == schema.Enum:
		return labelMatches(f, term)
	case f.Type == schema.Integer || f.Type == schema.Float ||
		f.Type == schema.Scientific || f.Type == schema.Time:
		if x, err := strconv.ParseFloat(term, 64); err == nil {
			return Predicate{Field: f, Kind: KindNumberRange, NumLo: &x, NumHi: &x}
		}
		return Predicate{Field: f, Kind: KindNone}
	case f.Type == schema.Date || f.Type == schema.Datetime:
		if p := compileTime(f, term); p.Kind == KindTimeRange {
			return p
		}
		return Predicate{Field: f, Kind: KindNone}
	default:
		return Predicate{Field: f, Kind: KindNone}
	}
}

// compileNumber accepts an exact value or a "lo..hi" range with either
// bound optional.
func compileNumber(f schema.FieldDescriptor, term string) Predicate {
	if lo, hi, ok := strings.Cut(term, ".."); ok {
		p := Predicate{Field: f, Kind: KindNumberRange}
		if lo = strings.TrimSpace(lo); lo != "" {
			x, err := strconv.ParseFloat(lo, 64)
			if err != nil {
				return Predicate{Field: f, Kind: KindNone}
			}
			p.NumLo = &x
		}
		if hi = strings.TrimSpace(hi); hi != "" {
			x, err := strconv.ParseFloat(hi, 64)
			if err != nil {
				return Predicate{Field: f, Kind: KindNone}
			}
			p.NumHi = &x
		}
		if p.NumLo == nil && p.NumHi == nil {
			return Predicate{Field: f, Kind: KindNone}
		}
		return p
	}
	x, err := strconv.ParseFloat(term, 64)
	if err != nil {
		return Predicate{Field: f, Kind: KindNone}
	}
	return Predicate{Field: f, Kind: KindNumberRange, NumLo: &x, NumHi: &x}
}

// compileTime accepts "YYYY-MM-DD" (matches the whole day), a full RFC3339
// or "YYYY-MM-DD HH:MM:SS" instant (matches that second), or a "lo..hi"
// range of either.
func compileTime(f schema.FieldDescriptor, term string) Predicate {
	if lo, hi, ok := strings.Cut(term, ".."); ok {
		loT, _, okLo := parseInstant(strings.TrimSpace(lo))
		_, hiT, okHi := parseInstant(strings.TrimSpace(hi))
		if strings.TrimSpace(lo) == "" {
			loT, okLo = time.Time{}, true
		}
		if strings.TrimSpace(hi) == "" {
			hiT, okHi = maxTime, true
		}
		if !okLo || !okHi {
			return Predicate{Field: f, Kind: KindNone}
		}
		return Predicate{Field: f, Kind: KindTimeRange, TimeLo: loT, TimeHi: hiT}
	}
	lo, hi, ok := parseInstant(term)
	if !ok {
		return Predicate{Field: f, Kind: KindNone}
	}
	return Predicate{Field: f, Kind: KindTimeRange, TimeLo: lo, TimeHi: hi}
}

var maxTime = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

// parseInstant returns the half-open interval covered by a date or
// datetime literal: a bare date covers its day, a timestamp its second.
func parseInstant(s string) (lo, hi time.Time, ok bool) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, t.AddDate(0, 0, 1), true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, t.Add(time.Second), true
		}
	}
	return time.Time{}, time.Time{}, false
}

// labelMatches compiles a textual term against enum choice labels. Labels
// matching case-insensitively by substring contribute their indices.
func labelMatches(f schema.FieldDescriptor, term string) Predicate {
	folded := strings.ToLower(term)
	var idx []int64
	for i, label := range f.Choices {
		if strings.Contains(strings.ToLower(label), folded) {
			idx = append(idx, int64(i))
		}
	}
	return Predicate{Field: f, Kind: KindIndexIn, Indices: idx}
}

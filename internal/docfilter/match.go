package docfilter

import (
	"strconv"
	"strings"
	"time"

	"github.com/docgrid/docgrid/internal/schema"
)

// MatchValue evaluates the predicate against a raw document value.
func (p Predicate) MatchValue(v any) bool {
	switch p.Kind {
	case KindNone:
		return false
	case KindSubstring:
		s, ok := stringValue(v)
		return ok && strings.Contains(strings.ToLower(s), p.Term)
	case KindEquals:
		s, ok := stringValue(v)
		return ok && s == p.Term
	case KindNumberRange:
		x, ok := numberValue(v)
		if !ok {
			return false
		}
		if p.NumLo != nil && x < *p.NumLo {
			return false
		}
		if p.NumHi != nil && x > *p.NumHi {
			return false
		}
		return true
	case KindTimeRange:
		t, ok := timeValue(v)
		return ok && !t.Before(p.TimeLo) && t.Before(p.TimeHi)
	case KindIndexIn:
		x, ok := numberValue(v)
		if !ok {
			return false
		}
		for _, idx := range p.Indices {
			if int64(x) == idx {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Compare orders two raw values by the field type's natural ordering:
// numeric types numerically, dates chronologically, enums by raw choice
// index, relations by raw id, arrays by their first element. Missing
// values sort before present ones so that paging over sparse fields stays
// deterministic.
func Compare(f schema.FieldDescriptor, a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	switch {
	case f.Type == schema.Array:
		return Compare(*f.Element, firstElement(a), firstElement(b))
	case f.Type.Numeric():
		return compareNumbers(a, b)
	case f.Type.Temporal():
		ta, okA := timeValue(a)
		tb, okB := timeValue(b)
		if !okA || !okB {
			return boolPairOrder(okA, okB)
		}
		return ta.Compare(tb)
	case f.Type == schema.Boolean:
		ba, _ := a.(bool)
		bb, _ := b.(bool)
		return boolPairOrder(ba, bb)
	default:
		sa, _ := stringValue(a)
		sb, _ := stringValue(b)
		return strings.Compare(sa, sb)
	}
}

func compareNumbers(a, b any) int {
	xa, okA := numberValue(a)
	xb, okB := numberValue(b)
	if !okA || !okB {
		return boolPairOrder(okA, okB)
	}
	switch {
	case xa < xb:
		return -1
	case xa > xb:
		return 1
	default:
		return 0
	}
}

// boolPairOrder sorts false before true.
func boolPairOrder(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func firstElement(v any) any {
	if s, ok := v.([]any); ok && len(s) > 0 {
		return s[0]
	}
	return nil
}

func stringValue(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case int, int32, int64:
		return strconv.FormatInt(intOf(v), 10), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	default:
		return "", false
	}
}

func numberValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		x, err := strconv.ParseFloat(n, 64)
		return x, err == nil
	default:
		return 0, false
	}
}

func timeValue(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

func intOf(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	default:
		return 0
	}
}

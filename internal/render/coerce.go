package render

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// ErrChoiceOutOfRange reports an enum value with no matching choice label.
var ErrChoiceOutOfRange = errors.New("enum value out of choice range")

// Stores hand back loosely typed documents: JSON decoding produces float64,
// BSON produces int32/int64/float64 and time.Time (backends normalize
// driver-specific types before documents reach the renderer). The coercions
// below absorb those representations so formatting rules stay in one place.

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	default:
		return fmt.Sprint(v)
	}
}

func asBool(v any) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return false, fmt.Errorf("value %v (%T) is not a boolean", v, v)
}

func asInt(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float32:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not an integer", n)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not an integer", v, v)
	}
}

func asFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case string:
		x, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not a number", n)
		}
		return x, nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not a number", v, v)
	}
}

func asTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("value %q is not a recognized date", t)
	default:
		return time.Time{}, fmt.Errorf("value %v (%T) is not a date", v, v)
	}
}

func asSlice(v any) ([]any, error) {
	if s, ok := v.([]any); ok {
		return s, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("value %v (%T) is not a sequence", v, v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

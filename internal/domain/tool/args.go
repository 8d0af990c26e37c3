package tool

import (
	"encoding/json"
	"math"
)

// Args are decoded tool arguments. Accessors return zero values for absent keys;
// types are guaranteed by schema validation before a tool runs.
type Args map[string]any

func (a Args) Has(name string) bool {
	_, ok := a[name]
	return ok
}

func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}

// OptString returns nil when name is absent or null.
func (a Args) OptString(name string) *string {
	s, ok := a[name].(string)
	if !ok {
		return nil
	}
	return &s
}

func (a Args) Bool(name string) bool {
	b, _ := a[name].(bool)
	return b
}

// Float returns nil when name is absent or null.
func (a Args) Float(name string) *float64 {
	switch v := a[name].(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return &f
		}
	}
	return nil
}

// Int returns nil when name is absent or null. Values beyond the int range saturate.
func (a Args) Int(name string) *int {
	f := a.Float(name)
	if f == nil {
		return nil
	}
	var n int
	switch {
	case *f >= math.MaxInt:
		n = math.MaxInt
	case *f <= math.MinInt:
		n = math.MinInt
	default:
		n = int(*f)
	}
	return &n
}

// IntOr is Int with a default.
func (a Args) IntOr(name string, fallback int) int {
	if n := a.Int(name); n != nil {
		return *n
	}
	return fallback
}

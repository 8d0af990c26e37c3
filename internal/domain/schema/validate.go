package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"net/mail"
	"slices"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// Issue is one violation found by Validate.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError lists every violation of one value against its schema.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		path := is.Path
		if path == "" {
			path = "arguments"
		}
		parts = append(parts, path+": "+is.Message)
	}
	return "invalid arguments: " + strings.Join(parts, "; ")
}

// Validate checks value, as produced by encoding/json, against s.
// It returns nil or a *ValidationError. Kinds outside the portable vocabulary accept any value,
// mirroring the converter's widening.
func Validate(s *Schema, value any) error {
	v := &validator{}
	v.check(s, value, "")
	if len(v.issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: v.issues}
}

type validator struct {
	issues []Issue
}

func (v *validator) fail(path, format string, args ...any) {
	v.issues = append(v.issues, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) check(s *Schema, value any, path string) {
	if s == nil || s.Kind == KindAny || !s.Kind.Supported() {
		return
	}
	if value == nil {
		if !s.Nullable {
			v.fail(path, "expected %s, got null", s.Kind)
		}
		return
	}

	switch s.Kind {
	case KindObject:
		v.checkObject(s, value, path)
	case KindArray:
		v.checkArray(s, value, path)
	case KindString:
		v.checkString(s, value, path)
	case KindNumber, KindInteger:
		v.checkNumber(s, value, path)
	case KindBoolean:
		if _, ok := value.(bool); !ok {
			v.fail(path, "expected boolean, got %s", typeName(value))
		}
	}
}

func (v *validator) checkObject(s *Schema, value any, path string) {
	obj, ok := value.(map[string]any)
	if !ok {
		v.fail(path, "expected object, got %s", typeName(value))
		return
	}

	for _, p := range s.Properties {
		child, present := obj[p.Name]
		if !present {
			if p.Required {
				v.fail(joinPath(path, p.Name), "is required")
			}
			continue
		}
		v.check(p.Schema, child, joinPath(path, p.Name))
	}

	if s.AdditionalProperties {
		return
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, declared := s.Property(k); !declared {
			v.fail(joinPath(path, k), "unknown field")
		}
	}
}

func (v *validator) checkArray(s *Schema, value any, path string) {
	arr, ok := value.([]any)
	if !ok {
		v.fail(path, "expected array, got %s", typeName(value))
		return
	}
	if s.MinItems != nil && len(arr) < *s.MinItems {
		v.fail(path, "must contain at least %d items", *s.MinItems)
	}
	if s.MaxItems != nil && len(arr) > *s.MaxItems {
		v.fail(path, "must contain at most %d items", *s.MaxItems)
	}
	for i, item := range arr {
		v.check(s.Items, item, fmt.Sprintf("%s[%d]", path, i))
	}
}

func (v *validator) checkString(s *Schema, value any, path string) {
	str, ok := value.(string)
	if !ok {
		v.fail(path, "expected string, got %s", typeName(value))
		return
	}
	n := utf8.RuneCountInString(str)
	if s.MinLength != nil && n < *s.MinLength {
		v.fail(path, "must be at least %d characters", *s.MinLength)
	}
	if s.MaxLength != nil && n > *s.MaxLength {
		v.fail(path, "must be at most %d characters", *s.MaxLength)
	}
	if len(s.Enum) > 0 && !slices.Contains(s.Enum, str) {
		v.fail(path, "must be one of %s", strings.Join(s.Enum, ", "))
	}
	if msg := checkFormat(s.Format, str); msg != "" {
		v.fail(path, "%s", msg)
	}
}

func checkFormat(format, str string) string {
	switch format {
	case "date":
		if _, err := time.Parse(time.DateOnly, str); err != nil {
			return "must be a date (YYYY-MM-DD)"
		}
	case "date-time":
		if _, err := time.Parse(time.RFC3339, str); err != nil {
			return "must be an RFC 3339 date-time"
		}
	case "email":
		if addr, err := mail.ParseAddress(str); err != nil || addr.Address != str {
			return "must be an email address"
		}
	}
	return ""
}

func (v *validator) checkNumber(s *Schema, value any, path string) {
	n, ok := toFloat(value)
	if !ok {
		v.fail(path, "expected %s, got %s", s.Kind, typeName(value))
		return
	}
	if s.Kind == KindInteger && n != math.Trunc(n) {
		v.fail(path, "expected integer, got %v", n)
		return
	}
	if s.Minimum != nil && n < *s.Minimum {
		v.fail(path, "must be >= %v", *s.Minimum)
	}
	if s.Maximum != nil && n > *s.Maximum {
		v.fail(path, "must be <= %v", *s.Maximum)
	}
}

func toFloat(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func typeName(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int64, json.Number:
		return "number"
	}
	return fmt.Sprintf("%T", value)
}

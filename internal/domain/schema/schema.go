// Package schema describes tool inputs as plain data values.
//
// One Schema value feeds two independent functions: ToPortable renders it as a JSON Schema
// 2020-12 document for tools/list, and Validate checks decoded tool arguments against it.
// Both are exercised against the same fixtures in the package tests.
package schema

// Kind is the type constraint of a schema node.
type Kind string

const (
	KindObject  Kind = "object"
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindInteger Kind = "integer"
	KindBoolean Kind = "boolean"
	KindArray   Kind = "array"
	KindAny     Kind = "any"
)

// Supported reports whether k is part of the portable vocabulary.
func (k Kind) Supported() bool {
	switch k {
	case KindObject, KindString, KindNumber, KindInteger, KindBoolean, KindArray, KindAny:
		return true
	}
	return false
}

// Schema is a declarative description of an input value.
// Zero-valued constraint fields mean "unconstrained".
type Schema struct {
	Kind        Kind
	Title       string
	Description string

	// object
	Properties           []Property
	AdditionalProperties bool

	// array
	Items    *Schema
	MinItems *int
	MaxItems *int

	// string
	Enum      []string
	Format    string // date, date-time, email
	MinLength *int
	MaxLength *int

	// number, integer
	Minimum *float64
	Maximum *float64

	Nullable bool
}

// Property is one named member of an object schema. Declaration order is preserved.
type Property struct {
	Name     string
	Schema   *Schema
	Required bool
}

// Object builds an object schema that rejects undeclared keys.
func Object(props ...Property) *Schema {
	return &Schema{Kind: KindObject, Properties: props}
}

func String() *Schema  { return &Schema{Kind: KindString} }
func Number() *Schema  { return &Schema{Kind: KindNumber} }
func Integer() *Schema { return &Schema{Kind: KindInteger} }
func Boolean() *Schema { return &Schema{Kind: KindBoolean} }
func Any() *Schema     { return &Schema{Kind: KindAny} }

// Array builds an array schema; a nil items schema leaves elements unconstrained.
func Array(items *Schema) *Schema {
	return &Schema{Kind: KindArray, Items: items}
}

// Enum builds a string schema restricted to values.
func Enum(values ...string) *Schema {
	return &Schema{Kind: KindString, Enum: append([]string(nil), values...)}
}

// Of builds a schema of an arbitrary kind. Kinds outside the portable vocabulary are
// widened to the unconstrained schema by the converter and accepted by the validator.
func Of(kind Kind) *Schema {
	return &Schema{Kind: kind}
}

// Required declares a mandatory property.
func Required(name string, s *Schema) Property {
	return Property{Name: name, Schema: s, Required: true}
}

// Optional declares a property that may be omitted.
func Optional(name string, s *Schema) Property {
	return Property{Name: name, Schema: s}
}

func (s *Schema) Describe(description string) *Schema {
	s.Description = description
	return s
}

func (s *Schema) Titled(title string) *Schema {
	s.Title = title
	return s
}

func (s *Schema) WithFormat(format string) *Schema {
	s.Format = format
	return s
}

func (s *Schema) Min(v float64) *Schema {
	s.Minimum = &v
	return s
}

func (s *Schema) Max(v float64) *Schema {
	s.Maximum = &v
	return s
}

func (s *Schema) MinLen(n int) *Schema {
	s.MinLength = &n
	return s
}

func (s *Schema) MaxLen(n int) *Schema {
	s.MaxLength = &n
	return s
}

func (s *Schema) MinCount(n int) *Schema {
	s.MinItems = &n
	return s
}

func (s *Schema) MaxCount(n int) *Schema {
	s.MaxItems = &n
	return s
}

// OrNull additionally accepts JSON null.
func (s *Schema) OrNull() *Schema {
	s.Nullable = true
	return s
}

// AllowExtra makes an object schema accept undeclared keys.
func (s *Schema) AllowExtra() *Schema {
	s.AdditionalProperties = true
	return s
}

// Property returns the named property of an object schema.
func (s *Schema) Property(name string) (Property, bool) {
	for _, p := range s.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

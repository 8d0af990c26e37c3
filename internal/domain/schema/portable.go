package schema

import (
	"sync/atomic"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/phuslu/log"
)

// Draft2020 is the dialect declared on every portable document root.
const Draft2020 = "https://json-schema.org/draft/2020-12/schema"

// Converter renders Schema values as portable documents.
// Constructs outside the portable vocabulary are widened to the unconstrained
// schema; each widening is logged and counted.
type Converter struct {
	logger  *log.Logger
	widened atomic.Int64
}

// NewConverter returns a Converter that reports widenings to logger (nil disables logging).
func NewConverter(logger *log.Logger) *Converter {
	return &Converter{logger: logger}
}

var defaultConverter = NewConverter(nil)

// ToPortable converts s with the package-level converter.
func ToPortable(s *Schema) *jsonschema.Schema {
	return defaultConverter.Convert(s)
}

// Widened returns how many constructs this converter has widened so far.
func (c *Converter) Widened() int64 {
	return c.widened.Load()
}

// Convert never fails: tools/list must stay available even for a schema it cannot express.
func (c *Converter) Convert(s *Schema) *jsonschema.Schema {
	doc := c.convert(s, "")
	doc.Schema = Draft2020
	return doc
}

func (c *Converter) convert(s *Schema, path string) *jsonschema.Schema {
	if s == nil {
		return &jsonschema.Schema{}
	}

	out := &jsonschema.Schema{Title: s.Title, Description: s.Description}

	switch s.Kind {
	case KindAny:
		return out
	case KindObject:
		out.Properties = make(map[string]*jsonschema.Schema, len(s.Properties))
		for _, p := range s.Properties {
			out.Properties[p.Name] = c.convert(p.Schema, joinPath(path, p.Name))
			if p.Required {
				out.Required = append(out.Required, p.Name)
			}
		}
		if !s.AdditionalProperties {
			out.AdditionalProperties = &jsonschema.Schema{Not: &jsonschema.Schema{}}
		}
	case KindArray:
		out.Items = c.convert(s.Items, path+"[]")
		out.MinItems = s.MinItems
		out.MaxItems = s.MaxItems
	case KindString:
		out.Format = s.Format
		out.MinLength = s.MinLength
		out.MaxLength = s.MaxLength
		for _, v := range s.Enum {
			out.Enum = append(out.Enum, v)
		}
	case KindNumber, KindInteger:
		out.Minimum = s.Minimum
		out.Maximum = s.Maximum
	case KindBoolean:
	default:
		c.widen(path, s.Kind)
		return out
	}

	setType(out, string(s.Kind), s.Nullable)
	return out
}

func setType(out *jsonschema.Schema, typ string, nullable bool) {
	if !nullable {
		out.Type = typ
		return
	}
	out.Types = []string{typ, "null"}
	if len(out.Enum) > 0 {
		out.Enum = append(out.Enum, nil)
	}
}

func (c *Converter) widen(path string, kind Kind) {
	c.widened.Add(1)
	if c.logger == nil {
		return
	}
	if path == "" {
		path = "(root)"
	}
	c.logger.Warn().
		Str("path", path).
		Str("kind", string(kind)).
		Msg("schema construct widened to unconstrained")
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

package tool

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/matiasleandrokruk/fenixmcp/internal/domain/identity"
	"github.com/matiasleandrokruk/fenixmcp/internal/domain/schema"
)

var (
	ErrDuplicateTool = errors.New("duplicate tool name")
	ErrInvalidTool   = errors.New("invalid tool definition")
)

var toolNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

// Catalog is the closed set of tools known at startup. It is never modified after NewCatalog.
type Catalog struct {
	tools map[string]Tool
	order []string
}

// NewCatalog validates and indexes tools, preserving their order for tools/list.
func NewCatalog(tools ...Tool) (*Catalog, error) {
	c := &Catalog{tools: make(map[string]Tool, len(tools))}
	for i, t := range tools {
		if t == nil {
			return nil, fmt.Errorf("%w: tool #%d is nil", ErrInvalidTool, i)
		}
		def := t.Definition()
		if !toolNamePattern.MatchString(def.Name) {
			return nil, fmt.Errorf("%w: name %q", ErrInvalidTool, def.Name)
		}
		if def.Input != nil && def.Input.Kind != schema.KindObject {
			return nil, fmt.Errorf("%w: %s input must be an object schema, got %s", ErrInvalidTool, def.Name, def.Input.Kind)
		}
		if _, exists := c.tools[def.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTool, def.Name)
		}
		c.tools[def.Name] = t
		c.order = append(c.order, def.Name)
	}
	return c, nil
}

// Names lists tool names in registration order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.order...)
}

func (c *Catalog) Len() int { return len(c.order) }

// Bind returns a Registry whose tools all execute as ec.
func (c *Catalog) Bind(ec identity.ExecutionContext) *Registry {
	return &Registry{catalog: c, ec: ec}
}

// Registry is a Catalog bound to one ExecutionContext for the lifetime of one request.
type Registry struct {
	catalog *Catalog
	ec      identity.ExecutionContext
}

// Context returns the identity every tool in this registry runs as.
func (r *Registry) Context() identity.ExecutionContext { return r.ec }

// Tools returns the bound tools in catalog order.
func (r *Registry) Tools() []BoundTool {
	out := make([]BoundTool, 0, len(r.catalog.order))
	for _, name := range r.catalog.order {
		out = append(out, r.bind(r.catalog.tools[name]))
	}
	return out
}

// Lookup finds a bound tool by exact name.
func (r *Registry) Lookup(name string) (BoundTool, bool) {
	t, ok := r.catalog.tools[name]
	if !ok {
		return BoundTool{}, false
	}
	return r.bind(t), true
}

func (r *Registry) bind(t Tool) BoundTool {
	def := t.Definition()
	if def.Input == nil {
		def.Input = schema.Object()
	}
	return BoundTool{def: def, tool: t, ec: r.ec}
}

// BoundTool pairs a tool with the identity it was bound to. The identity cannot be replaced.
type BoundTool struct {
	def  Definition
	tool Tool
	ec   identity.ExecutionContext
}

func (b BoundTool) Definition() Definition { return b.def }

// Validate checks decoded arguments against the tool's input schema.
func (b BoundTool) Validate(args any) error {
	return schema.Validate(b.def.Input, args)
}

// Call executes the tool as the bound identity. Arguments must already be validated.
func (b BoundTool) Call(ctx context.Context, args Args) (any, error) {
	return b.tool.Execute(ctx, b.ec, args)
}

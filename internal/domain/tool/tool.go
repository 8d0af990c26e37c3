// Package tool defines the tool contract, the immutable startup Catalog and the
// per-request Registry that binds tools to one ExecutionContext.
package tool

import (
	"context"
	"errors"
	"fmt"

	"github.com/matiasleandrokruk/fenixmcp/internal/domain/identity"
	"github.com/matiasleandrokruk/fenixmcp/internal/domain/schema"
)

// Definition describes a tool to agent clients. Input must be an object schema.
type Definition struct {
	Name        string
	Title       string
	Description string
	Input       *schema.Schema
}

// Tool is one business operation reachable by agents.
// Execute receives arguments already validated against Definition().Input and the
// identity of the caller; a tool never reads identity from anywhere else.
type Tool interface {
	Definition() Definition
	Execute(ctx context.Context, ec identity.ExecutionContext, args Args) (any, error)
}

// ExecuteFunc is the function form of Tool.Execute.
type ExecuteFunc func(ctx context.Context, ec identity.ExecutionContext, args Args) (any, error)

type funcTool struct {
	def Definition
	fn  ExecuteFunc
}

// New builds a Tool from a definition and an execute function.
func New(def Definition, fn ExecuteFunc) Tool {
	return &funcTool{def: def, fn: fn}
}

func (t *funcTool) Definition() Definition { return t.def }

func (t *funcTool) Execute(ctx context.Context, ec identity.ExecutionContext, args Args) (any, error) {
	return t.fn(ctx, ec, args)
}

// ToolExecutionError is a business-level failure reported back to the agent in-band.
//
//nolint:revive // stutters with the package name, kept for readability at call sites
type ToolExecutionError struct {
	Message string
	Err     error
}

func (e *ToolExecutionError) Error() string { return e.Message }

func (e *ToolExecutionError) Unwrap() error { return e.Err }

// Failf returns a *ToolExecutionError with a formatted message.
// A %w verb keeps the wrapped error reachable through errors.Is.
func Failf(format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	return &ToolExecutionError{Message: err.Error(), Err: errors.Unwrap(err)}
}

// IsExecutionError reports whether err carries a *ToolExecutionError.
func IsExecutionError(err error) bool {
	var te *ToolExecutionError
	return errors.As(err, &te)
}

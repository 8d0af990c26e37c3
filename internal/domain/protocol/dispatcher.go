package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/phuslu/log"

	"github.com/matiasleandrokruk/fenixmcp/internal/domain/audit"
	"github.com/matiasleandrokruk/fenixmcp/internal/domain/identity"
	"github.com/matiasleandrokruk/fenixmcp/internal/domain/schema"
	"github.com/matiasleandrokruk/fenixmcp/internal/domain/tool"
	"github.com/matiasleandrokruk/fenixmcp/pkg/uuid"
)

// ErrToolPanic wraps a value recovered from a panicking tool.
var ErrToolPanic = errors.New("tool panicked")

// Authenticator turns a raw credential into the identity a request runs as.
type Authenticator interface {
	Resolve(ctx context.Context, credential string) (identity.ExecutionContext, error)
}

// Recorder receives one entry per tools/call that named a known tool. Record must not block.
type Recorder interface {
	Record(inv audit.ToolInvocation)
}

// ServerInfo is how the endpoint introduces itself on initialize.
type ServerInfo struct {
	Name         string
	Title        string
	Version      string
	Instructions string
}

// Config wires a Dispatcher. Recorder, Converter and Logger are optional.
type Config struct {
	Authenticator Authenticator
	Catalog       *tool.Catalog
	Converter     *schema.Converter
	Recorder      Recorder
	Logger        *log.Logger
	Info          ServerInfo
}

// Inbound is one POST as seen by the dispatcher.
type Inbound struct {
	Credential string
	Body       []byte
	// RequestID correlates logs and audit entries; generated when empty.
	RequestID string
}

// Outcome is the transport-neutral answer to an Inbound.
// Response is nil when no body must be written (HTTP 204).
type Outcome struct {
	Status   int
	Response *Response
}

// Dispatcher routes JSON-RPC envelopes to the tool registry of the authenticated caller.
type Dispatcher struct {
	auth      Authenticator
	catalog   *tool.Catalog
	converter *schema.Converter
	recorder  Recorder
	logger    *log.Logger
	info      ServerInfo
}

// NewDispatcher validates cfg and builds a Dispatcher.
func NewDispatcher(cfg Config) (*Dispatcher, error) {
	if cfg.Authenticator == nil {
		return nil, errors.New("protocol: authenticator is required")
	}
	if cfg.Catalog == nil {
		return nil, errors.New("protocol: tool catalog is required")
	}
	d := &Dispatcher{
		auth:      cfg.Authenticator,
		catalog:   cfg.Catalog,
		converter: cfg.Converter,
		recorder:  cfg.Recorder,
		logger:    cfg.Logger,
		info:      cfg.Info,
	}
	if d.logger == nil {
		d.logger = &log.DefaultLogger
	}
	if d.converter == nil {
		d.converter = schema.NewConverter(d.logger)
	}
	if d.info.Name == "" {
		d.info.Name = "fenix-crm"
	}
	return d, nil
}

// Handle processes one request: identity first, then the envelope, then the method.
// It never panics on behalf of a tool.
func (d *Dispatcher) Handle(ctx context.Context, in Inbound) Outcome {
	if in.RequestID == "" {
		in.RequestID = uuid.NewString()
	}
	id := ExtractID(in.Body)

	ec, err := d.auth.Resolve(ctx, in.Credential)
	if err == nil && ec.IsZero() {
		err = fmt.Errorf("%w: no identity for credential", identity.ErrAuthInvalid)
	}
	if err != nil {
		d.logger.Warn().Err(err).Str("request_id", in.RequestID).Msg("mcp: authentication failed")
		return Outcome{
			Status:   http.StatusUnauthorized,
			Response: errorResponse(id, CodeUnauthorized, authMessage(err), nil),
		}
	}

	req, rpcErr := parseRequest(in.Body)
	if rpcErr != nil {
		if rpcErr.Code == CodeParseError {
			id = nil
		}
		return Outcome{Status: http.StatusBadRequest, Response: errorResponse(id, rpcErr.Code, rpcErr.Message, nil)}
	}
	if isNull(req.ID) {
		req.ID = nil
	}

	d.logger.Debug().
		Str("method", req.Method).
		Str("org", ec.OrganizationID()).
		Str("request_id", in.RequestID).
		Msg("mcp: request")

	if strings.HasPrefix(req.Method, notificationPrefix) {
		return Outcome{Status: http.StatusNoContent}
	}

	reg := d.catalog.Bind(ec)

	switch req.Method {
	case MethodInitialize:
		return d.initialize(req)
	case MethodPing:
		return Outcome{Status: http.StatusOK, Response: resultResponse(req.ID, struct{}{})}
	case MethodToolsList:
		return d.listTools(req, reg)
	case MethodToolsCall:
		return d.callTool(ctx, req, reg, in.RequestID)
	default:
		return Outcome{
			Status:   http.StatusNotFound,
			Response: errorResponse(req.ID, CodeMethodNotFound, "method not found: "+req.Method, nil),
		}
	}
}

func authMessage(err error) string {
	switch {
	case errors.Is(err, identity.ErrAuthMissing):
		return "unauthorized: missing credential"
	case errors.Is(err, identity.ErrAuthOwnerInvalid):
		return "unauthorized: credential owner is invalid"
	default:
		return "unauthorized: invalid credential"
	}
}

type initializeParams struct {
	ProtocolVersion string              `json:"protocolVersion"`
	ClientInfo      *mcp.Implementation `json:"clientInfo,omitempty"`
}

func (d *Dispatcher) initialize(req Request) Outcome {
	var params initializeParams
	if !isNull(req.Params) {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return invalidParams(req.ID, "invalid initialize params: "+err.Error())
		}
	}
	version := NegotiateVersion(params.ProtocolVersion)

	ev := d.logger.Info().Str("requested", params.ProtocolVersion).Str("negotiated", version)
	if params.ClientInfo != nil {
		ev = ev.Str("client", params.ClientInfo.Name).Str("client_version", params.ClientInfo.Version)
	}
	ev.Msg("mcp: initialize")

	result := &mcp.InitializeResult{
		ProtocolVersion: version,
		Capabilities:    &mcp.ServerCapabilities{Tools: &mcp.ToolCapabilities{}},
		ServerInfo: &mcp.Implementation{
			Name:    d.info.Name,
			Title:   d.info.Title,
			Version: d.info.Version,
		},
		Instructions: d.info.Instructions,
	}
	return Outcome{Status: http.StatusOK, Response: resultResponse(req.ID, result)}
}

func (d *Dispatcher) listTools(req Request, reg *tool.Registry) Outcome {
	bound := reg.Tools()
	tools := make([]*mcp.Tool, 0, len(bound))
	for _, bt := range bound {
		def := bt.Definition()
		tools = append(tools, &mcp.Tool{
			Name:        def.Name,
			Title:       def.Title,
			Description: def.Description,
			InputSchema: d.converter.Convert(def.Input),
		})
	}
	return Outcome{Status: http.StatusOK, Response: resultResponse(req.ID, &mcp.ListToolsResult{Tools: tools})}
}

type callParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

func (d *Dispatcher) callTool(ctx context.Context, req Request, reg *tool.Registry, requestID string) Outcome {
	if isNull(req.Params) {
		return invalidParams(req.ID, "invalid params: tools/call requires params")
	}
	var params callParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return invalidParams(req.ID, "invalid params: "+err.Error())
	}
	if params.Name == "" {
		return invalidParams(req.ID, "invalid params: missing tool name")
	}
	bt, ok := reg.Lookup(params.Name)
	if !ok {
		return invalidParams(req.ID, "unknown tool: "+params.Name)
	}

	var args any = map[string]any{}
	if !isNull(params.Arguments) {
		if err := json.Unmarshal(params.Arguments, &args); err != nil {
			return invalidParams(req.ID, "invalid params: "+err.Error())
		}
	}

	start := time.Now()
	inv := audit.ToolInvocation{
		OrganizationID: reg.Context().OrganizationID(),
		ActingUserID:   reg.Context().ActingUserID(),
		ToolName:       params.Name,
		RequestID:      &requestID,
		CreatedAt:      start.UTC(),
	}

	var result *mcp.CallToolResult
	if err := bt.Validate(args); err != nil {
		inv.Outcome = audit.OutcomeRejected
		inv.ErrorMessage = errorMessage(err)
		result = FormatError(err)
	} else {
		obj, _ := args.(map[string]any)
		payload, err := invoke(ctx, bt, tool.Args(obj))
		if err != nil {
			inv.Outcome = audit.OutcomeError
			inv.ErrorMessage = errorMessage(err)
			if errors.Is(err, ErrToolPanic) {
				d.logger.Error().Err(err).Str("tool", params.Name).Str("request_id", requestID).Msg("mcp: tool panicked")
			}
			result = FormatError(err)
		} else {
			inv.Outcome = audit.OutcomeSuccess
			result = Format(payload, FormatOptions{})
		}
	}
	inv.Duration = time.Since(start)

	d.logger.Info().
		Str("tool", params.Name).
		Str("org", inv.OrganizationID).
		Str("outcome", string(inv.Outcome)).
		Dur("duration", inv.Duration).
		Str("request_id", requestID).
		Msg("mcp: tool call")
	if d.recorder != nil {
		d.recorder.Record(inv)
	}

	return Outcome{Status: http.StatusOK, Response: resultResponse(req.ID, result)}
}

// invoke runs the tool and converts a panic into an error.
func invoke(ctx context.Context, bt tool.BoundTool, args tool.Args) (payload any, err error) {
	defer func() {
		if r := recover(); r != nil {
			payload = nil
			err = fmt.Errorf("%w: %s: %v", ErrToolPanic, bt.Definition().Name, r)
		}
	}()
	return bt.Call(ctx, args)
}

func invalidParams(id json.RawMessage, message string) Outcome {
	return Outcome{Status: http.StatusBadRequest, Response: errorResponse(id, CodeInvalidParams, message, nil)}
}

func errorMessage(err error) *string {
	msg := err.Error()
	return &msg
}

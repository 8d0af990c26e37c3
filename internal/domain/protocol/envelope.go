// Package protocol implements the JSON-RPC 2.0 / MCP dispatcher behind the agent endpoint:
// envelope parsing, method routing, tool invocation and result formatting.
// It is transport agnostic; internal/api maps an Outcome onto HTTP.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// JSONRPCVersion is the only accepted value of the "jsonrpc" member.
const JSONRPCVersion = "2.0"

// Error codes. CodeUnauthorized is reserved by this service for authentication failures.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeUnauthorized   = -32001
)

// Methods routed by the dispatcher.
const (
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodPing        = "ping"
	MethodToolsList   = "tools/list"
	MethodToolsCall   = "tools/call"

	notificationPrefix = "notifications/"
)

// Request is an inbound JSON-RPC envelope. ID and Params are kept raw:
// the id is echoed byte for byte and params are decoded per method.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is an outbound envelope carrying either Result or Error.
// A nil ID marshals as null.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the protocol-level error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

func resultResponse(id json.RawMessage, result any) *Response {
	return &Response{JSONRPC: JSONRPCVersion, ID: id, Result: result}
}

func errorResponse(id json.RawMessage, code int, message string, data any) *Response {
	return &Response{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error:   &RPCError{Code: code, Message: message, Data: data},
	}
}

// ExtractID returns the envelope id of body when it is a string or a number, else nil.
// It never fails, so errors raised before full parsing can still be correlated.
func ExtractID(body []byte) json.RawMessage {
	var probe struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil
	}
	if !validID(probe.ID) {
		return nil
	}
	return probe.ID
}

// validID accepts string and number ids. null and absent ids are handled by the caller.
func validID(id json.RawMessage) bool {
	id = bytes.TrimSpace(id)
	if len(id) == 0 {
		return false
	}
	switch c := id[0]; {
	case c == '"':
		return true
	case c == '-' || (c >= '0' && c <= '9'):
		return true
	default:
		return false
	}
}

// isNull reports whether raw is absent or the null literal.
func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || string(raw) == "null"
}

// isObject reports whether raw is a JSON object literal.
func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

// parseRequest decodes body and checks the envelope shape.
// Failures carry CodeParseError, CodeInvalidRequest or, for non-object params, CodeInvalidParams.
func parseRequest(body []byte) (Request, *RPCError) {
	if !json.Valid(body) {
		return Request{}, &RPCError{Code: CodeParseError, Message: "parse error: invalid JSON"}
	}
	if !isObject(body) {
		return Request{}, &RPCError{Code: CodeInvalidRequest, Message: "invalid request: envelope must be a single object"}
	}
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return Request{}, &RPCError{Code: CodeInvalidRequest, Message: "invalid request: " + err.Error()}
	}
	if req.JSONRPC != JSONRPCVersion {
		return req, &RPCError{Code: CodeInvalidRequest, Message: `invalid request: jsonrpc must be "2.0"`}
	}
	if !isNull(req.ID) && !validID(req.ID) {
		return req, &RPCError{Code: CodeInvalidRequest, Message: "invalid request: id must be a string, number or null"}
	}
	if req.Method == "" {
		return req, &RPCError{Code: CodeInvalidRequest, Message: "invalid request: missing method"}
	}
	if !isNull(req.Params) && !isObject(req.Params) {
		return req, &RPCError{Code: CodeInvalidParams, Message: "invalid params: params must be an object"}
	}
	return req, nil
}

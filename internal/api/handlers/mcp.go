package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/matiasleandrokruk/fenixmcp/internal/api/ctxkeys"
	"github.com/matiasleandrokruk/fenixmcp/internal/domain/protocol"
)

// AllowedMethods is sent in the Allow header of 405 responses from the endpoint.
const AllowedMethods = "GET, POST"

// Dispatcher is the protocol entry point used by MCPHandler.
// *protocol.Dispatcher satisfies it.
type Dispatcher interface {
	Handle(ctx context.Context, in protocol.Inbound) protocol.Outcome
}

// MCPHandler serves the agent endpoint: discovery on GET, JSON-RPC on POST.
type MCPHandler struct {
	dispatcher Dispatcher
	discovery  protocol.Discovery
	maxBody    int64
}

// NewMCPHandler creates an MCPHandler. maxBody bounds the POST body in bytes.
func NewMCPHandler(dispatcher Dispatcher, discovery protocol.Discovery, maxBody int64) *MCPHandler {
	return &MCPHandler{dispatcher: dispatcher, discovery: discovery, maxBody: maxBody}
}

// Discover handles GET: the static discovery document, no credential required.
func (h *MCPHandler) Discover(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.discovery)
}

// Call handles POST: one JSON-RPC envelope in, one envelope (or 204) out.
func (h *MCPHandler) Call(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeRPCError(w, http.StatusRequestEntityTooLarge, protocol.CodeInvalidRequest, "invalid request: body too large")
			return
		}
		writeRPCError(w, http.StatusBadRequest, protocol.CodeParseError, "parse error: unreadable body")
		return
	}

	credential, _ := ctxkeys.String(r.Context(), ctxkeys.Credential)
	out := h.dispatcher.Handle(r.Context(), protocol.Inbound{
		Credential: credential,
		Body:       body,
		RequestID:  chimw.GetReqID(r.Context()),
	})

	if out.Response == nil {
		w.WriteHeader(out.Status)
		return
	}
	writeJSON(w, out.Status, out.Response)
}

// MethodNotAllowed answers every other verb on the endpoint.
func (h *MCPHandler) MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Allow", AllowedMethods)
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeRPCError(w http.ResponseWriter, status, code int, message string) {
	writeJSON(w, status, &protocol.Response{
		JSONRPC: protocol.JSONRPCVersion,
		Error:   &protocol.RPCError{Code: code, Message: message},
	})
}

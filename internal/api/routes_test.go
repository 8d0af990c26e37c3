package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matiasleandrokruk/fenixmcp/internal/domain/protocol"
	"github.com/matiasleandrokruk/fenixmcp/internal/infra/logging"
)

// echoDispatcher answers 200 with the credential it received as the result.
type echoDispatcher struct{}

func (echoDispatcher) Handle(_ context.Context, in protocol.Inbound) protocol.Outcome {
	return protocol.Outcome{
		Status: http.StatusOK,
		Response: &protocol.Response{
			JSONRPC: protocol.JSONRPCVersion,
			ID:      protocol.ExtractID(in.Body),
			Result:  map[string]string{"credential": in.Credential, "requestId": in.RequestID},
		},
	}
}

func newTestRouter() http.Handler {
	return NewRouter(RouterConfig{
		Dispatcher:   echoDispatcher{},
		Discovery:    protocol.NewDiscovery("fenix-crm", "/api/mcp", "X-Api-Key"),
		EndpointPath: "/api/mcp",
		MaxBodyBytes: 1 << 10,
		Logger:       logging.Discard(),
	})
}

func TestNewRouter_HealthEndpoint(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	newTestRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestNewRouter_DiscoveryIsPublicAndStable(t *testing.T) {
	t.Parallel()

	router := newTestRouter()
	var bodies []string
	for range 2 {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/mcp", nil))
		require.Equal(t, http.StatusOK, w.Code)
		bodies = append(bodies, w.Body.String())
	}
	assert.Equal(t, bodies[0], bodies[1])
	assert.Contains(t, bodies[0], `"protocolVersion":"2025-06-18"`)
}

func TestNewRouter_PostCarriesCredentialAndRequestID(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/api/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`))
	req.Header.Set("Authorization", "Bearer k1")
	w := httptest.NewRecorder()
	newTestRouter().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Result map[string]string `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "k1", resp.Result["credential"])
	assert.NotEmpty(t, resp.Result["requestId"])
}

func TestNewRouter_OtherVerbsAreNotAllowed(t *testing.T) {
	t.Parallel()

	for _, method := range []string{http.MethodPut, http.MethodDelete, http.MethodPatch} {
		w := httptest.NewRecorder()
		newTestRouter().ServeHTTP(w, httptest.NewRequest(method, "/api/mcp", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code, method)
		assert.Equal(t, "GET, POST", w.Header().Get("Allow"), method)
	}
}

func TestNewRouter_UnknownPath(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	newTestRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

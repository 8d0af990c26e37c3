// Package api wires the HTTP surface: global middleware, /health and the agent endpoint.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phuslu/log"

	"github.com/matiasleandrokruk/fenixmcp/internal/api/handlers"
	apmiddleware "github.com/matiasleandrokruk/fenixmcp/internal/api/middleware"
	"github.com/matiasleandrokruk/fenixmcp/internal/domain/identity"
	"github.com/matiasleandrokruk/fenixmcp/internal/domain/protocol"
)

// RouterConfig carries everything NewRouter needs. Logger may be nil.
type RouterConfig struct {
	Dispatcher   handlers.Dispatcher
	Discovery    protocol.Discovery
	EndpointPath string
	APIKeyHeader string
	MaxBodyBytes int64
	Logger       *log.Logger
}

// NewRouter creates the chi router.
//
//	GET  /health     liveness, no auth
//	GET  {endpoint}  discovery document, no auth
//	POST {endpoint}  JSON-RPC envelope, credential resolved by the dispatcher
//	*    {endpoint}  405 with Allow: GET, POST
func NewRouter(cfg RouterConfig) *chi.Mux {
	if cfg.APIKeyHeader == "" {
		cfg.APIKeyHeader = identity.DefaultHeader
	}

	r := chi.NewRouter()

	// Global middleware (runs on all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apmiddleware.AccessLog(cfg.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	mcpHandler := handlers.NewMCPHandler(cfg.Dispatcher, cfg.Discovery, cfg.MaxBodyBytes)
	r.Route(cfg.EndpointPath, func(r chi.Router) {
		r.MethodNotAllowed(mcpHandler.MethodNotAllowed)
		r.Get("/", mcpHandler.Discover)
		r.With(apmiddleware.Credential(cfg.APIKeyHeader)).Post("/", mcpHandler.Call)
	})

	return r
}

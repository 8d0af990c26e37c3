// Package server is the composition root of the endpoint: it wires storage, identity,
// the tool catalog, the dispatcher, the audit pipeline and the HTTP router.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/phuslu/log"

	"github.com/matiasleandrokruk/fenixmcp/internal/api"
	"github.com/matiasleandrokruk/fenixmcp/internal/domain/audit"
	"github.com/matiasleandrokruk/fenixmcp/internal/domain/identity"
	"github.com/matiasleandrokruk/fenixmcp/internal/domain/protocol"
	"github.com/matiasleandrokruk/fenixmcp/internal/domain/schema"
	"github.com/matiasleandrokruk/fenixmcp/internal/domain/tool"
	"github.com/matiasleandrokruk/fenixmcp/internal/infra/config"
	"github.com/matiasleandrokruk/fenixmcp/internal/infra/eventbus"
	"github.com/matiasleandrokruk/fenixmcp/internal/version"
)

// Server wraps the HTTP server, the database and the background audit consumer.
type Server struct {
	config    config.Config
	db        *sql.DB
	logger    *log.Logger
	bus       *eventbus.Bus
	converter *schema.Converter
	http      *http.Server

	stopAudit context.CancelFunc
	auditDone <-chan struct{}
}

// NewServer wires every component over a migrated database.
// The audit consumer starts immediately; Shutdown stops it.
func NewServer(db *sql.DB, cfg config.Config, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = &log.DefaultLogger
	}

	catalog, err := tool.NewBuiltinCatalog(db)
	if err != nil {
		return nil, fmt.Errorf("building tool catalog: %w", err)
	}
	logger.Info().Int("tools", catalog.Len()).Msg("tool catalog ready")

	bus := eventbus.New()
	converter := schema.NewConverter(logger)
	var jwtSecret []byte
	if cfg.Auth.JWTSecret != "" {
		jwtSecret = []byte(cfg.Auth.JWTSecret)
	}

	dispatcher, err := protocol.NewDispatcher(protocol.Config{
		Authenticator: identity.NewResolver(identity.NewStore(db), jwtSecret),
		Catalog:       catalog,
		Converter:     converter,
		Recorder:      audit.NewPublisher(bus),
		Logger:        logger,
		Info: protocol.ServerInfo{
			Name:         cfg.MCP.ServerName,
			Title:        cfg.MCP.ServerTitle,
			Version:      version.Version,
			Instructions: cfg.MCP.Instructions,
		},
	})
	if err != nil {
		return nil, err
	}

	router := api.NewRouter(api.RouterConfig{
		Dispatcher:   dispatcher,
		Discovery:    protocol.NewDiscovery(cfg.MCP.ServerName, cfg.Server.EndpointPath, cfg.Auth.APIKeyHeader),
		EndpointPath: cfg.Server.EndpointPath,
		APIKeyHeader: cfg.Auth.APIKeyHeader,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Logger:       logger,
	})

	auditCtx, stopAudit := context.WithCancel(context.Background())
	auditDone := audit.NewConsumer(audit.NewAuditService(db), logger).Start(auditCtx, bus)

	return &Server{
		config:    cfg,
		db:        db,
		logger:    logger,
		bus:       bus,
		converter: converter,
		http: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
		stopAudit: stopAudit,
		auditDone: auditDone,
	}, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start serves HTTP and blocks until the listener fails or Shutdown is called.
// A clean shutdown returns nil.
func (s *Server) Start(_ context.Context) error {
	s.logger.Info().
		Str("addr", s.http.Addr).
		Str("endpoint", s.config.Server.EndpointPath).
		Str("version", version.Version).
		Msg("starting HTTP server")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, drains pending audit events and closes the database.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down server")

	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.bus.Close()
	select {
	case <-s.auditDone:
	case <-ctx.Done():
		s.logger.Warn().Msg("audit consumer did not drain before shutdown deadline")
	}
	s.stopAudit()

	if dropped := s.bus.Dropped(); dropped > 0 {
		s.logger.Warn().Int64("dropped", dropped).Msg("audit events dropped")
	}
	if widened := s.converter.Widened(); widened > 0 {
		s.logger.Warn().Int64("widened", widened).Msg("schema constructs widened during tools/list")
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("database close error: %w", err)
	}

	s.logger.Info().Msg("server shutdown complete")
	return nil
}

package httpserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"bookshelf/backend/internal/config"
	authusecase "bookshelf/backend/internal/usecase/auth"
	catalogusecase "bookshelf/backend/internal/usecase/catalog"
	identityusecase "bookshelf/backend/internal/usecase/identity"
)

// Server wraps the HTTP server lifecycle.
type Server struct {
	httpServer      *http.Server
	router          *http.ServeMux
	authService     *authusecase.Service
	identityService *identityusecase.Service
	catalogService  *catalogusecase.Service
	uploadDir       string
	allowedOrigins  []string
	addr            string
}

// NewServer constructs a new Server with configured dependencies.
func NewServer(cfg config.Config, authService *authusecase.Service, identityService *identityusecase.Service, catalogService *catalogusecase.Service) *Server {
	mux := http.NewServeMux()
	addr := cfg.HTTPPort
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	handler := withLogging(withCORS(mux, cfg.AllowedOrigins))

	srv := &Server{
		httpServer: &http.Server{
			Handler:      handler,
			ReadTimeout:  time.Duration(cfg.ReadTimeoutSec) * time.Second,
			WriteTimeout: time.Duration(cfg.WriteTimeoutSec) * time.Second,
			IdleTimeout:  time.Duration(cfg.IdleTimeoutSec) * time.Second,
		},
		router:          mux,
		authService:     authService,
		identityService: identityService,
		catalogService:  catalogService,
		uploadDir:       cfg.UploadDir,
		allowedOrigins:  cfg.AllowedOrigins,
		addr:            addr,
	}
	srv.httpServer.Addr = addr
	srv.registerRoutes()
	return srv
}

// Start bootstraps the HTTP server on the provided address.
func (s *Server) Start() error {
	s.httpServer.Addr = s.addr
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the configured network address for the HTTP server.
func (s *Server) Addr() string {
	return s.addr
}

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tesoportamos/api/handlers"
	"tesoportamos/config"
	"tesoportamos/core/incidents"
	"tesoportamos/core/intake"
	"tesoportamos/core/store"
	"tesoportamos/core/utils"
)

const AppVersion = "2.0.0"

type ServerDeps struct {
	Clients    store.ClientsStore
	Incidents  store.IncidentsStore
	Audits     store.AuditStore
	IntakeSvc  *intake.Service
	EstadosSvc *incidents.Service
}

type Server struct {
	cfg    *config.AppConfig
	logger *utils.Logger
	deps   ServerDeps
	http   *http.Server
}

func NewServer(cfg *config.AppConfig, deps ServerDeps, logger *utils.Logger) *Server {
	return &Server{cfg: cfg, deps: deps, logger: logger}
}

// Router assembles the HTTP contract the presentation layer consumes.
func (s *Server) Router() http.Handler {
	h := s.newRouteHandlers()
	r := chi.NewRouter()
	r.Use(s.recoverMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.logMiddleware)

	r.Get("/", h.root.Welcome)
	r.Route("/api", func(r chi.Router) {
		r.Post("/clientes", h.clients.Create)
		r.Get("/clientes/sorted", h.clients.ListSorted)
		r.Get("/clientes/{id:[0-9]+}/incidencias", h.clients.ListIncidencias)
		r.Post("/incidencias", h.incidents.Create)
		r.Put("/incidencias/{id:[0-9]+}/estado", h.incidents.UpdateEstado)
		r.Get("/estadisticas", h.stats.Get)
		r.Post("/etl/upload", h.etl.Upload)
	})
	return r
}

type routeHandlers struct {
	root      *handlers.RootHandler
	clients   *handlers.ClientsHandler
	incidents *handlers.IncidentsHandler
	stats     *handlers.StatsHandler
	etl       *handlers.ETLHandler
}

func (s *Server) newRouteHandlers() routeHandlers {
	return routeHandlers{
		root:      handlers.NewRootHandler(AppVersion),
		clients:   handlers.NewClientsHandler(s.deps.Clients, s.deps.Incidents, s.deps.Audits, s.logger),
		incidents: handlers.NewIncidentsHandler(s.deps.Clients, s.deps.Incidents, s.deps.EstadosSvc, s.deps.IntakeSvc, s.deps.Audits, s.logger),
		stats:     handlers.NewStatsHandler(s.deps.Clients, s.deps.Incidents, s.logger),
		etl:       handlers.NewETLHandler(s.cfg, s.deps.IntakeSvc, s.logger),
	}
}

func (s *Server) ListenAndServe() error {
	addr := "0.0.0.0:8000"
	if s.cfg != nil && s.cfg.ListenAddr != "" {
		addr = s.cfg.ListenAddr
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if s.logger != nil {
		s.logger.Printf("listening on %s", addr)
	}
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

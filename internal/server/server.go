// Package server exposes the computed fields, classifications, and
// statistics over a read-only HTTP API for the portal's map and chart
// renderers.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/martinbsolomon/philoca/internal/config"
	"github.com/martinbsolomon/philoca/internal/engine"
	"github.com/martinbsolomon/philoca/internal/model"
	"github.com/martinbsolomon/philoca/internal/store"
)

// Server wires the snapshot store and engine behind the HTTP API.
type Server struct {
	cfg        *config.Config
	store      store.Store
	engine     *engine.Engine
	parameters []model.ParameterMeta
	cacheTTL   time.Duration
}

// New creates a Server. A nil engine gets the default piecewise-cubic
// interpolator.
func New(cfg *config.Config, st store.Store, eng *engine.Engine, params []model.ParameterMeta) *Server {
	if eng == nil {
		eng = engine.New(nil)
	}
	return &Server{
		cfg:        cfg,
		store:      st,
		engine:     eng,
		parameters: params,
		cacheTTL:   time.Duration(cfg.Source.CacheTTLMins) * time.Minute,
	}
}

// Router builds the chi router with CORS for the browser-based renderers.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/parameters", s.handleParameters)
		r.Get("/field", s.handleField)
		r.Get("/stats", s.handleStats)
		r.Get("/samples", s.handleSamples)
		r.Get("/hull", s.handleHull)
	})
	return r
}

// parameterMeta returns the metadata for the named parameter, or nil when
// the portal does not know it.
func (s *Server) parameterMeta(name string) *model.ParameterMeta {
	for i := range s.parameters {
		if s.parameters[i].Name == name {
			return &s.parameters[i]
		}
	}
	return nil
}

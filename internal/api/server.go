// Package api exposes the synthesis service over HTTP. It serves a small
// JSON API for synthesis, engine introspection, statistics, and language
// policy management.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/dibbed/ttskit/internal/synth"
	"github.com/dibbed/ttskit/tts"
)

// Server wraps the HTTP front end around a synthesis service.
type Server struct {
	service  *synth.Service
	registry *tts.Registry
	config   tts.ServerConfig

	httpServer *http.Server
}

// NewServer builds the route table, middleware chain, and http.Server.
func NewServer(service *synth.Service, registry *tts.Registry, config tts.ServerConfig) *Server {
	s := &Server{
		service:  service,
		registry: registry,
		config:   config,
	}

	r := mux.NewRouter()
	r.Use(requestLogging)
	if config.RateLimitRPM > 0 {
		r.Use(rateLimit(config.RateLimitRPM, config.RateLimitBurst))
	}

	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/synth", s.handleSynthesize).Methods("POST")
	api.HandleFunc("/engines", s.handleListEngines).Methods("GET")
	api.HandleFunc("/engines/{name}/stats", s.handleEngineStats).Methods("GET")
	api.HandleFunc("/stats", s.handleStats).Methods("GET")
	api.HandleFunc("/stats/reset", s.handleResetStats).Methods("POST")
	api.HandleFunc("/policies", s.handleListPolicies).Methods("GET")
	api.HandleFunc("/policies/{lang}", s.handleGetPolicy).Methods("GET")
	api.HandleFunc("/policies/{lang}", s.handleSetPolicy).Methods("PUT")
	api.HandleFunc("/policies/{lang}", s.handleDeletePolicy).Methods("DELETE")

	origins := config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})

	s.httpServer = &http.Server{
		Addr:         config.Addr,
		Handler:      c.Handler(r),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return s
}

// ListenAndServe blocks serving requests until Shutdown or a fatal error.
func (s *Server) ListenAndServe() error {
	log.Info("HTTP API listening", "addr", s.config.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests within the given deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the full middleware-wrapped handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"engines": s.registry.AvailableEngines(),
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

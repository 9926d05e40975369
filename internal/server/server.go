// Package server provides the HTTP server for the strikezone pitch tracker.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ayusman/strikezone/internal/hook"
	"github.com/ayusman/strikezone/internal/server/api"
	"github.com/ayusman/strikezone/internal/store"
)

// Config holds the server configuration. Routes whose collaborator is nil
// are not registered.
type Config struct {
	StaticDir string
	Store     *store.Store
	Field     api.FieldController
	Session   api.Session
	Plugins   *hook.Manager
	Events    *Hub
	Frames    FrameSource
}

// Server represents the HTTP server for the strikezone application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Field != nil {
		fieldHandler := api.NewFieldHandler(s.config.Field)
		s.mux.Handle("/api/field", fieldHandler)
		s.mux.Handle("/api/field/", fieldHandler)
	}

	if s.config.Session != nil {
		s.mux.Handle("/api/tracking/", api.NewTrackingHandler(s.config.Session))
	}

	if s.config.Store != nil {
		var fields api.FieldSource
		if s.config.Field != nil {
			fields = s.config.Field
		}
		pitchHandler := api.NewPitchHandler(s.config.Store, fields)
		s.mux.Handle("/api/pitches", pitchHandler)
		s.mux.Handle("/api/pitches/", pitchHandler)

		hookHandler := api.NewHookHandler(s.config.Store, s.config.Plugins)
		s.mux.Handle("/api/hooks", hookHandler)
		s.mux.Handle("/api/hooks/", hookHandler)
	}

	if s.config.Events != nil {
		s.mux.Handle("/api/events", s.config.Events)
	}

	if s.config.Frames != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Frames))
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.Session != nil {
		response["state"] = s.config.Session.State()
		response["tracking"] = s.config.Session.IsTracking()
	}
	if s.config.Events != nil {
		response["viewers"] = s.config.Events.Clients()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	log.Info().Str("addr", addr).Msg("http server listening")
	return http.ListenAndServe(addr, s)
}

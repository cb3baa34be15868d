// Package server exposes the sighting log and pipeline counters over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/gokoki/internal/app"
	"github.com/ayusman/gokoki/internal/server/api"
	"github.com/ayusman/gokoki/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	// Pipeline, when set, is reported by /api/health and streamed on /api/live.
	Pipeline *app.Pipeline
}

// Server represents the HTTP server for kokidetect.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	live   *LiveHandler
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

	if s.config.Store != nil {
		detections := api.NewDetectionHandler(s.config.Store)
		s.mux.Handle("/api/detections", detections)
		s.mux.Handle("/api/detections/", detections)

		markers := api.NewMarkerHandler(s.config.Store)
		s.mux.Handle("/api/markers/", markers)
	}

	// Stream results if a pipeline is attached
	if s.config.Pipeline != nil {
		s.live = NewLiveHandler(s.config.Pipeline)
		s.mux.Handle("/api/live", s.live)
	}

	// Serve static files if StaticDir is configured
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
	if s.config.Pipeline != nil {
		stats := s.config.Pipeline.Stats()
		response["frames"] = stats.Frames
		response["markers"] = stats.Markers
		response["errors"] = stats.Errors
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

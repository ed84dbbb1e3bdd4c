// Package server provides the HTTP server for islpose: lexicon management,
// gloss translation and rendered playback.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/islpose/internal/render"
	"github.com/ayusman/islpose/internal/server/api"
	"github.com/ayusman/islpose/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir  string
	Store      *store.Store
	Translator api.Translator
	Defaults   api.Defaults
	Renderer   *render.Renderer
}

// Server represents the HTTP server for the islpose application.
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

	// Register lexicon and landmark APIs if Store is configured
	if s.config.Store != nil {
		lexiconHandler := api.NewLexiconHandler(s.config.Store)
		s.mux.Handle("/api/lexicon", lexiconHandler)
		s.mux.Handle("/api/lexicon/", lexiconHandler)
		s.mux.Handle("/api/landmarks/", api.NewLandmarksHandler(s.config.Store))
	}

	if s.config.Translator != nil {
		s.mux.Handle("/api/translate", api.NewTranslateHandler(s.config.Translator, s.config.Defaults))

		// Playback streams need a renderer for geometry and frames
		if s.config.Renderer != nil {
			s.mux.Handle("/api/stream", NewStreamHandler(s.config.Translator, s.config.Renderer, s.config.Defaults))
			s.mux.Handle("/api/playback", NewPlaybackHandler(s.config.Translator, s.config.Renderer, s.config.Defaults))
		}
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

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status":     "ok",
		"uptime":     uptime.String(),
		"translator": s.config.Translator != nil,
		"lexicon":    s.config.Store != nil,
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
